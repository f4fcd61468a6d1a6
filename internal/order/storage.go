package order

import (
	"context"
	"fmt"
	"slices"
	"time"

	"kiomedine-order-bot/internal/pkg/db"
	"kiomedine-order-bot/internal/pkg/model"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var orderColumns = []string{
	"chat_id", "created_ms", "quantity", "city", "recipient_name", "branch",
	"phone", "payment_method", "payment_status", "status", "ttn",
}

// DefaultRepo stores orders in Postgres.
type DefaultRepo struct {
	db db.DB
	sb sq.StatementBuilderType
}

func NewDefaultRepo(conn db.DB) *DefaultRepo {
	return &DefaultRepo{
		db: conn,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (d *DefaultRepo) AddOrder(ctx context.Context, order model.Order, _ model.User) error {
	query, args, err := d.insertQuery(order)
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}
	if _, err := d.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order %s: %w", order.ID, err)
	}
	return nil
}

func (d *DefaultRepo) UpdateStatus(ctx context.Context, id model.OrderID, status model.OrderStatus, operatorID int64) error {
	return d.update(ctx, id, sq.Eq{"status": string(status), "operator_id": operatorID})
}

func (d *DefaultRepo) UpdatePayment(ctx context.Context, id model.OrderID, status model.PaymentStatus) error {
	return d.update(ctx, id, sq.Eq{"payment_status": string(status)})
}

func (d *DefaultRepo) UpdateTTN(ctx context.Context, id model.OrderID, ttn string) error {
	return d.update(ctx, id, sq.Eq{"ttn": ttn, "status": string(model.StatusShipped)})
}

func (d *DefaultRepo) GetOrders(ctx context.Context) ([]model.Order, error) {
	return d.selectOrders(ctx, d.sb.Select(orderColumns...).From("orders").OrderBy("created_ms"))
}

func (d *DefaultRepo) GetHistory(ctx context.Context, chatID int64) ([]model.Order, error) {
	return d.selectOrders(ctx, d.sb.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"chat_id": chatID}).
		OrderBy("created_ms"))
}

func (d *DefaultRepo) selectOrders(ctx context.Context, b sq.SelectBuilder) ([]model.Order, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := d.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select orders: %w", err)
	}
	dbOrders, err := pgx.CollectRows(rows, pgx.RowToStructByName[DBOrder])
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}

	orders := make([]model.Order, len(dbOrders))
	for i, row := range dbOrders {
		orders[i] = fromDB(row)
	}
	return orders, nil
}

func (d *DefaultRepo) insertQuery(order model.Order) (string, []any, error) {
	return d.sb.Insert("orders").
		Columns(slices.Concat(orderColumns, []string{"created_at"})...).
		Values(
			order.ID.ChatID,
			order.ID.Timestamp,
			order.Quantity,
			order.City,
			order.RecipientName,
			order.Branch,
			order.Phone,
			string(order.PaymentMethod),
			string(order.PaymentStatus),
			string(order.Status),
			order.TTN,
			order.CreatedAt,
		).
		Suffix("on conflict (chat_id, created_ms) do nothing").
		ToSql()
}

func (d *DefaultRepo) updateQuery(id model.OrderID, fields sq.Eq) (string, []any, error) {
	return d.sb.Update("orders").
		SetMap(fields).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"chat_id": id.ChatID, "created_ms": id.Timestamp}).
		ToSql()
}

func (d *DefaultRepo) update(ctx context.Context, id model.OrderID, fields sq.Eq) error {
	query, args, err := d.updateQuery(id, fields)
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}
	tag, err := d.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
	}
	return nil
}

func fromDB(row DBOrder) model.Order {
	return model.Order{
		ID:            model.OrderID{ChatID: row.ChatID, Timestamp: row.CreatedMs},
		Quantity:      row.Quantity,
		City:          row.City,
		RecipientName: row.RecipientName,
		Branch:        row.Branch,
		Phone:         row.Phone,
		PaymentMethod: model.PaymentMethod(row.PaymentMethod),
		PaymentStatus: model.PaymentStatus(row.PaymentStatus),
		Status:        model.OrderStatus(row.Status),
		TTN:           row.TTN,
		CreatedAt:     time.UnixMilli(row.CreatedMs),
	}
}
