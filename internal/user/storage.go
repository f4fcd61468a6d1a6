package user

import (
	"context"
	"fmt"
	"time"

	"kiomedine-order-bot/internal/pkg/db"
	"kiomedine-order-bot/internal/pkg/model"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var userColumns = []string{
	"chat_id", "name", "username", "town", "phone", "workplace", "verifier_name", "verified",
}

// DefaultRepo stores users in Postgres.
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

func (d *DefaultRepo) SaveUser(ctx context.Context, u model.User) error {
	query, args, err := d.upsertQuery(u, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to build upsert query: %w", err)
	}
	if _, err := d.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save user %d: %w", u.ChatID, err)
	}
	return nil
}

func (d *DefaultRepo) GetUsers(ctx context.Context) ([]model.User, error) {
	query, args, err := d.sb.Select(userColumns...).From("users").OrderBy("chat_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := d.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	dbUsers, err := pgx.CollectRows(rows, pgx.RowToStructByName[DBUser])
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}

	users := make([]model.User, len(dbUsers))
	for i, row := range dbUsers {
		users[i] = model.User{
			ChatID:       row.ChatID,
			Name:         row.Name,
			Username:     row.Username,
			Town:         row.Town,
			Phone:        row.Phone,
			Workplace:    row.Workplace,
			VerifierName: row.VerifierName,
			Verified:     row.Verified,
		}
	}
	return users, nil
}

func (d *DefaultRepo) upsertQuery(u model.User, at time.Time) (string, []any, error) {
	return d.sb.Insert("users").
		Columns(append(userColumns[:len(userColumns):len(userColumns)], "updated_at")...).
		Values(u.ChatID, u.Name, u.Username, u.Town, u.Phone, u.Workplace, u.VerifierName, u.Verified, at).
		Suffix(`on conflict (chat_id) do update set
			name = excluded.name,
			username = excluded.username,
			town = excluded.town,
			phone = excluded.phone,
			workplace = excluded.workplace,
			verifier_name = excluded.verifier_name,
			verified = excluded.verified,
			updated_at = excluded.updated_at`).
		ToSql()
}
