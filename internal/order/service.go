package order

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"kiomedine-order-bot/internal/pkg/metrics"
	"kiomedine-order-bot/internal/pkg/model"
	"kiomedine-order-bot/pkg"

	"go.uber.org/zap"
)

// Repo mirrors the order table to durable storage.
type Repo interface {
	AddOrder(ctx context.Context, order model.Order, customer model.User) error
	UpdateStatus(ctx context.Context, id model.OrderID, status model.OrderStatus, operatorID int64) error
	UpdatePayment(ctx context.Context, id model.OrderID, status model.PaymentStatus) error
	UpdateTTN(ctx context.Context, id model.OrderID, ttn string) error
	GetOrders(ctx context.Context) ([]model.Order, error)
}

// HistoryLookup is implemented by repos that can list one chat's orders
// without a full reload.
type HistoryLookup interface {
	GetHistory(ctx context.Context, chatID int64) ([]model.Order, error)
}

type Service interface {
	Submit(ctx context.Context, order model.Order, customer model.User) (model.Order, error)
	Get(id model.OrderID) (model.Order, bool)
	Accept(ctx context.Context, id model.OrderID, operatorID int64) (model.Order, error)
	Cancel(ctx context.Context, id model.OrderID, operatorID int64) (model.Order, error)
	MarkPaid(ctx context.Context, id model.OrderID) (model.Order, error)
	AttachTTN(ctx context.Context, id model.OrderID, ttn string) (model.Order, error)
	CheckTTNAllowed(id model.OrderID) (model.Order, error)
	SetAdminMessages(id model.OrderID, msgs []model.AdminMessage)
	History(ctx context.Context, chatID int64) []model.Order
	All() []model.Order
	Stats() Stats
	Reload(ctx context.Context) (int, error)
}

// DefaultService keeps every order in memory and mirrors mutations to the
// repo. A failed mirror call never rolls the in-memory change back; it is
// reported as *pkg.ErrStoreCall.
type DefaultService struct {
	repo   Repo
	orders map[model.OrderID]*model.Order
	mu     sync.RWMutex
}

func NewDefaultService(repo Repo) *DefaultService {
	return &DefaultService{
		repo:   repo,
		orders: make(map[model.OrderID]*model.Order),
	}
}

func (d *DefaultService) Submit(ctx context.Context, order model.Order, customer model.User) (model.Order, error) {
	order.Status = model.StatusPending
	order.PaymentStatus = model.PaymentUnpaid

	d.mu.Lock()
	stored := order
	d.orders[order.ID] = &stored
	d.mu.Unlock()

	metrics.OrdersSubmittedTotal.Inc()

	if err := d.repo.AddOrder(ctx, order, customer); err != nil {
		zap.S().Errorw("Failed to mirror new order", "error", err, "orderID", order.ID.String())
		return order, storeErr("add", order.ID, err)
	}
	return order, nil
}

func (d *DefaultService) Get(id model.OrderID) (model.Order, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	o, ok := d.orders[id]
	if !ok {
		return model.Order{}, false
	}
	return clone(o), true
}

func (d *DefaultService) Accept(ctx context.Context, id model.OrderID, operatorID int64) (model.Order, error) {
	updated, err := d.mutate(id, func(o *model.Order) error {
		switch o.Status {
		case model.StatusPending:
			o.Status = model.StatusAccepted
			return nil
		case model.StatusCanceled:
			return ErrOrderCanceled
		default:
			return ErrAlreadyAccepted
		}
	})
	if err != nil {
		return updated, err
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(model.StatusAccepted)).Inc()
	if err := d.repo.UpdateStatus(ctx, id, model.StatusAccepted, operatorID); err != nil {
		zap.S().Errorw("Failed to mirror order acceptance", "error", err, "orderID", id.String())
		return updated, storeErr("updateStatus", id, err)
	}
	return updated, nil
}

func (d *DefaultService) Cancel(ctx context.Context, id model.OrderID, operatorID int64) (model.Order, error) {
	updated, err := d.mutate(id, func(o *model.Order) error {
		switch o.Status {
		case model.StatusPending:
			o.Status = model.StatusCanceled
			return nil
		case model.StatusCanceled:
			return ErrOrderCanceled
		default:
			return ErrCannotCancelAccepted
		}
	})
	if err != nil {
		return updated, err
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(model.StatusCanceled)).Inc()
	if err := d.repo.UpdateStatus(ctx, id, model.StatusCanceled, operatorID); err != nil {
		zap.S().Errorw("Failed to mirror order cancellation", "error", err, "orderID", id.String())
		return updated, storeErr("updateStatus", id, err)
	}
	return updated, nil
}

func (d *DefaultService) MarkPaid(ctx context.Context, id model.OrderID) (model.Order, error) {
	updated, err := d.mutate(id, func(o *model.Order) error {
		if err := requireAccepted(o); err != nil {
			return err
		}
		if o.PaymentStatus == model.PaymentPaid {
			return ErrAlreadyPaid
		}
		o.PaymentStatus = model.PaymentPaid
		return nil
	})
	if err != nil {
		return updated, err
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(model.PaymentPaid)).Inc()
	if err := d.repo.UpdatePayment(ctx, id, model.PaymentPaid); err != nil {
		zap.S().Errorw("Failed to mirror payment status", "error", err, "orderID", id.String())
		return updated, storeErr("updatePayment", id, err)
	}
	return updated, nil
}

func (d *DefaultService) AttachTTN(ctx context.Context, id model.OrderID, ttn string) (model.Order, error) {
	ttn = strings.TrimSpace(ttn)
	if ttn == "" {
		return model.Order{}, ErrEmptyTTN
	}

	updated, err := d.mutate(id, func(o *model.Order) error {
		if err := requireAccepted(o); err != nil {
			return err
		}
		o.TTN = ttn
		o.Status = model.StatusShipped
		return nil
	})
	if err != nil {
		return updated, err
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(model.StatusShipped)).Inc()
	if err := d.repo.UpdateTTN(ctx, id, ttn); err != nil {
		zap.S().Errorw("Failed to mirror tracking number", "error", err, "orderID", id.String())
		return updated, storeErr("updateTTN", id, err)
	}
	return updated, nil
}

// CheckTTNAllowed validates that a tracking number may be attached to the
// order, without changing it.
func (d *DefaultService) CheckTTNAllowed(id model.OrderID) (model.Order, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	o, ok := d.orders[id]
	if !ok {
		return model.Order{}, ErrOrderNotFound
	}
	return clone(o), requireAccepted(o)
}

func (d *DefaultService) SetAdminMessages(id model.OrderID, msgs []model.AdminMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if o, ok := d.orders[id]; ok {
		o.AdminMessages = slices.Clone(msgs)
	}
}

// History lists the chat's orders from memory. When memory knows none and
// the repo can look history up, the repo's answer is cached and returned.
func (d *DefaultService) History(ctx context.Context, chatID int64) []model.Order {
	if local := d.localHistory(chatID); len(local) > 0 {
		return local
	}

	lookup, ok := d.repo.(HistoryLookup)
	if !ok {
		return nil
	}
	remote, err := lookup.GetHistory(ctx, chatID)
	if err != nil {
		zap.S().Errorw("Failed to look up order history", "error", err, "chatID", chatID)
		return nil
	}

	d.mu.Lock()
	for _, o := range remote {
		if _, ok := d.orders[o.ID]; !ok {
			stored := o
			d.orders[o.ID] = &stored
		}
	}
	d.mu.Unlock()

	return d.localHistory(chatID)
}

func (d *DefaultService) localHistory(chatID int64) []model.Order {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []model.Order
	for _, o := range d.orders {
		if o.ID.ChatID == chatID {
			result = append(result, clone(o))
		}
	}
	sortByCreation(result)
	return result
}

func (d *DefaultService) All() []model.Order {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]model.Order, 0, len(d.orders))
	for _, o := range d.orders {
		result = append(result, clone(o))
	}
	sortByCreation(result)
	return result
}

func (d *DefaultService) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var s Stats
	for _, o := range d.orders {
		s.Total++
		switch o.Status {
		case model.StatusPending:
			s.Pending++
		case model.StatusAccepted:
			s.Accepted++
			s.Units += o.Quantity
		case model.StatusCanceled:
			s.Canceled++
		case model.StatusShipped:
			s.Shipped++
			s.Units += o.Quantity
		}
		if o.PaymentStatus == model.PaymentPaid {
			s.Paid++
		}
	}
	return s
}

// Reload pulls orders from the repo. Orders already known locally win, so a
// mutation whose mirror call failed is not overwritten by stale remote data.
func (d *DefaultService) Reload(ctx context.Context) (int, error) {
	remote, err := d.repo.GetOrders(ctx)
	if err != nil {
		zap.S().Errorw("Failed to load orders", "error", err)
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	added := 0
	for _, o := range remote {
		if _, ok := d.orders[o.ID]; ok {
			continue
		}
		stored := o
		d.orders[o.ID] = &stored
		added++
	}
	return added, nil
}

func (d *DefaultService) mutate(id model.OrderID, apply func(o *model.Order) error) (model.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	o, ok := d.orders[id]
	if !ok {
		return model.Order{}, ErrOrderNotFound
	}
	if err := apply(o); err != nil {
		return clone(o), err
	}
	return clone(o), nil
}

func requireAccepted(o *model.Order) error {
	switch o.Status {
	case model.StatusAccepted:
		return nil
	case model.StatusCanceled:
		return ErrOrderCanceled
	case model.StatusShipped:
		return ErrAlreadyShipped
	default:
		return ErrNotAccepted
	}
}

func storeErr(action string, id model.OrderID, err error) error {
	metrics.StoreErrorsTotal.WithLabelValues(action).Inc()
	return &pkg.ErrStoreCall{Action: action, Info: "order " + id.String(), Err: err}
}

// IsStoreFailure reports whether err only means the mirror call failed.
func IsStoreFailure(err error) bool {
	var storeErr *pkg.ErrStoreCall
	return errors.As(err, &storeErr)
}
