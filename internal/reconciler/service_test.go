package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/order"
	"kiomedine-order-bot/internal/pkg/config"
	"kiomedine-order-bot/internal/pkg/model"
	"kiomedine-order-bot/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderRepo struct {
	remote []model.Order
	err    error
}

func (r *orderRepo) AddOrder(context.Context, model.Order, model.User) error { return nil }
func (r *orderRepo) UpdateStatus(context.Context, model.OrderID, model.OrderStatus, int64) error {
	return nil
}
func (r *orderRepo) UpdatePayment(context.Context, model.OrderID, model.PaymentStatus) error {
	return nil
}
func (r *orderRepo) UpdateTTN(context.Context, model.OrderID, string) error { return nil }
func (r *orderRepo) GetOrders(context.Context) ([]model.Order, error) {
	return r.remote, r.err
}

type userRepo struct {
	users []model.User
	err   error
}

func (r *userRepo) SaveUser(context.Context, model.User) error { return nil }
func (r *userRepo) GetUsers(context.Context) ([]model.User, error) {
	return r.users, r.err
}

type statsSource struct {
	stats order.Stats
	calls int
}

func (s *statsSource) GetStats(context.Context) (order.Stats, error) {
	s.calls++
	return s.stats, nil
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	orders := order.NewDefaultService(&orderRepo{remote: []model.Order{
		{ID: model.OrderID{ChatID: 1, Timestamp: 10}, Status: model.StatusPending},
		{ID: model.OrderID{ChatID: 2, Timestamp: 20}, Status: model.StatusShipped},
	}})
	users := user.NewDirectory(&userRepo{}, nil)
	source := &userRepo{users: []model.User{{ChatID: 1, Name: "Olena", Verified: true}}}

	store := conversation.NewStore(conversation.WithClock(func() time.Time { return now }))
	v, _ := store.StartVerification(5, "stale")
	v.Step = conversation.VerifyPendingApproval
	v.CreatedAt = now.Add(-conversation.VerificationTTL - time.Hour)
	store.SaveVerification(v)

	stats := &statsSource{stats: order.Stats{Total: 2, Pending: 1, Shipped: 1}}
	svc := NewDefaultService(orders, users, source, store, stats, &config.ReconcilerCfg{Interval: time.Hour})

	res, err := svc.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, Result{OrdersAdded: 2, UsersLoaded: 1, VerificationsExpired: 1}, res)
	assert.True(t, users.IsVerified(1))

	u, ok := users.Get(1)
	require.True(t, ok)
	assert.Equal(t, []model.OrderID{{ChatID: 1, Timestamp: 10}}, u.Orders)
	_, ok = users.Get(2)
	assert.False(t, ok, "unknown chats are not created from orders")
	assert.Equal(t, 1, stats.calls)

	// A second pass adds nothing new.
	res, err = svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.OrdersAdded)
}

func TestReconcileKeepsGoingWhenStoreFails(t *testing.T) {
	ctx := context.Background()
	errDown := errors.New("down")

	orders := order.NewDefaultService(&orderRepo{err: errDown})
	users := user.NewDirectory(&userRepo{}, nil)
	source := &userRepo{users: []model.User{{ChatID: 3, Verified: true}}}
	svc := NewDefaultService(orders, users, source, conversation.NewStore(), nil, &config.ReconcilerCfg{Interval: time.Hour})

	res, err := svc.Reconcile(ctx)
	assert.ErrorIs(t, err, errDown)
	assert.Zero(t, res.OrdersAdded)
	assert.True(t, users.IsVerified(3))
}

func TestStartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	orders := order.NewDefaultService(&orderRepo{})
	users := user.NewDirectory(&userRepo{}, nil)
	svc := NewDefaultService(orders, users, nil, conversation.NewStore(), nil, &config.ReconcilerCfg{Interval: time.Millisecond})

	svc.Start(ctx)
	time.Sleep(5 * time.Millisecond)
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, svc.Stop(stopCtx))
}
