package reconciler

import (
	"context"
	"sync"
	"time"

	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/order"
	"kiomedine-order-bot/internal/pkg/config"
	"kiomedine-order-bot/internal/pkg/model"
	"kiomedine-order-bot/internal/user"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StatsSource is implemented by stores that can count orders themselves.
type StatsSource interface {
	GetStats(ctx context.Context) (order.Stats, error)
}

type Service interface {
	Start(ctx context.Context)
	Stop(ctx context.Context) error
	Reconcile(ctx context.Context) (Result, error)
}

// Result summarises one reconciliation pass.
type Result struct {
	OrdersAdded          int
	UsersLoaded          int
	VerificationsExpired int
}

type DefaultService struct {
	orders        order.Service
	users         *user.Directory
	usersSource   user.Source
	conversations *conversation.Store
	stats         StatsSource
	cfg           *config.ReconcilerCfg
	wg            *sync.WaitGroup
}

// NewDefaultService wires a reconciler. stats may be nil when the store
// cannot count orders.
func NewDefaultService(
	orders order.Service,
	users *user.Directory,
	usersSource user.Source,
	conversations *conversation.Store,
	stats StatsSource,
	cfg *config.ReconcilerCfg,
) *DefaultService {
	return &DefaultService{
		orders:        orders,
		users:         users,
		usersSource:   usersSource,
		conversations: conversations,
		stats:         stats,
		cfg:           cfg,
		wg:            &sync.WaitGroup{},
	}
}

func (d *DefaultService) Start(ctx context.Context) {
	d.startReconciliationLoop(ctx)
	zap.S().Infow("Started reconciler service", "interval", d.cfg.Interval.String())
}

func (d *DefaultService) Stop(ctx context.Context) error {
	stop := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(stop)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return nil
	}
}

func (d *DefaultService) startReconciliationLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Interval)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := d.Reconcile(ctx); err != nil {
					zap.S().Errorw("Reconciliation failed", "error", err)
				}
			}
		}
	}()
}

// Reconcile pulls orders and users from the store into memory. Local records
// are never dropped, so changes whose mirror call failed survive the pass.
func (d *DefaultService) Reconcile(ctx context.Context) (Result, error) {
	var res Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := d.orders.Reload(gctx)
		res.OrdersAdded = n
		return err
	})
	if d.usersSource != nil {
		g.Go(func() error {
			n, err := d.users.Reload(gctx, d.usersSource)
			res.UsersLoaded = n
			return err
		})
	}
	err := g.Wait()

	d.linkOrders(d.orders.All())
	res.VerificationsExpired = d.conversations.SweepExpired()
	d.checkStats(ctx)

	zap.S().Infow("Reconciliation finished",
		"ordersAdded", res.OrdersAdded,
		"usersLoaded", res.UsersLoaded,
		"verificationsExpired", res.VerificationsExpired)
	return res, err
}

// linkOrders records every order on its owner's list. Chats the directory
// does not know are left alone.
func (d *DefaultService) linkOrders(orders []model.Order) {
	for _, o := range orders {
		if _, known := d.users.Get(o.ID.ChatID); !known {
			continue
		}
		d.users.AppendOrder(o.ID, model.Sender{ID: o.ID.ChatID})
	}
}

// checkStats logs when the store counts differently from memory.
func (d *DefaultService) checkStats(ctx context.Context) {
	if d.stats == nil {
		return
	}
	remote, err := d.stats.GetStats(ctx)
	if err != nil {
		zap.S().Warnw("Failed to load order stats", "error", err)
		return
	}
	local := d.orders.Stats()
	if remote.Total != local.Total || remote.Pending != local.Pending || remote.Shipped != local.Shipped {
		zap.S().Warnw("Order stats drifted from store",
			"localTotal", local.Total, "remoteTotal", remote.Total,
			"localPending", local.Pending, "remotePending", remote.Pending,
			"localShipped", local.Shipped, "remoteShipped", remote.Shipped)
	}
}
