package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kiomedine-order-bot/internal/appsscript"
	"kiomedine-order-bot/internal/broadcast"
	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/file"
	"kiomedine-order-bot/internal/info"
	"kiomedine-order-bot/internal/order"
	transport "kiomedine-order-bot/internal/pkg"
	"kiomedine-order-bot/internal/pkg/config"
	"kiomedine-order-bot/internal/pkg/db"
	"kiomedine-order-bot/internal/pkg/logger"
	"kiomedine-order-bot/internal/reconciler"
	"kiomedine-order-bot/internal/server"
	"kiomedine-order-bot/internal/sheets"
	"kiomedine-order-bot/internal/telegram"
	"kiomedine-order-bot/internal/user"

	"github.com/shopspring/decimal"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(ctx, cfg); err != nil {
		zap.S().Fatalw("Bot stopped with error", "error", err)
	}
	zap.S().Info("Bot stopped")
}

// stores is the persistence side picked by the storage backend.
type stores struct {
	orders  order.Repo
	users   user.Repo
	source  user.Source
	stats   reconciler.StatsSource
	closeFn func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.Storage.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		userRepo := user.NewDefaultRepo(pool)
		return &stores{
			orders:  order.NewDefaultRepo(pool),
			users:   userRepo,
			source:  userRepo,
			closeFn: pool.Close,
		}, nil
	default:
		client := appsscript.NewClient(cfg.Storage.AppsScript.URL, transport.NewHTTPClient(cfg.Storage.AppsScript.Timeout))
		return &stores{
			orders:  client,
			users:   client,
			source:  client,
			stats:   client,
			closeFn: func() {},
		}, nil
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}
	defer st.closeFn()

	if cfg.Sheets.Enabled() {
		src, err := sheets.NewUsersSource(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, cfg.Sheets.UsersRange)
		if err != nil {
			return err
		}
		st.source = src
	}

	unitPrice, err := decimal.NewFromString(cfg.Shop.UnitPrice)
	if err != nil {
		return fmt.Errorf("invalid unit price %q: %w", cfg.Shop.UnitPrice, err)
	}

	catalogue, err := info.Load(cfg.Shop.ContentPath)
	if err != nil {
		zap.S().Warnw("Info menu disabled", "error", err)
		catalogue = nil
	}
	files := file.NewDefaultService(cfg.Shop.AssetsDir)
	if catalogue != nil && catalogue.Document.File != "" {
		missing, err := files.Missing(catalogue.Document.File)
		if err != nil {
			zap.S().Warnw("Failed to check assets", "error", err, "dir", cfg.Shop.AssetsDir)
		} else if len(missing) > 0 {
			zap.S().Warnw("Assets missing", "files", missing, "dir", cfg.Shop.AssetsDir)
		}
	}

	users := user.NewDirectory(st.users, cfg.AdminChatIDs)
	orders := order.NewDefaultService(st.orders)
	conversations := conversation.NewStore()

	rec := reconciler.NewDefaultService(orders, users, st.source, conversations, st.stats, &cfg.Reconciler)
	if _, err := rec.Reconcile(ctx); err != nil {
		zap.S().Warnw("Initial load incomplete, starting with what is cached", "error", err)
	}

	botClient := transport.NewHTTPClient(cfg.TelegramCfg.PollTimeout + 10*time.Second)
	b, err := telegram.NewBot(&cfg.TelegramCfg, botClient)
	if err != nil {
		return err
	}

	broadcasts := broadcast.NewService(telegram.NewBroadcastSender(b), ratelimit.New(cfg.Broadcast.PerSecond))
	b.Setup(&telegram.Services{
		Users:         users,
		Orders:        orders,
		Conversations: conversations,
		Broadcasts:    broadcasts,
		Catalogue:     catalogue,
		Files:         files,
		UsersSource:   st.source,
		Shop: telegram.Shop{
			UnitPrice:      unitPrice,
			Currency:       cfg.Shop.Currency,
			PaymentDetails: cfg.Shop.PaymentDetails,
			OperatorPhone:  cfg.Shop.OperatorPhone,
			OperatorName:   cfg.Shop.OperatorName,
		},
	})

	var webhook http.Handler
	if cfg.TelegramCfg.Mode == config.ModeWebhook {
		webhook = b.WebhookHandler()
	}
	srv := server.New(cfg.Server.Addr, webhook)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		return b.Start(gctx)
	})
	rec.Start(gctx)

	g.Go(func() error {
		<-gctx.Done()
		zap.S().Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(
			srv.Stop(shutdownCtx),
			broadcasts.Stop(shutdownCtx),
			rec.Stop(shutdownCtx),
		)
	})

	return g.Wait()
}
