// Package app is the composition root of the fresho client.
package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/fresho/internal/catalog"
	"github.com/xenking/fresho/internal/catalogapi"
	"github.com/xenking/fresho/internal/console"
	"github.com/xenking/fresho/internal/domain/cart"
	"github.com/xenking/fresho/internal/domain/fallback"
	"github.com/xenking/fresho/internal/scan"
	"github.com/xenking/fresho/internal/session"
	"github.com/xenking/fresho/internal/shop"
	"github.com/xenking/fresho/internal/statusapi"
	"github.com/xenking/fresho/pkg/health"
	"github.com/xenking/fresho/pkg/httpmiddleware"
)

// Run wires every component, starts the status server and drives the console
// until the input ends or ctx is cancelled.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config, in io.Reader, out io.Writer) error {
	lg.Info("Initializing",
		zap.String("catalog", cfg.Catalog.BaseURL),
		zap.String("session_store", cfg.Session.Store),
	)

	client, err := catalogapi.New(cfg.Catalog.BaseURL,
		catalogapi.WithHTTPClient(&http.Client{Timeout: cfg.Catalog.Timeout}),
		catalogapi.WithTracerProvider(m.TracerProvider()),
		catalogapi.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create catalog client")
	}

	healthSvc := health.New()
	healthSvc.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Add(health.Readiness, "catalog-api", 5*time.Second, health.PingCheck(client))

	store, closeStore, err := newSessionStore(cfg.Session)
	if err != nil {
		return err
	}
	defer closeStore()
	if p, ok := store.(health.Pinger); ok {
		healthSvc.Add(health.Readiness, "session-store", 2*time.Second, health.PingCheck(p))
	}

	demo, err := session.NewAccount(cfg.Session.DemoEmail, cfg.Session.DemoPassword, cfg.Session.BcryptCost)
	if err != nil {
		return errors.Wrap(err, "prepare demo account")
	}
	gate := session.NewGate(store, cfg.Session.Secret,
		session.WithTTL(cfg.Session.TTL),
		session.WithAccounts(demo),
	)

	var assignerOpts []fallback.Option
	if cfg.Fallback.Random {
		assignerOpts = append(assignerOpts, fallback.WithRandom())
	}
	assigner := fallback.NewAssigner(assignerOpts...)
	ledger := cart.NewLedger(cart.WithAssigner(assigner))

	index := scan.NewIndex()
	pagerOpts := []catalog.Option{
		catalog.WithObserver(func(s catalog.State) {
			if s.Status == catalog.StatusSuccess || len(s.Products) == 0 {
				index.Rebuild(s.Products)
			}
		}),
	}
	if cfg.Catalog.Dedupe {
		pagerOpts = append(pagerOpts, catalog.WithDedupe())
	}
	pager := catalog.NewPager(client, pagerOpts...)
	scanner := scan.NewScanner(scan.NewResolver(index), scan.WithCooldown(cfg.Scanner.Cooldown))

	term := console.New(out)
	s := shop.New(shop.Deps{
		Session:   gate,
		Pager:     pager,
		Ledger:    ledger,
		Assigner:  assigner,
		Scanner:   scanner,
		Notifier:  term,
		Navigator: term,
		Query: catalog.Query{
			StoreLocationID: cfg.Catalog.StoreLocationID,
			PageSize:        cfg.Catalog.PageSize,
		},
	})
	term.Attach(s)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	healthSvc.Start(ctx, 10*time.Second)
	defer healthSvc.Stop()
	healthSvc.SetReady(true)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Status.Addr != "" {
		server := &http.Server{
			Addr:              cfg.Status.Addr,
			ReadHeaderTimeout: time.Second,
			ReadTimeout:       5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
			Handler: statusapi.NewHandler(healthSvc, ledger, pager,
				httpmiddleware.RequestID(),
				httpmiddleware.InjectLogger(zctx.From(ctx)),
				httpmiddleware.Recovery(),
				httpmiddleware.LogRequests(),
			),
		}
		g.Go(func() error {
			lg.Info("Status server listening", zap.String("addr", cfg.Status.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "status server")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			healthSvc.SetReady(false)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				lg.Error("Status server shutdown error", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		s.Start(gctx)
		if err := term.Run(gctx, in); err != nil {
			return errors.Wrap(err, "console")
		}
		lg.Info("Console closed")
		return nil
	})

	return g.Wait()
}

func newSessionStore(cfg SessionConfig) (session.Store, func(), error) {
	switch cfg.Store {
	case "memory":
		return session.NewMemoryStore(), func() {}, nil
	case "redis":
		rs := session.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		return rs, func() { _ = rs.Close() }, nil
	default:
		return nil, nil, errors.Errorf("unknown session store %q", cfg.Store)
	}
}
