// Package app owns the process-wide state: store pool, renderer, sessions,
// scheduler and metrics. It is built once at startup and closed on shutdown.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"pills-bot/internal/config"
	"pills-bot/internal/httpserver"
	"pills-bot/internal/metrics"
	"pills-bot/internal/pdf"
	"pills-bot/internal/ratelimit"
	"pills-bot/internal/report"
	"pills-bot/internal/scheduler"
	"pills-bot/internal/session"
	"pills-bot/internal/store"
	"pills-bot/internal/telegram"
)

type App struct {
	Config    *config.Config
	Location  *time.Location
	Store     *store.SQLStore
	Reports   *report.Service
	Sessions  *session.Manager
	Limiter   *ratelimit.Limiter
	Scheduler *scheduler.Scheduler
	Registry  *prometheus.Registry
	Metrics   *metrics.Collector
}

// New migrates (Postgres) and opens the store, then wires every collaborator.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if store.IsPostgres(cfg.DatabaseURL) {
		if err := store.MigratePostgres(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	st, err := store.Open(ctx, cfg.DatabaseURL, store.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Printf("🗄️ Record store ready (%s)", st.Dialect())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)
	metrics.RegisterDBStats(reg, st.DB(), "pills")

	a := &App{
		Config:    cfg,
		Location:  loc,
		Store:     st,
		Reports:   report.NewService(st, pdf.NewRenderer(cfg.FontPaths()), loc, collector),
		Sessions:  session.NewManager(),
		Limiter:   ratelimit.New(cfg.ReportRatePerMinute, cfg.ReportBurst),
		Scheduler: scheduler.New(loc),
		Registry:  reg,
		Metrics:   collector,
	}
	if err := a.scheduleMaintenance(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) scheduleMaintenance() error {
	ttl := a.Config.SessionTTL
	if err := a.Scheduler.AddJob("session-sweep", a.Config.SweepSchedule, func(ctx context.Context) error {
		if n := a.Sessions.Sweep(ttl); n > 0 {
			log.Printf("🧹 Dropped %d abandoned dialogues", n)
		}
		return nil
	}); err != nil {
		return err
	}
	return a.Scheduler.AddJob("limiter-sweep", a.Config.SweepSchedule, func(ctx context.Context) error {
		a.Limiter.Sweep(time.Hour)
		return nil
	})
}

// Serve runs the bot, the scheduler and the ops server until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Config.ValidateBot(); err != nil {
		return err
	}
	bot, err := telegram.New(a.Config.TelegramBotToken, a.Config.TelegramDebug, telegram.Deps{
		Store:     a.Store,
		Reports:   a.Reports,
		Sessions:  a.Sessions,
		Limiter:   a.Limiter,
		Metrics:   a.Metrics,
		Location:  a.Location,
		ParseMode: a.Config.MessageParseMode,
	})
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	a.Scheduler.Start()
	defer a.Scheduler.Stop()

	opsDone := a.startOps(ctx)

	log.Println("🤖 Бот запущен...")
	bot.Start(ctx)
	// /healthz pings the store, so the server must be down before Close.
	<-opsDone
	return nil
}

// startOps runs the ops server until ctx is cancelled. The returned channel is
// closed once the server has shut down, or immediately when METRICS_ADDR is empty.
func (a *App) startOps(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if a.Config.MetricsAddr == "" {
		close(done)
		return done
	}
	srv := httpserver.New(a.Config.MetricsAddr, httpserver.NewRouter(a.Store, a.Registry))
	go func() {
		defer close(done)
		if err := srv.Run(ctx); err != nil {
			log.Printf("❌ Ops server failed: %v", err)
		}
	}()
	return done
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
