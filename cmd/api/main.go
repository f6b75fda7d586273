package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sterling-dialer/internal/appointments"
	"sterling-dialer/internal/audit"
	"sterling-dialer/internal/auth"
	"sterling-dialer/internal/billing"
	"sterling-dialer/internal/calls"
	"sterling-dialer/internal/campaign"
	"sterling-dialer/internal/config"
	"sterling-dialer/internal/db"
	"sterling-dialer/internal/dialer"
	"sterling-dialer/internal/httpapi"
	"sterling-dialer/internal/leads"
	"sterling-dialer/internal/pipeline"
	"sterling-dialer/internal/pricing"
	"sterling-dialer/internal/reporting"
	"sterling-dialer/internal/scheduling"
	"sterling-dialer/internal/telephony"
	"sterling-dialer/internal/usage"
	"sterling-dialer/internal/users"
	"sterling-dialer/internal/wallet"
	"sterling-dialer/pkg/logger"
	"sterling-dialer/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	pg, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxOpenConns: cfg.DB.MaxOpenConns})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	if err := db.Migrate(rootCtx, pg, log); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Repositories
	leadRepo := leads.NewPostgresRepo(pg)
	callRepo := calls.NewPostgresRepo(pg)
	walletRepo := wallet.NewPostgresRepo(pg)
	campaignRepo := campaign.NewPostgresRepo(pg)
	profileRepo := users.NewPostgresRepo(pg)

	// Outbound clients
	retell := telephony.NewClient(cfg.Retell.BaseURL, cfg.Retell.APIKey, cfg.Retell.Timeout, cfg.Retell.RatePerSecond)
	bookings := scheduling.NewClient(cfg.Scheduling.BaseURL, cfg.Scheduling.Timeout)
	var charger billing.Charger
	if cfg.Stripe.SecretKey != "" {
		charger = billing.NewStripeCharger(cfg.Stripe.SecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set; auto-refill disabled")
	}

	// Continuation queue
	queue := dialer.NewQueue(
		dialer.NewHTTPTrigger(cfg.NextCall.URL, cfg.NextCall.Secret, cfg.NextCall.Timeout),
		dialer.Options{
			Workers:  cfg.NextCall.Workers,
			Attempts: cfg.NextCall.Attempts,
			Backoff:  cfg.NextCall.Backoff,
			Timeout:  cfg.NextCall.Timeout,
		},
		log.With("component", "dialer"),
	)
	queue.Start(rootCtx)

	// Services
	walletSvc := wallet.NewService(walletRepo, cfg.Pipeline.RefillFloor)
	campaignSvc := campaign.NewService(campaignRepo)
	auditSvc := audit.NewService(audit.NewPostgresRepo(pg))

	processor := pipeline.NewProcessor(pipeline.Deps{
		Users:        profileRepo,
		Leads:        leads.NewLedger(leadRepo),
		Calls:        callRepo,
		Pricing:      pricing.NewService(pricing.NewPostgresRepo(pg)),
		Wallet:       walletSvc,
		Charger:      charger,
		Campaign:     campaignSvc,
		Orchestrator: campaign.NewOrchestrator(campaignRepo, queue, log.With("component", "orchestrator")),
		Usage:        usage.NewRecorder(usage.NewPostgresRepo(pg), cfg.Location()),
		Appointments: appointments.NewReconciler(
			appointments.NewPostgresRepo(pg),
			bookings,
			cfg.Pipeline.GracePeriod,
			cfg.Pipeline.RecentWindow,
			log.With("component", "appointments"),
		),
		Placer:   retell,
		Audit:    auditSvc,
		Locker:   pipeline.NewRedisLocker(rdb, cfg.Pipeline.LockTTL),
		Deduper:  pipeline.NewRedisDeduper(rdb, cfg.Pipeline.DedupeTTL),
		Tx:       pipeline.NewPostgresTx(pg),
		Location: cfg.Location(),
		Timeout:  cfg.Pipeline.ProcessTimeout,
		Log:      log.With("component", "pipeline"),
	})

	h := httpapi.Handlers{
		Auth:       authManager,
		Wallet:     walletSvc,
		Campaign:   campaignSvc,
		Dispatcher: queue,
		Reports:    reporting.NewService(callRepo, walletRepo),
		Users:      profileRepo,
		Audit:      auditSvc,
		Webhooks:   processor,
		Location:   cfg.Location(),
		DevLogin:   cfg.App.Env == "local" || cfg.App.Env == "dev",
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager), healthCheck(pg, rdb))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Booked calls wait out the scheduler grace period before responding.
		WriteTimeout: cfg.Pipeline.ProcessTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	queue.Close()
	log.Info("shutdown complete")
}
