package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	digestagent "github.com/newsdigest-agent/internal/agent/digest"
	"github.com/newsdigest-agent/internal/config"
	"github.com/newsdigest-agent/internal/digest"
	"github.com/newsdigest-agent/internal/handlers"
	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/scheduler"
	"github.com/newsdigest-agent/internal/source"
	"github.com/newsdigest-agent/internal/source/newsdata"
	"github.com/newsdigest-agent/internal/source/rss"
	"github.com/newsdigest-agent/internal/storage"
	"github.com/newsdigest-agent/internal/storage/sqlite"
	"github.com/newsdigest-agent/internal/whatsapp"
	"github.com/newsdigest-agent/pkg/logger"
	"github.com/newsdigest-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newsbot-server",
		Short: "WhatsApp news digest daemon",
		Long: `Runs the scheduled news delivery loop together with the operator
control surface (configure, start/stop, test send, delivery logs).`,
		RunE: runServer,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting WhatsApp News Digest server")

	// Initialize storage
	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize rate limiter
	limiter := ratelimit.NewDefaultLimiter()

	// Upstream clients. Credentials are re-read from the environment
	// on every call.
	newsClient := newsdata.NewClient(func() string {
		return config.CredentialsFromEnv().NewsDataAPIKey
	}, limiter, log)

	resolve := func(c *models.DigestConfig) source.ArticleSource {
		if c.Provider == models.ProviderRSS {
			return rss.New(c.FeedURL, limiter, log)
		}
		return newsClient
	}

	sender := whatsapp.NewClient(config.CredentialsFromEnv, limiter, log)

	// Delivery loop
	agent := digestagent.NewAgent(resolve, digest.NewFormatter(), sender, log)
	sched := scheduler.New(repo, agent, config.CredentialsFromEnv, log)
	sched.SetTimings(
		parseDuration(cfg.Scheduler.DefaultInterval, scheduler.DefaultInterval),
		parseDuration(cfg.Scheduler.Tick, scheduler.DefaultTick),
		parseDuration(cfg.Scheduler.FaultCooldown, scheduler.DefaultCooldown),
	)

	// Log retention maintenance job
	var maintenance *cron.Cron
	if cfg.Retention.Enabled {
		maintenance = cron.New(cron.WithLogger(cronLogger{log}))
		maxAge := time.Duration(cfg.Retention.MaxAgeDays) * 24 * time.Hour
		_, err = maintenance.AddFunc(cfg.Retention.CleanupCron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			pruned, err := repo.PruneLogsBefore(ctx, time.Now().Add(-maxAge))
			if err != nil {
				log.Error().Err(err).Msg("Log retention cleanup failed")
				return
			}
			log.Info().Int64("pruned", pruned).Msg("Log retention cleanup completed")
		})
		if err != nil {
			return fmt.Errorf("failed to schedule cleanup job: %w", err)
		}
		maintenance.Start()
		log.Info().Str("cron", cfg.Retention.CleanupCron).Msg("Cleanup job scheduled")
	}

	// Control surface
	router := newRouter(sched)
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Control surface listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down")

	if maintenance != nil {
		maintenance.Stop()
	}
	if sched.Running() {
		_ = sched.Stop()
		sched.Wait()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newRouter builds the control surface router
func newRouter(sched *scheduler.Scheduler) http.Handler {
	botHandler := &handlers.BotHandler{Scheduler: sched, Repo: repo, Log: log}
	configHandler := &handlers.ConfigHandler{Repo: repo, Log: log}
	logsHandler := &handlers.LogsHandler{Repo: repo, Log: log}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", handlers.Health)
	r.Get("/api/status", botHandler.Status)
	r.Post("/api/bot/start", botHandler.Start)
	r.Post("/api/bot/stop", botHandler.Stop)
	r.Post("/api/bot/test", botHandler.Test)
	r.Get("/api/config", configHandler.Get)
	r.Post("/api/config", configHandler.Save)
	r.Get("/api/logs", logsHandler.List)
	r.Delete("/api/logs", logsHandler.Clear)

	return r
}

// parseDuration parses a config duration, falling back on bad input
func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Msgf(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Msgf(msg, keysAndValues...)
}
