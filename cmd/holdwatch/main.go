package main

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/holdwatch/holdwatch/internal/api"
	"github.com/holdwatch/holdwatch/internal/auth"
	"github.com/holdwatch/holdwatch/internal/config"
	"github.com/holdwatch/holdwatch/internal/database"
	"github.com/holdwatch/holdwatch/internal/ledger"
	"github.com/holdwatch/holdwatch/internal/pricing"
	"github.com/holdwatch/holdwatch/internal/ratelimit"
	"github.com/holdwatch/holdwatch/internal/tracker"
	"github.com/holdwatch/holdwatch/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	app := &cli.App{
		Name:  "holdwatch",
		Usage: "personal investment tracker with automatic price refresh",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Usage:   "HTTP listen port",
				EnvVars: []string{"HTTP_PORT"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "directory for per-user CSV ledgers",
				EnvVars: []string{"DATA_DIR"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL URL; when set, snapshots are stored in Postgres instead of CSV",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "static-dir",
				Usage:   "directory of static frontend files to serve at /",
				EnvVars: []string{"STATIC_DIR"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if v := c.String("port"); v != "" {
		cfg.HTTPPort = v
	}
	if v := c.String("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v := c.String("database-url"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := c.String("static-dir"); v != "" {
		cfg.StaticDir = v
	}

	// Snapshot storage: Postgres when configured, CSV files otherwise.
	var repo ledger.Repository
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		migrationsSub, err := fs.Sub(migrationsFS, "migrations")
		if err != nil {
			return err
		}
		if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
			return err
		}

		repo = ledger.NewPgRepository(pool)
	} else {
		csvRepo, err := ledger.NewCSVRepository(cfg.DataDir)
		if err != nil {
			return err
		}
		repo = csvRepo
	}

	resolver := pricing.NewResolver(pricing.Config{
		YahooURL:          cfg.YahooURL,
		AlphaVantageURL:   cfg.AlphaVantageURL,
		AlphaVantageKey:   cfg.AlphaVantageKey,
		CommoditiesURL:    cfg.CommoditiesURL,
		CommoditiesKey:    cfg.CommoditiesKey,
		CoinGeckoURL:      cfg.CoinGeckoURL,
		CoinGeckoDelay:    cfg.CoinGeckoDelay,
		CoinGeckoRetryMax: cfg.CoinGeckoRetryMax,
		Timeout:           cfg.ProviderTimeout,
	})

	limiter := ratelimit.New(ratelimit.NewMemoryStore(), cfg.RateLimitWindow)
	trackerSvc := tracker.NewService(repo, resolver, limiter, cfg.StaleAfter)

	sessions := auth.NewSessionStore(cfg.SessionTTL)
	authn := auth.NewAuthenticator(sessions, cfg.DevUser)
	google := auth.NewGoogleHandler(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, sessions)
	if google == nil {
		log.Println("Google OAuth not configured, /auth/google is disabled")
	}
	if cfg.DevUser != "" {
		log.Printf("DEV_USER set, all requests run as %q", cfg.DevUser)
	}

	refreshWorker := worker.NewRefreshWorker(trackerSvc, repo, cfg.SweepInterval)
	go refreshWorker.Run(ctx)

	handler := api.NewHandler(trackerSvc, resolver, authn)
	srv := api.NewServer(cfg.HTTPPort, handler, authn, sessions, google, cfg.StaticDir)

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
