// cmd/web/main.go
//
// Tenancy service – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load config (conf/.env → conf/global.yaml → TENANCY_* env).
//
//  2. Start the daily rotating logger (tees to console in a TTY).
//
//  3. Connect to Vault when any secret is a "vault:" reference.
//
//  4. Open the control-plane DB and log how many tenants can serve.
//
//  5. Build the tenant pool, router, and directory, plus the token
//     authenticator and heartbeat ingestor.
//
//  6. Compose the handler chain:
//
//     ForceHTTPS → Security → requestinfo.Enrich → Tenancy
//
//     Tenancy sends platform hosts to the platform router (/metrics,
//     /healthz, agent API) and tenant hosts through the gate to the
//     tenant router.
//
//  7. Serve until SIGINT/SIGTERM, then drain.  SIGHUP reloads config.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/tenancy/components/agent"
	"github.com/yanizio/tenancy/components/home"
	"github.com/yanizio/tenancy/internal/config"
	"github.com/yanizio/tenancy/internal/database"
	"github.com/yanizio/tenancy/internal/heartbeat"
	"github.com/yanizio/tenancy/internal/logger"
	"github.com/yanizio/tenancy/internal/middleware"
	"github.com/yanizio/tenancy/internal/requestinfo"
	"github.com/yanizio/tenancy/internal/server"
	"github.com/yanizio/tenancy/internal/tenant"
	"github.com/yanizio/tenancy/internal/tenant/meta"
	"github.com/yanizio/tenancy/internal/token"
	"github.com/yanizio/tenancy/internal/vault"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	if err := run(); err != nil {
		zap.S().Errorw("fatal", "err", err)
		_ = zap.L().Sync()
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logDir := cfg.Logging.Dir
	if logDir == "" {
		logDir = filepath.Join(cfg.Paths.Root, "logs")
	}
	lg, err := logger.New(logger.Options{
		Dir:   logDir,
		Level: cfg.Logging.Level,
		Tee:   cfg.Logging.Tee || runningInTTY(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ----------------------------------------------------------------
	// Secrets
	// ----------------------------------------------------------------
	var secrets tenant.SecretResolver
	if os.Getenv("VAULT_ADDR") != "" || vault.IsRef(cfg.Database.GlobalPassword) || vault.IsRef(cfg.Database.DefaultPassword) {
		vc, err := vault.New(ctx, lg.Infof)
		if err != nil {
			return err
		}
		secrets = vc
	}
	resolve := func(s string) (string, error) {
		if secrets == nil {
			return s, nil
		}
		return secrets.Resolve(ctx, s)
	}
	globalPW, err := resolve(cfg.Database.GlobalPassword)
	if err != nil {
		return fmt.Errorf("database.global_password: %w", err)
	}
	defaultPW, err := resolve(cfg.Database.DefaultPassword)
	if err != nil {
		return fmt.Errorf("database.default_password: %w", err)
	}

	// ----------------------------------------------------------------
	// Control plane
	// ----------------------------------------------------------------
	db, err := database.OpenWithOptions(ctx, cfg.Database.GlobalDriver,
		cfg.Database.ControlPlaneDSN(globalPW), database.DefaultOptions)
	if err != nil {
		return fmt.Errorf("control plane: %w", err)
	}
	defer db.Close()

	if n, err := meta.CountServing(ctx, db); err != nil {
		lg.Warnw("serving tenant count unavailable", "err", err)
	} else {
		lg.Infow("control plane ready", "serving_tenants", n)
	}

	if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
		lg.Warnw("geo lookup disabled", "err", err)
	}
	defer requestinfo.CloseGeo()

	// ----------------------------------------------------------------
	// Tenancy core
	// ----------------------------------------------------------------
	pool := tenant.NewPool(tenant.PoolOptions{
		IdleTTL:    cfg.Pool.IdleTTL,
		MaxEntries: cfg.Pool.MaxEntries,
		DB: database.Options{
			MaxOpenConns:    cfg.Pool.MaxOpen,
			MaxIdleConns:    cfg.Pool.MaxIdle,
			ConnMaxLifetime: cfg.Pool.ConnMaxLifetime,
		},
	}, lg)
	pool.Start(tenant.EvictInterval)
	defer pool.Close()

	router := tenant.NewRouter(pool, tenant.DefaultsFromConfig(cfg.Database, defaultPW), secrets, lg)
	directory := tenant.NewDirectory(db)

	authn := token.NewAuthenticator(token.NewSQLStore(db), clock.New(), lg)
	ingestor := heartbeat.NewIngestor(heartbeat.NewSQLRecorder(db, nil), lg)

	// ----------------------------------------------------------------
	// Routers
	// ----------------------------------------------------------------
	agentRoutes := (&agent.Component{
		Auth:      authn,
		Directory: directory,
		Ingestor:  ingestor,
		Log:       lg,
	}).Routes()

	platform := chi.NewRouter()
	platform.Use(chimw.Recoverer)
	platform.Handle("/metrics", promhttp.Handler())
	platform.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "control plane unreachable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	platform.Mount("/api/agent", agentRoutes)
	platform.Mount("/", agentRoutes)

	tenantRoutes := chi.NewRouter()
	tenantRoutes.Use(chimw.Recoverer)
	tenantRoutes.Mount("/", (&home.Component{Log: lg}).Routes())

	tenancy := &middleware.Tenancy{
		Domains:   func() []string { return config.Get().Tenancy.BaseDomains },
		Directory: directory,
		Router:    router,
		Platform:  platform,
		Log:       lg,
	}

	handler := middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS,
		middleware.Security(
			requestinfo.Enrich(lg, tenancy.Wrap(tenantRoutes))))

	// SIGHUP reloads config.  Base domains apply on the next request;
	// listener and pool settings need a restart.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := config.Reload(); err != nil {
					lg.Errorw("config reload failed", "err", err)
				}
			}
		}
	}()

	return server.Run(ctx, server.New(cfg.HTTP.ListenAddr, handler), lg)
}
