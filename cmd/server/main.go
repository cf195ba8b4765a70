package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/controllers/http"
	"storefront/internal/infra"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/database"
	"storefront/internal/infra/events"
	"storefront/internal/infra/payment"
	"storefront/internal/infra/ratelimit"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	"storefront/internal/repository"
	"storefront/internal/repository/memory"
	mysqlrepo "storefront/internal/repository/mysql"
	"storefront/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 15 * time.Second
	warmupLimit     = 100
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront API: catalog, carts, checkout and orders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.toml", "Path to the TOML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := setup(configPath)
				if err != nil {
					return err
				}
				return serve(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := setup(configPath)
				if err != nil {
					return err
				}
				return migrate(cmd.Context(), cfg)
			},
		},
		createAdminCmd(&configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func createAdminCmd(configPath *string) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, cleanup, err := openStore(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer cleanup()

			user, err := services.NewAuthService(store.Users, cfg.Auth).CreateAdmin(ctx, email, password, name)
			if err != nil {
				return err
			}
			logger.Info(ctx, "admin created", "user_id", user.ID, "email", user.Email)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&email, "email", "", "Admin email")
	f.StringVar(&password, "password", "", "Admin password")
	f.StringVar(&name, "name", "Administrator", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func setup(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logger); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, nil
}

// openStore picks the repository backend. The memory store keeps nothing
// across restarts.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (*repository.Store, func(), error) {
	if cfg.Driver == "memory" {
		logger.Warn(ctx, "using in-memory store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = database.Close(db)
			return nil, nil, err
		}
	}
	cleanup := func() {
		if err := database.Close(db); err != nil {
			logger.Error(ctx, "failed to close database", "error", err)
		}
	}
	return mysqlrepo.NewStore(db, sql.LevelReadCommitted), cleanup, nil
}

func migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.Driver == "memory" {
		return errors.New("migrate needs a mysql or postgres database")
	}
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	logger.Info(ctx, "schema migrated", "driver", cfg.Database.Driver)
	return nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, cleanup, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer cleanup()

	var (
		rdb          *redis.Client
		productCache infra.ProductCache
		limiter      ratelimit.Limiter
	)
	if cfg.Redis.Enabled {
		rdb, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		productCache = cache.NewProductCache(rdb, cfg.Redis.ProductTTL)
		limiter = ratelimit.NewRedisLimiter(rdb)
	}

	publisher, closePublisher, err := events.New(cfg.Events)
	if err != nil {
		return err
	}
	defer func() {
		if err := closePublisher(); err != nil {
			logger.Error(ctx, "failed to close event publisher", "error", err)
		}
	}()

	m := metrics.New()
	auth := services.NewAuthService(store.Users, cfg.Auth)
	catalog := services.NewCatalogService(store, productCache, m)
	carts := services.NewCartService(store)
	orders := services.NewOrderService(store, carts, payment.New(cfg.Payment), publisher, productCache, m)

	handler := http.NewHandler(http.Deps{
		Auth:    auth,
		Catalog: catalog,
		Carts:   carts,
		Orders:  orders,
		Metrics: m,
		Limiter: limiter,
		Health:  healthCheck(store, rdb),
	}, http.Options{
		CORSOrigin:    cfg.HTTP.CORSOrigin,
		WebhookSecret: cfg.Payment.WebhookSecret,
		MetricsPath:   cfg.Metrics.Path,
		RateLimit:     cfg.RateLimit,
	})

	gin.SetMode(gin.ReleaseMode)
	srv := &stdhttp.Server{
		Addr:         ":" + strconv.Itoa(cfg.HTTP.Port),
		Handler:      http.NewRouter(handler),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(gctx, "http server listening", "addr", srv.Addr, "service", cfg.ServiceName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := catalog.WarmupCache(gctx, warmupLimit); err != nil {
			logger.Warn(gctx, "product cache warmup failed", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info(shutdownCtx, "shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// healthCheck pings redis when configured and runs a cheap read against the store.
func healthCheck(store *repository.Store, rdb *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		if _, err := store.Categories.List(ctx); err != nil {
			return fmt.Errorf("store: %w", err)
		}
		return nil
	}
}
