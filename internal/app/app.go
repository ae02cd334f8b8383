package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/julienschmidt/httprouter"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xenking/turfshop/internal/domain/auth"
	"github.com/xenking/turfshop/internal/domain/cart"
	"github.com/xenking/turfshop/internal/domain/draft"
	"github.com/xenking/turfshop/internal/domain/product"
	"github.com/xenking/turfshop/internal/domain/promotion"
	"github.com/xenking/turfshop/internal/domain/submission"
	"github.com/xenking/turfshop/internal/handler"
	"github.com/xenking/turfshop/internal/storage/memory"
	"github.com/xenking/turfshop/internal/storage/postgres"
	"github.com/xenking/turfshop/internal/storage/redis"
	"github.com/xenking/turfshop/internal/storage/static"
	"github.com/xenking/turfshop/internal/whatsapp"
	"github.com/xenking/turfshop/pkg/health"
	"github.com/xenking/turfshop/pkg/httpmiddleware"
)

const (
	sweepInterval = 5 * time.Minute
	senderIdleTTL = 30 * time.Minute
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New(lg.Named("health"))
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))

	// Repositories.
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	submissionRepo := postgres.NewSubmissionRepository(pool)
	codeRepo := postgres.NewDiscountCodeRepository(pool)

	catalog, catalogErr := product.Load(ctx, catalogSource(cfg, pool, m), lg)
	codes := loadCodes(ctx, codeRepo, lg)

	g, ctx := errgroup.WithContext(ctx)

	store, closeStore, err := cartStore(ctx, g, cfg, healthSvc, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	gateway, err := submissionGateway(ctx, g, cfg, submissionRepo, m, lg)
	if err != nil {
		return err
	}

	// Domain services.
	carts := cart.NewService(store, catalog.Lookup, codes, lg.Named("cart"))
	promotions := promotion.NewSelector(promotion.Defaults())
	drafts := draft.NewRegistry(catalog.Lookup, lg.Named("draft"))
	authenticator := auth.NewAuthenticator(apikeyRepo, []byte(cfg.APIKeyPepper))

	h := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL, CatalogErr: catalogErr},
		catalog, carts, promotions, drafts, gateway, authenticator,
	)

	router := httprouter.New()
	h.Register(router)
	router.HandlerFunc(http.MethodGet, "/livez", healthSvc.LiveEndpoint)
	router.HandlerFunc(http.MethodGet, "/readyz", healthSvc.ReadyEndpoint)

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	routeFinder := httpmiddleware.MakeRouteFinder(router)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:          cfg.CORS.Origins,
				Headers:          []string{"Content-Type", "Authorization", handler.APIKeyHeader},
				Expose:           []string{httpmiddleware.RequestIDHeader, "Retry-After", "Location"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("turfshop-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	g.Go(func() error {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

// catalogSource picks the product list origin: a JSON file or URL when
// configured, the products table otherwise.
func catalogSource(cfg *Config, pool *pgxpool.Pool, m *app.Telemetry) product.Repository {
	if cfg.CatalogSource != "" {
		return static.NewSource(cfg.CatalogSource, static.WithTelemetry(m.TracerProvider(), m.MeterProvider()))
	}
	return postgres.NewProductRepository(pool)
}

func loadCodes(ctx context.Context, repo *postgres.DiscountCodeRepository, lg *zap.Logger) cart.Codes {
	codes, err := repo.Codes(ctx)
	if err != nil {
		lg.Warn("Discount codes unavailable, using built-in codes", zap.Error(err))
		return cart.DefaultCodes()
	}
	lg.Info("Discount codes loaded", zap.Int("codes", len(codes)))
	return cart.DefaultCodes().Merge(codes)
}

// cartStore selects Redis when configured, falling back to the in-process
// store whose expired carts are swept in the background.
func cartStore(
	ctx context.Context,
	g *errgroup.Group,
	cfg *Config,
	healthSvc *health.Health,
	lg *zap.Logger,
) (cart.Store, func(), error) {
	if cfg.RedisURL == "" {
		lg.Info("Using in-memory cart store", zap.Duration("ttl", cfg.CartTTL))
		store := memory.NewCartStore(cfg.CartTTL)
		g.Go(func() error {
			every(ctx, sweepInterval, func() {
				if n := store.Sweep(); n > 0 {
					lg.Debug("Expired carts swept", zap.Int("carts", n))
				}
			})
			return nil
		})
		return store, func() {}, nil
	}

	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create redis client")
	}
	healthSvc.AddReadinessCheck("redis", 2*time.Second, health.PingCheck(redisPinger{client}))
	lg.Info("Using redis cart store", zap.Duration("ttl", cfg.CartTTL))
	return redis.NewCartStore(client, cfg.CartTTL), func() {
		if err := client.Close(); err != nil {
			lg.Warn("Redis close error", zap.Error(err))
		}
	}, nil
}

type redisPinger struct {
	client *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// submissionGateway builds the hand-off chain: traced, throttled per
// sender, archived, then rendered into a WhatsApp link.
func submissionGateway(
	ctx context.Context,
	g *errgroup.Group,
	cfg *Config,
	repo submission.Repository,
	m *app.Telemetry,
	lg *zap.Logger,
) (submission.Gateway, error) {
	wa, err := whatsapp.NewGateway(cfg.WhatsApp.Phone, whatsapp.NewRenderer(cfg.WhatsApp.Company, cfg.WhatsApp.Currency, nil))
	if err != nil {
		return nil, errors.Wrap(err, "create whatsapp gateway")
	}

	throttled := submission.NewThrottled(
		submission.NewArchived(wa, repo, lg.Named("submission")),
		rate.Every(cfg.Submission.Rate),
		cfg.Submission.Burst,
	)
	g.Go(func() error {
		every(ctx, senderIdleTTL, func() { throttled.Prune(senderIdleTTL) })
		return nil
	})

	gw, err := submission.NewInstrumented(throttled, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return nil, errors.Wrap(err, "instrument gateway")
	}
	return gw, nil
}

func every(ctx context.Context, d time.Duration, fn func()) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
