package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/turfshop/db"
	"github.com/xenking/turfshop/internal/domain/auth"
	"github.com/xenking/turfshop/internal/domain/cart"
	"github.com/xenking/turfshop/internal/domain/product"
	"github.com/xenking/turfshop/internal/storage/postgres"
)

type options struct {
	databaseURL  string
	productsFile string
	apiKey       string
	apiKeyPepper string
	brokerID     string
	brokerName   string
	brokerEmail  string
	codes        bool
}

func main() {
	var opts options

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "", "path to products JSON file; embedded catalog when empty")
	flag.StringVar(&opts.apiKey, "api-key", "", "broker API key to seed (or TURF_SEED_API_KEY env)")
	flag.StringVar(&opts.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or TURF_API_KEY_PEPPER env)")
	flag.StringVar(&opts.brokerID, "broker-id", "default", "id of the seeded broker")
	flag.StringVar(&opts.brokerName, "broker-name", "Default Broker", "display name of the seeded broker")
	flag.StringVar(&opts.brokerEmail, "broker-email", "broker@example.com", "email of the seeded broker")
	flag.BoolVar(&opts.codes, "codes", true, "seed the built-in discount codes")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if opts.apiKey == "" {
		opts.apiKey = os.Getenv("TURF_SEED_API_KEY")
	}
	if opts.apiKeyPepper == "" {
		opts.apiKeyPepper = os.Getenv("TURF_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, opts options) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), opts.productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if opts.codes {
		if err := seedCodes(ctx, postgres.NewDiscountCodeRepository(pool)); err != nil {
			return errors.Wrap(err, "seed discount codes")
		}
	}

	if opts.apiKey == "" {
		slog.Info("no API key given, skipping broker seed")
		return nil
	}
	broker := &auth.Broker{
		ID:      opts.brokerID,
		KeyHash: auth.HashKey([]byte(opts.apiKeyPepper), opts.apiKey),
		Name:    opts.brokerName,
		Email:   opts.brokerEmail,
		Scopes:  []string{auth.ScopeDrafts},
	}
	if err := postgres.NewAPIKeyRepository(pool).Upsert(ctx, broker); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	slog.Info("upserted broker", slog.String("id", broker.ID), slog.String("name", broker.Name))

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, path string) error {
	data := db.Products
	if path != "" {
		slog.Info("reading products file", slog.String("path", path))

		var err error
		if data, err = os.ReadFile(path); err != nil {
			return errors.Wrap(err, "read products file")
		}
	}

	products, err := product.ParseList(data)
	if err != nil {
		return err
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCodes(ctx context.Context, repo *postgres.DiscountCodeRepository) error {
	codes := cart.DefaultCodes()
	if err := repo.UpsertBatch(ctx, codes); err != nil {
		return err
	}
	for code, rate := range codes {
		slog.Info("upserted discount code", slog.String("code", code), slog.String("rate", rate.String()))
	}
	return nil
}
