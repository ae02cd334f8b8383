// Command code-ingest loads partner discount code lists into the
// discount_codes table. Lists are gzip files with one code per line; a code
// becomes active when it appears in at least --min-files of them.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/turfshop/internal/domain/cart"
	"github.com/xenking/turfshop/internal/storage/postgres"
)

const (
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	batchSize     = 1000
	minCodeLen    = 4
	maxCodeLen    = 16
	maxFiles      = 64
)

type options struct {
	pattern     string
	databaseURL string
	rate        string
	minFiles    int
	capacity    uint
}

func main() {
	var opts options

	flag.StringVar(&opts.pattern, "files", "data/codes*.gz", "glob matching gzip code lists")
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.rate, "rate", "0.1", "discount rate in [0, 1] granted by ingested codes")
	flag.IntVar(&opts.minFiles, "min-files", 2, "number of lists a code must appear in")
	flag.UintVar(&opts.capacity, "capacity", 10_000_000, "expected codes per list, sizes the bloom filters")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("code ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("code ingest completed successfully")
}

func run(ctx context.Context, opts options) error {
	rate, err := decimal.NewFromString(opts.rate)
	if err != nil {
		return errors.Wrap(err, "parse rate")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.Errorf("rate %s outside [0, 1]", rate)
	}

	files, err := filepath.Glob(opts.pattern)
	if err != nil {
		return errors.Wrap(err, "match files")
	}
	switch {
	case len(files) == 0:
		return errors.Errorf("no files match %q", opts.pattern)
	case len(files) > maxFiles:
		return errors.Errorf("%d files exceed the limit of %d", len(files), maxFiles)
	case opts.minFiles < 1 || opts.minFiles > len(files):
		return errors.Errorf("min-files must be within [1, %d]", len(files))
	}

	var codes []string
	if opts.minFiles == 1 {
		slog.Info("collecting codes", slog.Int("files", len(files)))
		codes, err = collectCodes(ctx, files)
	} else {
		// Pass 1: one bloom filter per list.
		slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))
		var filters []*bloom.BloomFilter
		filters, err = buildBloomFilters(ctx, files, opts.capacity)
		if err != nil {
			return errors.Wrap(err, "build bloom filters")
		}

		// Pass 2: keep codes seen in enough lists.
		slog.Info("pass 2: finding shared codes")
		codes, err = findSharedCodes(ctx, files, filters, opts.minFiles)
	}
	if err != nil {
		return errors.Wrap(err, "scan code lists")
	}

	slog.Info("valid codes found", slog.Int("count", len(codes)))
	if len(codes) == 0 {
		slog.Info("no valid codes to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeCodes(ctx, postgres.NewDiscountCodeRepository(pool), codes, rate); err != nil {
		return errors.Wrap(err, "write codes to database")
	}

	return nil
}

// normalizeCode trims a list line and reports whether it looks like a code.
func normalizeCode(line string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(line))
	if len(code) < minCodeLen || len(code) > maxCodeLen {
		return "", false
	}
	return code, true
}

func collectCodes(ctx context.Context, files []string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, f := range files {
		if err := streamGzFile(ctx, f, func(line string) {
			if code, ok := normalizeCode(line); ok {
				seen[code] = struct{}{}
			}
		}); err != nil {
			return nil, err
		}
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	return codes, nil
}

// buildBloomFilters creates one bloom filter per file, concurrently.
func buildBloomFilters(ctx context.Context, files []string, capacity uint) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(capacity, bloomFPR)
			var count uint64

			if err := streamGzFile(ctx, f, func(line string) {
				code, ok := normalizeCode(line)
				if !ok {
					return
				}
				filter.AddString(code)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.String("file", f), slog.Uint64("codes", count))
				}
			}); err != nil {
				return errors.Wrapf(err, "build filter for %s", f)
			}

			slog.Info("pass 1 complete", slog.String("file", f), slog.Uint64("total_codes", count))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findSharedCodes re-streams each file and marks every code with the lists
// whose bloom filter contains it. Codes whose own list plus matches reach
// minFiles are kept.
func findSharedCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter, minFiles int) ([]string, error) {
	results := make([]map[string]uint64, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			candidates := make(map[string]uint64)
			var count uint64

			if err := streamGzFile(ctx, f, func(line string) {
				code, ok := normalizeCode(line)
				if !ok {
					return
				}
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 2 progress", slog.String("file", f), slog.Uint64("codes", count))
				}

				mask := uint64(1) << uint(i)
				for j, other := range filters {
					if j != i && other.TestString(code) {
						mask |= uint64(1) << uint(j)
					}
				}
				if bits.OnesCount64(mask) >= minFiles {
					candidates[code] |= uint64(1) << uint(i)
				}
			}); err != nil {
				return errors.Wrapf(err, "scan %s for candidates", f)
			}

			slog.Info("pass 2 complete",
				slog.String("file", f),
				slog.Uint64("total_codes", count),
				slog.Int("candidates", len(candidates)),
			)
			results[i] = candidates
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Bloom hits can be false positives; only count lists that really
	// contained the code.
	merged := make(map[string]uint64)
	for _, r := range results {
		for code, mask := range r {
			merged[code] |= mask
		}
	}

	var valid []string
	for code, mask := range merged {
		if bits.OnesCount64(mask) >= minFiles {
			valid = append(valid, code)
		}
	}
	return valid, nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// writeCodes upserts codes in batches.
func writeCodes(ctx context.Context, repo *postgres.DiscountCodeRepository, codes []string, rate decimal.Decimal) error {
	slog.Info("writing codes to database", slog.Int("count", len(codes)), slog.String("rate", rate.String()))

	for start := 0; start < len(codes); start += batchSize {
		end := min(start+batchSize, len(codes))

		batch := make(cart.Codes, end-start)
		for _, code := range codes[start:end] {
			batch[code] = rate
		}
		if err := repo.UpsertBatch(ctx, batch); err != nil {
			return err
		}

		slog.Info("write progress", slog.Int("written", end), slog.Int("total", len(codes)))
	}
	return nil
}
