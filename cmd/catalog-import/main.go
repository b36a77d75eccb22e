// Command catalog-import loads large gzipped CSV catalog dumps into the
// products table. Several supplier dumps can be imported in one run; files
// are scanned concurrently and a SKU appearing in more than one file is
// imported only once, first occurrence wins.
//
// Row format: sku,name,price,stock
//
// Cross-file deduplication uses a bloom filter, so a small fraction of rows
// (bounded by the configured false positive rate) may be skipped as
// duplicates without being one.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jackc/pgx/v5"

	"github.com/xenking/backoffice/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.0001
	batchSize     = 5_000
	progressEvery = 100_000
)

type row struct {
	sku   string
	name  string
	price decimal.Decimal
	stock int
}

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	files := flag.Args()
	if len(files) == 0 {
		slog.Error("at least one catalog file is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files); err != nil {
		slog.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("import completed")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	rows := make(chan row, batchSize)

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for _, path := range files {
		g.Go(func() error {
			return scanFile(ctx, path, rows)
		})
	}
	go func() {
		_ = g.Wait()
		close(rows)
	}()

	imported, skipped, err := insertRows(ctx, pool, rows)
	if err != nil {
		stop()
		for range rows {
			// drain so scanners can exit
		}
		return err
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("catalog imported",
		slog.Int64("products", imported),
		slog.Int64("duplicates_skipped", skipped),
	)
	return nil
}

// scanFile streams one gzipped CSV file into the rows channel.
func scanFile(ctx context.Context, path string, rows chan<- row) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	gz, err := pgzip.NewReader(bufio.NewReader(f))
	if err != nil {
		return errors.Wrapf(err, "gzip %s", path)
	}
	defer gz.Close()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = 4
	r.ReuseRecord = true

	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}

		price, err := decimal.NewFromString(record[2])
		if err != nil {
			return errors.Wrapf(err, "%s: bad price %q for sku %s", path, record[2], record[0])
		}
		stock, err := strconv.Atoi(record[3])
		if err != nil || stock < 0 {
			return errors.Errorf("%s: bad stock %q for sku %s", path, record[3], record[0])
		}

		select {
		case rows <- row{sku: record[0], name: record[1], price: price, stock: stock}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// insertRows dedups incoming rows and writes them in batches via COPY.
func insertRows(ctx context.Context, pool copyFromPool, rows <-chan row) (imported, skipped int64, err error) {
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	batch := make([][]any, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := pool.CopyFrom(ctx,
			pgx.Identifier{"products"},
			[]string{"id", "name", "price", "stock"},
			pgx.CopyFromRows(batch),
		)
		if err != nil {
			return errors.Wrap(err, "copy products")
		}
		batch = batch[:0]
		return nil
	}

	for r := range rows {
		if seen.TestAndAddString(r.sku) {
			skipped++
			continue
		}
		batch = append(batch, []any{r.sku, r.name, r.price, r.stock})
		imported++
		if imported%progressEvery == 0 {
			slog.Info("progress", slog.Int64("products", imported))
		}
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return imported, skipped, err
			}
		}
	}
	return imported, skipped, flush()
}

// copyFromPool is the slice of pgxpool.Pool the importer needs.
type copyFromPool interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}
