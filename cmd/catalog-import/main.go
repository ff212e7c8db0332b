// Command catalog-import bulk-loads catalog items from JSON-lines files
// (plain or gzip-compressed) into PostgreSQL. Files are decoded
// concurrently and items are upserted by name in batches.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/smartfit-shop/internal/catalogfeed"
	"github.com/xenking/smartfit-shop/internal/domain/catalog"
	"github.com/xenking/smartfit-shop/internal/storage/postgres"
)

const progressEvery = 10_000

func main() {
	var (
		databaseURL string
		batchSize   int
		workers     int
		dryRun      bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", 500, "items upserted per transaction")
	flag.IntVar(&workers, "workers", 4, "files processed concurrently")
	flag.BoolVar(&dryRun, "dry-run", false, "validate files without writing to the database")
	flag.Parse()

	lg := zap.Must(zap.NewProduction())
	defer func() { _ = lg.Sync() }()

	files := flag.Args()
	if len(files) == 0 {
		lg.Fatal("usage: catalog-import [flags] FILE.jsonl[.gz]...")
	}
	if batchSize < 1 || workers < 1 {
		lg.Fatal("batch-size and workers must be positive")
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	imp := &importer{lg: lg, batchSize: batchSize, workers: workers}
	if err := run(ctx, imp, databaseURL, dryRun, files); err != nil {
		lg.Error("Catalog import failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}
	lg.Info("Catalog import completed",
		zap.Int64("items", imp.total.Load()),
		zap.Bool("dry_run", dryRun),
	)
}

func run(ctx context.Context, imp *importer, databaseURL string, dryRun bool, files []string) error {
	if !dryRun {
		pool, err := postgres.NewPool(ctx, databaseURL, int32(imp.workers+1))
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()
		if err := postgres.RunMigrations(pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		imp.store = postgres.NewStore(pool, 0)
	}
	return imp.run(ctx, files)
}

type importer struct {
	lg        *zap.Logger
	store     *postgres.Store // nil in dry-run mode
	batchSize int
	workers   int
	total     atomic.Int64
}

func (imp *importer) run(ctx context.Context, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.workers)
	for _, f := range files {
		g.Go(func() error {
			return imp.importFile(ctx, f)
		})
	}
	return g.Wait()
}

func (imp *importer) importFile(ctx context.Context, path string) error {
	batch := make([]catalog.Item, 0, imp.batchSize)
	var count int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if imp.store != nil {
			if err := imp.store.InTx(ctx, func(ctx context.Context) error {
				return imp.store.Items().Upsert(ctx, batch)
			}); err != nil {
				return errors.Wrapf(err, "upsert batch of %s", path)
			}
		}
		imp.total.Add(int64(len(batch)))
		batch = batch[:0]
		return nil
	}

	err := catalogfeed.ReadFile(ctx, path, func(_ int, it catalog.Item) error {
		batch = append(batch, it)
		count++
		if count%progressEvery == 0 {
			imp.lg.Info("Import progress", zap.String("file", path), zap.Int64("items", count))
		}
		if len(batch) >= imp.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	imp.lg.Info("File imported", zap.String("file", path), zap.Int64("items", count))
	return nil
}
