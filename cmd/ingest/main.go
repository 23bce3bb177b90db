package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"kbchat/internal/app"
	"kbchat/internal/service"
	"kbchat/pkg/config"
	"kbchat/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cacheFile := flag.String("cache", ".ingest_cache.json", "file recording already ingested spreadsheets")
	force := flag.Bool("force", false, "ingest files even if unchanged since the last run")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] file.xlsx|file.csv ...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.NewIngestDependencies(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}
	defer deps.Close()

	appLogger.Info("Starting knowledge ingestion", zap.Int("files", flag.NArg()))

	failed, err := ingestFiles(ctx, flag.Args(), *cacheFile, *force, deps.Ingest, appLogger)
	if err != nil {
		appLogger.Fatal("Knowledge ingestion failed", zap.Error(err))
	}
	if failed > 0 {
		appLogger.Error("Some files could not be ingested", zap.Int("failed_files", failed))
		os.Exit(1)
	}

	appLogger.Info("Knowledge ingestion completed")
}

// ingestFiles imports each file unless the cache shows it unchanged. A file
// that stored no entries counts as failed and is not cached. It returns how
// many files failed; only a cache write failure is an error.
func ingestFiles(
	ctx context.Context,
	paths []string,
	cacheFile string,
	force bool,
	ingest *service.IngestService,
	logger *zap.Logger,
) (int, error) {
	cache, err := loadCache(cacheFile)
	if err != nil {
		logger.Warn("Failed to load cache, will ingest all files", zap.Error(err))
		cache = newCache()
	}

	failed := 0
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}

		fileHash, err := calculateFileHash(path)
		if err != nil {
			logger.Error("Failed to read file", zap.String("path", path), zap.Error(err))
			failed++
			continue
		}

		if !force && cache.Unchanged(path, fileHash) {
			logger.Info("File already ingested, skipping",
				zap.String("path", path),
				zap.Time("ingested_at", cache.IngestedFiles[path].IngestedAt),
			)
			continue
		}

		result, err := importFile(ctx, ingest, path)
		if err != nil {
			if errors.Is(err, service.ErrNoValidEntries) {
				logger.Warn("No valid entries found", zap.String("path", path))
			} else {
				logger.Error("Failed to ingest file", zap.String("path", path), zap.Error(err))
			}
			failed++
			continue
		}

		logger.Info("File ingested",
			zap.String("path", path),
			zap.Int("added", result.Added),
			zap.Int("failed", result.Failed),
			zap.Int("total", result.Total),
		)

		if result.Added == 0 {
			logger.Error("No entries could be embedded, file left for the next run",
				zap.String("path", path),
				zap.Int("failed", result.Failed),
			)
			failed++
			continue
		}
		if result.Failed > 0 {
			logger.Warn("Some entries were not embedded; rerun with -force after fixing the provider",
				zap.String("path", path),
				zap.Int("failed", result.Failed),
			)
		}
		cache.IngestedFiles[path] = IngestedFile{
			FilePath:      path,
			FileHash:      fileHash,
			EntriesAdded:  result.Added,
			EntriesFailed: result.Failed,
			IngestedAt:    time.Now().UTC(),
		}
	}

	if err := saveCache(cacheFile, cache); err != nil {
		return failed, err
	}
	return failed, nil
}

func importFile(ctx context.Context, ingest *service.IngestService, path string) (*service.IngestResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ingest.ImportFile(ctx, file, filepath.Base(path))
}
