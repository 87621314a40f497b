// Command seed loads pre-built blueprint JSON files into the configured
// document and chunk stores.
//
// Usage:
//
//	seed file.json [file.json ...]
//	seed -dir ./blueprints
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"docuchat-ai/internal/app"
	"docuchat-ai/internal/config"
	"docuchat-ai/internal/indexer"
)

func main() {
	dir := flag.String("dir", "", "load every *.json file in this directory")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-dir path] [file.json ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	paths := flag.Args()
	if *dir != "" {
		matches, err := filepath.Glob(filepath.Join(*dir, "*.json"))
		if err != nil {
			log.Fatalf("Invalid directory pattern: %v", err)
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open stores: %v", err)
	}
	defer func() { _ = stores.Close() }()

	embedder, err := app.NewEmbedder(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}

	pipeline := indexer.NewPipeline(stores.DocumentWriter, stores.ChunkWriter, embedder)
	stats, err := pipeline.LoadAll(ctx, paths)
	slog.Info("Seeding finished",
		"docs", stats.DocsProcessed, "failed", stats.DocsFailed, "chunks", stats.ChunksWritten, "duration", stats.Duration)
	if err != nil {
		// log.Fatalf skips deferred calls.
		stop()
		_ = stores.Close()
		log.Fatalf("Seeding completed with errors: %v", err)
	}
}
