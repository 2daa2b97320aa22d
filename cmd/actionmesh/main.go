// Command actionmesh is the operator CLI for the action engine: it validates
// function manifests, renders their OpenAPI document, and prefetches module
// archives into the local extraction root.
//
// Usage:
//
//	actionmesh validate <manifest.yaml>
//	actionmesh spec <manifest.yaml>
//	actionmesh prefetch <manifest.yaml>
//
// prefetch reads object store settings from ACTIONMESH_MINIO_* environment
// variables and honors ACTIONMESH_STAGING_DIR, ACTIONMESH_EXTRACT_DIR and
// ACTIONMESH_PREFETCH_TIMEOUT.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/actionmesh-labs/actionmesh-go/engine"
	"github.com/actionmesh-labs/actionmesh-go/handler"
	"github.com/actionmesh-labs/actionmesh-go/internal/platform/env"
	"github.com/actionmesh-labs/actionmesh-go/internal/specgen"
	"github.com/actionmesh-labs/actionmesh-go/objectstore"
	"github.com/actionmesh-labs/actionmesh-go/registry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if len(os.Args) != 3 {
		usage()
		os.Exit(2)
	}
	command, manifestPath := os.Args[1], os.Args[2]

	input, err := os.ReadFile(manifestPath)
	if err != nil {
		logger.Error("read manifest", "path", manifestPath, "error", err)
		os.Exit(2)
	}
	manifest, err := registry.ParseManifest(input)
	if err != nil {
		logger.Error("invalid manifest", "path", manifestPath, "error", err)
		os.Exit(2)
	}

	switch command {
	case "validate":
		fmt.Printf("manifest ok: %d functions\n", len(manifest.Functions))
	case "spec":
		doc, err := specgen.Generate(specgen.Meta{
			Title:    manifest.Title,
			Version:  manifest.Version,
			Servers:  manifest.Servers,
			BasePath: manifest.BasePath,
		}, manifest.Functions)
		if err != nil {
			logger.Error("openapi generation failed", "error", err)
			os.Exit(1)
		}
		fmt.Print(doc)
	case "prefetch":
		if err := prefetch(logger, manifest); err != nil {
			logger.Error("prefetch failed", "error", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func prefetch(logger *slog.Logger, manifest registry.Manifest) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timeout, err := env.Duration("ACTIONMESH_PREFETCH_TIMEOUT", 5*time.Minute)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		return fmt.Errorf("object store config: %w", err)
	}
	store, err := objectstore.New(storeCfg)
	if err != nil {
		return fmt.Errorf("object store client: %w", err)
	}

	// Prefetch needs no handler factories: it only exercises the
	// materializer.
	eng, err := engine.New(engine.Config{
		Logger:     logger,
		Manifest:   manifest,
		Catalog:    handler.NewCatalog(),
		Store:      store,
		Bucket:     storeCfg.Bucket,
		StagingDir: env.String("ACTIONMESH_STAGING_DIR", engine.DefaultStagingDir),
		ExtractDir: env.String("ACTIONMESH_EXTRACT_DIR", engine.DefaultExtractDir),
	})
	if err != nil {
		return err
	}

	if err := eng.Prewarm(ctx); err != nil {
		return err
	}
	logger.Info("modules prefetched", "modules", len(eng.Registry().Modules()))
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: actionmesh <validate|spec|prefetch> <manifest.yaml>")
}
