// Package engine is the action engine facade: it resolves request paths to
// registered action functions, materializes the backing module from object
// storage on first use, instantiates the owning handler with merged
// configuration, invokes the function, and normalizes the result.
//
// One Engine is built per configuration at startup and is safe for
// concurrent dispatches. There is no global state: multiple independently
// configured engines can coexist in a process.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/actionmesh-labs/actionmesh-go/handler"
	"github.com/actionmesh-labs/actionmesh-go/internal/materialize"
	"github.com/actionmesh-labs/actionmesh-go/internal/specgen"
	"github.com/actionmesh-labs/actionmesh-go/registry"
)

// Default filesystem locations for module archives and extracted code.
const (
	DefaultStagingDir = "/tmp/actionmesh/archives"
	DefaultExtractDir = "/tmp/actionmesh/modules"
)

// ObjectStore is the remote archive source the engine fetches module
// archives from, stored as "<module_name>.zip" objects.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket string, key string) (io.ReadCloser, error)
}

// Config assembles an Engine. Manifest, Catalog, Store and Bucket are
// required; directories and Logger default when empty.
type Config struct {
	Logger     *slog.Logger
	Manifest   registry.Manifest
	Catalog    *handler.Catalog
	Store      ObjectStore
	Bucket     string
	StagingDir string
	ExtractDir string
}

// Engine executes action functions declared in a manifest. Immutable after
// New except for the append-only module search path.
type Engine struct {
	logger       *slog.Logger
	registry     *registry.Registry
	catalog      *handler.Catalog
	materializer *materialize.Materializer
	baseConfig   map[string]any
	meta         specgen.Meta

	pathsMu     sync.Mutex
	modulePaths []string
	pathSeen    map[string]struct{}
}

// New validates cfg, compiles the manifest's function table and prepares
// the materializer. The manifest must already satisfy Manifest.Validate.
func New(cfg Config) (*Engine, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("engine config: catalog is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("engine config: store is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("engine config: bucket is required")
	}
	if err := cfg.Manifest.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: manifest: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stagingDir := cfg.StagingDir
	if stagingDir == "" {
		stagingDir = DefaultStagingDir
	}
	extractDir := cfg.ExtractDir
	if extractDir == "" {
		extractDir = DefaultExtractDir
	}

	reg, err := registry.New(cfg.Manifest.Functions)
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	mat, err := materialize.New(materialize.Config{
		Store:      cfg.Store,
		Bucket:     cfg.Bucket,
		StagingDir: stagingDir,
		ExtractDir: extractDir,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	return &Engine{
		logger:       logger,
		registry:     reg,
		catalog:      cfg.Catalog,
		materializer: mat,
		baseConfig:   cfg.Manifest.Configuration,
		meta: specgen.Meta{
			Title:    cfg.Manifest.Title,
			Version:  cfg.Manifest.Version,
			Servers:  cfg.Manifest.Servers,
			BasePath: cfg.Manifest.BasePath,
		},
		pathSeen: make(map[string]struct{}),
	}, nil
}

// Registry exposes the compiled function table, e.g. for transports that
// list available operations.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// OpenAPI renders the OpenAPI document describing every registered
// function. Deterministic for a given manifest.
func (e *Engine) OpenAPI() (string, error) {
	return specgen.Generate(e.meta, e.registry.Functions())
}

// Prewarm materializes every distinct module referenced by the registry so
// first dispatches skip the fetch. Concurrent fetches for one module are
// collapsed by the materializer; the first failure cancels the rest.
func (e *Engine) Prewarm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, module := range e.registry.Modules() {
		g.Go(func() error {
			if _, err := e.materializer.EnsurePresent(ctx, module); err != nil {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// addModulePath appends a materialized module directory to the search path.
// Idempotent and order-preserving under concurrent use.
func (e *Engine) addModulePath(dir string) {
	e.pathsMu.Lock()
	defer e.pathsMu.Unlock()
	if _, ok := e.pathSeen[dir]; ok {
		return
	}
	e.pathSeen[dir] = struct{}{}
	e.modulePaths = append(e.modulePaths, dir)
}

// ModulePaths returns the module directories loaded so far, in first-load
// order.
func (e *Engine) ModulePaths() []string {
	e.pathsMu.Lock()
	defer e.pathsMu.Unlock()
	out := make([]string, len(e.modulePaths))
	copy(out, e.modulePaths)
	return out
}
