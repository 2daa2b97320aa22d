// Package materialize guarantees that the code backing a module name is
// present on local storage, fetching and unpacking its archive from remote
// object storage on first use.
//
// A module is ready iff its directory exists under the extraction root AND
// its ready marker file exists next to it. The marker is renamed into place
// only after extraction fully succeeds, so an interrupted extraction never
// masquerades as a complete module: a directory without a marker is treated
// as stale and re-materialized. Concurrent first-use calls for one module
// collapse into a single fetch+extract.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/actionmesh-labs/actionmesh-go/internal/archive"
)

// Stages of materialization, used to classify failures.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageExtract Stage = "extract"
)

// readyMarkerSuffix names the per-module marker file under the extraction
// root, e.g. "orders.ready" next to the "orders" directory.
const readyMarkerSuffix = ".ready"

// Error reports a failed materialization and the stage it failed in.
type Error struct {
	Stage  Stage
	Module string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s module %q: %v", e.Stage, e.Module, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ObjectStore is the remote archive source. Module archives are stored as
// "<module_name>.zip" objects.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket string, key string) (io.ReadCloser, error)
}

// Config configures a Materializer.
type Config struct {
	Store      ObjectStore
	Bucket     string
	StagingDir string
	ExtractDir string
	Logger     *slog.Logger
}

func (c Config) validate() error {
	if c.Store == nil {
		return errors.New("store is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	if strings.TrimSpace(c.StagingDir) == "" {
		return errors.New("staging dir is required")
	}
	if strings.TrimSpace(c.ExtractDir) == "" {
		return errors.New("extract dir is required")
	}
	return nil
}

// Materializer makes remote modules present on local storage, once each.
type Materializer struct {
	store      ObjectStore
	bucket     string
	stagingDir string
	extractDir string
	logger     *slog.Logger
	group      singleflight.Group
}

// New validates cfg and returns a Materializer.
func New(cfg Config) (*Materializer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("materializer config: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		store:      cfg.Store,
		bucket:     cfg.Bucket,
		stagingDir: cfg.StagingDir,
		extractDir: cfg.ExtractDir,
		logger:     logger,
	}, nil
}

// EnsurePresent returns the local directory holding moduleName's code,
// fetching and extracting its archive first if the module is not yet ready.
// Repeated calls for a ready module perform zero remote reads; concurrent
// calls for one absent module share a single fetch+extract.
func (m *Materializer) EnsurePresent(ctx context.Context, moduleName string) (string, error) {
	if strings.TrimSpace(moduleName) == "" {
		return "", &Error{Stage: StageFetch, Module: moduleName, Err: errors.New("module name is required")}
	}
	if strings.ContainsAny(moduleName, `/\`) || moduleName == "." || moduleName == ".." {
		return "", &Error{Stage: StageFetch, Module: moduleName, Err: fmt.Errorf("invalid module name %q", moduleName)}
	}

	dir := filepath.Join(m.extractDir, moduleName)
	if m.isReady(moduleName) {
		return dir, nil
	}

	_, err, _ := m.group.Do(moduleName, func() (any, error) {
		// Another caller may have finished while we waited on the group.
		if m.isReady(moduleName) {
			return nil, nil
		}
		return nil, m.materialize(ctx, moduleName)
	})
	if err != nil {
		return "", err
	}
	return dir, nil
}

// isReady reports whether the module directory and its ready marker both
// exist under the extraction root.
func (m *Materializer) isReady(moduleName string) bool {
	info, err := os.Stat(filepath.Join(m.extractDir, moduleName))
	if err != nil || !info.IsDir() {
		return false
	}
	if _, err := os.Stat(m.markerPath(moduleName)); err != nil {
		return false
	}
	return true
}

func (m *Materializer) markerPath(moduleName string) string {
	return filepath.Join(m.extractDir, moduleName+readyMarkerSuffix)
}

func (m *Materializer) materialize(ctx context.Context, moduleName string) error {
	dir := filepath.Join(m.extractDir, moduleName)

	// A directory without a marker is leftover state from an interrupted
	// extraction. Remove it so the fresh extraction starts clean.
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		m.logger.Info("removing stale module directory", "module", moduleName, "dir", dir)
		if err := os.RemoveAll(dir); err != nil {
			return &Error{Stage: StageExtract, Module: moduleName, Err: fmt.Errorf("remove stale directory: %w", err)}
		}
	}

	zipPath, err := m.fetch(ctx, moduleName)
	if err != nil {
		m.logger.Error("module fetch failed", "module", moduleName, "bucket", m.bucket, "error", err)
		return &Error{Stage: StageFetch, Module: moduleName, Err: err}
	}
	m.logger.Info("module archive fetched", "module", moduleName, "archive", zipPath)

	if err := archive.ExtractAll(zipPath, m.extractDir); err != nil {
		m.logger.Error("module extraction failed", "module", moduleName, "archive", zipPath, "error", err)
		return &Error{Stage: StageExtract, Module: moduleName, Err: err}
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		err := fmt.Errorf("archive did not produce module directory %q", moduleName)
		m.logger.Error("module extraction failed", "module", moduleName, "archive", zipPath, "error", err)
		return &Error{Stage: StageExtract, Module: moduleName, Err: err}
	}

	if err := m.writeMarker(moduleName); err != nil {
		return &Error{Stage: StageExtract, Module: moduleName, Err: err}
	}
	m.logger.Info("module ready", "module", moduleName, "dir", dir)
	return nil
}

// fetch streams "<module>.zip" from the bucket into the staging directory
// and returns the local archive path.
func (m *Materializer) fetch(ctx context.Context, moduleName string) (string, error) {
	key := moduleName + ".zip"
	if err := os.MkdirAll(m.stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	obj, err := m.store.GetObject(ctx, m.bucket, key)
	if err != nil {
		return "", fmt.Errorf("get object %s/%s: %w", m.bucket, key, err)
	}
	defer func() { _ = obj.Close() }()

	zipPath := filepath.Join(m.stagingDir, key)
	f, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	if _, err := io.Copy(f, obj); err != nil {
		_ = f.Close()
		_ = os.Remove(zipPath)
		return "", fmt.Errorf("download %s/%s: %w", m.bucket, key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close archive file: %w", err)
	}
	return zipPath, nil
}

// writeMarker records extraction success atomically: the marker is written
// under a temporary name and renamed into place, so a crash between extract
// and marker leaves the module observably not-ready.
func (m *Materializer) writeMarker(moduleName string) error {
	tmp, err := os.CreateTemp(m.extractDir, moduleName+".ready.tmp-")
	if err != nil {
		return fmt.Errorf("create marker: %w", err)
	}
	name := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close marker: %w", err)
	}
	if err := os.Rename(name, m.markerPath(moduleName)); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("commit marker: %w", err)
	}
	return nil
}
