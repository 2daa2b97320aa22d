// Package objectstore provides the MinIO-backed client the engine fetches
// module archives from. It satisfies engine.ObjectStore.
package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/actionmesh-labs/actionmesh-go/internal/platform/env"
)

// Config holds object store connection settings. Bucket is the bucket the
// engine reads "<module_name>.zip" archives from.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
}

// ConfigFromEnv reads configuration from ACTIONMESH_MINIO_* variables.
func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("ACTIONMESH_MINIO_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:  env.String("ACTIONMESH_MINIO_ENDPOINT", "localhost:9000"),
		AccessKey: env.String("ACTIONMESH_MINIO_ACCESS_KEY", "actionmesh"),
		SecretKey: env.String("ACTIONMESH_MINIO_SECRET_KEY", "actionmeshminio"),
		Region:    env.String("ACTIONMESH_MINIO_REGION", "us-east-1"),
		UseSSL:    useSSL,
		Bucket:    env.String("ACTIONMESH_MINIO_BUCKET", "functions"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}
