// Package config loads and validates the COWFS configuration: storage
// layout, FUSE mount behavior, worker-pool sizing, retry policy, logging,
// and metrics — all from a single YAML file with environment overrides.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cowfs/cowfs/pkg/cowerrors"
	"gopkg.in/yaml.v2"
)

// StorageConfig locates the two on-disk stores.
type StorageConfig struct {
	Root         string `yaml:"root"`
	ObjectsDir   string `yaml:"objects_dir"`
	MetadataFile string `yaml:"metadata_file"`
	HashAlgo     string `yaml:"hash_algo"`
}

// MountConfig controls FUSE mount behavior.
type MountConfig struct {
	AllowOther bool   `yaml:"allow_other"`
	FSName     string `yaml:"fs_name"`
	ReadOnly   bool   `yaml:"read_only"`
}

// WorkerPoolConfig bounds the FUSE adapter's blocking-op offload pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// CacheConfig controls the FUSE adapter's per-inode hash/size cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// RetryConfig controls transient-failure retry for metadata/object store
// operations.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
}

// LoggingConfig controls the process-wide logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus collector and status endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Configuration is the full, validated COWFS configuration.
type Configuration struct {
	Storage    StorageConfig    `yaml:"storage"`
	Mount      MountConfig      `yaml:"mount"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Cache      CacheConfig      `yaml:"cache"`
	Retry      RetryConfig      `yaml:"retry"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// Default returns a Configuration with sane defaults for a local mount.
func Default() *Configuration {
	return &Configuration{
		Storage: StorageConfig{
			ObjectsDir:   "objects",
			MetadataFile: "cowfs.db",
			HashAlgo:     "sha256",
		},
		Mount: MountConfig{
			FSName: "cowfs",
		},
		WorkerPool: WorkerPoolConfig{Size: 8},
		Cache:      CacheConfig{TTL: 5 * time.Second},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Enabled: true, Addr: "127.0.0.1:9090"},
	}
}

// Load reads and validates a YAML configuration file at path, filling in
// defaults for anything left unset.
func Load(path string) (*Configuration, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cowerrors.New(cowerrors.Internal, "read config file").
			WithComponent("config").WithOperation("load").WithCause(err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, cowerrors.New(cowerrors.Internal, "parse config file").
			WithComponent("config").WithOperation("load").WithCause(err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Configuration) {
	if root := os.Getenv("COWFS_STORAGE"); root != "" {
		cfg.Storage.Root = root
	}
	if level := os.Getenv("COWFS_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Configuration) Validate() error {
	if c.Storage.Root == "" {
		return cowerrors.New(cowerrors.InvalidArgument, "storage.root must be set").
			WithComponent("config").WithOperation("validate")
	}
	if c.Storage.HashAlgo != "sha256" {
		return cowerrors.Newf(cowerrors.InvalidArgument, "unsupported hash_algo %q", c.Storage.HashAlgo).
			WithComponent("config").WithOperation("validate")
	}
	if c.WorkerPool.Size <= 0 {
		return cowerrors.New(cowerrors.InvalidArgument, "worker_pool.size must be positive").
			WithComponent("config").WithOperation("validate")
	}
	return nil
}

// ObjectsPath returns the absolute path of the object store directory.
func (c *Configuration) ObjectsPath() string {
	if filepath.IsAbs(c.Storage.ObjectsDir) {
		return c.Storage.ObjectsDir
	}
	return filepath.Join(c.Storage.Root, c.Storage.ObjectsDir)
}

// MetadataPath returns the absolute path of the metadata database file.
func (c *Configuration) MetadataPath() string {
	if filepath.IsAbs(c.Storage.MetadataFile) {
		return c.Storage.MetadataFile
	}
	return filepath.Join(c.Storage.Root, c.Storage.MetadataFile)
}
