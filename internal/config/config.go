// Package config loads the export service configuration from the environment
// and an optional YAML job definition.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.temporal.io/sdk/client"
	"gopkg.in/yaml.v3"

	be "github.com/hankgalt/batch-export"
	"github.com/hankgalt/batch-export/internal/sources"
	"github.com/hankgalt/batch-export/pkg/engine"
	"github.com/hankgalt/batch-export/pkg/utils"
)

const (
	ERR_CONFIG_FILE_READ  = "error reading config file"
	ERR_CONFIG_FILE_PARSE = "error parsing config file"
)

var (
	ErrConfigFileRead  = errors.New(ERR_CONFIG_FILE_READ)
	ErrConfigFileParse = errors.New(ERR_CONFIG_FILE_PARSE)
)

// Config holds all configuration values.
type Config struct {
	// Customer source
	SourceDriver string
	SourceDSN    string

	// Job repository sqlite file
	RepositoryDB string

	// Chunk engine
	ChunkSize    uint
	SkipLimit    uint
	RetryLimit   uint
	RetryBackoff time.Duration

	// Temporal
	TemporalHostPort  string
	TemporalNamespace string
	TaskQueue         string

	// HTTP launch surface
	HTTPAddr string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Default job parameters, overridden by launch arguments
	Parameters map[string]string
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		SourceDriver: utils.GetEnv("SOURCE_DRIVER", sources.DriverSQLite),
		SourceDSN:    utils.GetEnv("SOURCE_DSN", "data/customers.db"),
		RepositoryDB: utils.GetEnv("REPOSITORY_DB", "data/jobs.db"),

		TemporalHostPort:  utils.GetEnv("TEMPORAL_HOST_PORT", client.DefaultHostPort),
		TemporalNamespace: utils.GetEnv("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TaskQueue:         utils.GetEnv("TASK_QUEUE", be.ApplicationName),

		HTTPAddr: utils.GetEnv("HTTP_ADDR", ":8080"),

		LogFile:  utils.GetEnv("LOG_FILE", "/tmp/batch-export.log"),
		LogLevel: ParseLogLevel(utils.GetEnv("LOG_LEVEL", "INFO")),

		Parameters: map[string]string{},
	}

	var err error
	if cfg.ChunkSize, err = utils.GetEnvUint("CHUNK_SIZE", engine.DefaultChunkSize); err != nil {
		return cfg, err
	}
	if cfg.ChunkSize == 0 {
		return cfg, fmt.Errorf("CHUNK_SIZE: %w", utils.ErrOutOfRange)
	}
	if cfg.SkipLimit, err = utils.GetEnvUint("SKIP_LIMIT", engine.DefaultSkipLimit); err != nil {
		return cfg, err
	}
	if cfg.RetryLimit, err = utils.GetEnvUint("RETRY_LIMIT", engine.DefaultRetryLimit); err != nil {
		return cfg, err
	}
	if cfg.RetryBackoff, err = utils.GetEnvDuration("RETRY_BACKOFF", 0); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// EngineOptions returns the chunk engine options. Zero skip and retry limits are kept.
func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		ChunkSize:    c.ChunkSize,
		SkipLimit:    c.SkipLimit,
		RetryLimit:   c.RetryLimit,
		RetryBackoff: c.RetryBackoff,
	}
}

// JobParameters merges launch arguments over the configured defaults.
func (c Config) JobParameters(args map[string]string) map[string]string {
	params := make(map[string]string, len(c.Parameters)+len(args))
	for k, v := range c.Parameters {
		params[k] = v
	}
	for k, v := range args {
		params[k] = v
	}
	return params
}

// JobDefinition is the YAML job file. Set fields override the environment.
//
//	source:
//	  driver: sqlite3
//	  dsn: data/customers.db
//	repository: data/jobs.db
//	chunkSize: 10
//	skipLimit: 10
//	retryLimit: 3
//	retryBackoff: 250ms
//	parameters:
//	  outputFile: out/customers.csv
type JobDefinition struct {
	Source struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"source"`
	Repository   string            `yaml:"repository"`
	ChunkSize    *uint             `yaml:"chunkSize"`
	SkipLimit    *uint             `yaml:"skipLimit"`
	RetryLimit   *uint             `yaml:"retryLimit"`
	RetryBackoff string            `yaml:"retryBackoff"`
	Parameters   map[string]string `yaml:"parameters"`
}

// LoadFile applies the YAML job definition at path over cfg.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrConfigFileRead, path, err)
	}
	return Apply(cfg, data)
}

// Apply decodes a YAML job definition and overrides the set fields of cfg.
func Apply(cfg Config, data []byte) (Config, error) {
	var def JobDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrConfigFileParse, err)
	}

	if def.Source.Driver != "" {
		cfg.SourceDriver = def.Source.Driver
	}
	if def.Source.DSN != "" {
		cfg.SourceDSN = def.Source.DSN
	}
	if def.Repository != "" {
		cfg.RepositoryDB = def.Repository
	}
	if def.ChunkSize != nil {
		if *def.ChunkSize == 0 {
			return cfg, fmt.Errorf("%w: chunkSize must be greater than 0", ErrConfigFileParse)
		}
		cfg.ChunkSize = *def.ChunkSize
	}
	if def.SkipLimit != nil {
		cfg.SkipLimit = *def.SkipLimit
	}
	if def.RetryLimit != nil {
		cfg.RetryLimit = *def.RetryLimit
	}
	if def.RetryBackoff != "" {
		d, err := time.ParseDuration(def.RetryBackoff)
		if err != nil {
			return cfg, fmt.Errorf("%w: retryBackoff: %w", ErrConfigFileParse, err)
		}
		cfg.RetryBackoff = d
	}
	if len(def.Parameters) > 0 {
		params := make(map[string]string, len(cfg.Parameters)+len(def.Parameters))
		for k, v := range cfg.Parameters {
			params[k] = v
		}
		for k, v := range def.Parameters {
			params[k] = v
		}
		cfg.Parameters = params
	}
	return cfg, nil
}

// ParseLogLevel maps a level name to a slog level, INFO when unknown.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
