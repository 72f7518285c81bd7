package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const DEFAULT_DATA_PATH string = "exports"
const DEFAULT_FILE_NAME string = "customers.csv"

// CloudFileConfig locates an object in a cloud bucket.
type CloudFileConfig struct {
	Name   string
	Path   string
	Bucket string
}

// URL returns the gs:// form of the object location.
func (c CloudFileConfig) URL() string {
	return fmt.Sprintf("gs://%s/%s", c.Bucket, filepath.ToSlash(filepath.Join(c.Path, c.Name)))
}

// GetEnv returns the env variable value, or fallback when unset or empty.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvUint returns the env variable as a non-negative integer, or fallback when unset.
func GetEnvUint(key string, fallback uint) (uint, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := ParseInt64(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return fallback, fmt.Errorf("%s: %w", key, ErrOutOfRange)
	}
	return uint(n), nil
}

// GetEnvDuration returns the env variable as a duration, or fallback when unset.
func GetEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// BuildFileName constructs the file name using the FILE_NAME env variable or defaults to DEFAULT_FILE_NAME.
func BuildFileName() string {
	return GetEnv("FILE_NAME", DEFAULT_FILE_NAME)
}

// BuildCloudFileConfig builds the cloud output location from the BUCKET env variable.
func BuildCloudFileConfig() (CloudFileConfig, error) {
	bucket := os.Getenv("BUCKET")
	if bucket == "" {
		return CloudFileConfig{}, fmt.Errorf("BUCKET environment variable is not set")
	}

	return CloudFileConfig{
		Name:   BuildFileName(),
		Path:   DEFAULT_DATA_PATH,
		Bucket: bucket,
	}, nil
}
