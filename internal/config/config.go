// Package config reads and writes ~/.apurimac/config.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Blob backends.
const (
	BlobFile = "file"
	BlobS3   = "s3"
)

// Config is the global configuration shared by every session.
type Config struct {
	DefaultSession string       `toml:"default_session"`
	LogLevel       string       `toml:"log_level"`
	Auth           AuthConfig   `toml:"auth"`
	Blob           BlobConfig   `toml:"blob"`
	Status         StatusConfig `toml:"status"`
}

// AuthConfig configures session tokens. An empty secret makes the daemon
// generate one per session.
type AuthConfig struct {
	Secret   string   `toml:"secret"`
	TokenTTL Duration `toml:"token_ttl"`
}

// BlobConfig selects where uploaded images go.
type BlobConfig struct {
	Backend string `toml:"backend"`
	// Listen is the address of the HTTP endpoint serving file blobs.
	Listen string `toml:"listen"`
	// PublicURL prefixes resolved addresses. Defaults to http://<listen>.
	PublicURL string   `toml:"public_url"`
	S3        S3Config `toml:"s3"`
}

// S3Config addresses an S3-compatible bucket.
type S3Config struct {
	Region     string   `toml:"region"`
	Endpoint   string   `toml:"endpoint"`
	Bucket     string   `toml:"bucket"`
	AccessKey  string   `toml:"access_key"`
	SecretKey  string   `toml:"secret_key"`
	PresignTTL Duration `toml:"presign_ttl"`
}

// StatusConfig tunes the status mirror.
type StatusConfig struct {
	// Retention hides older posts. "0s" shows everything.
	Retention Duration `toml:"retention"`
}

// Duration is a time.Duration written as a string such as "24h".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when the file is missing. Keys left
// out of the file keep these values.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Blob: BlobConfig{
			Backend: BlobFile,
			Listen:  "127.0.0.1:7420",
		},
		Status: StatusConfig{Retention: Duration{24 * time.Hour}},
	}
}

// Load reads config from path on top of Default. Returns an error if the
// file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, but a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks values that would only fail later at startup.
func (c *Config) Validate() error {
	switch c.Blob.Backend {
	case BlobFile:
		if c.Blob.Listen == "" {
			return errors.New("blob.listen is required for the file backend")
		}
	case BlobS3:
		if c.Blob.S3.Bucket == "" {
			return errors.New("blob.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown blob.backend %q", c.Blob.Backend)
	}
	if c.Status.Retention.Duration < 0 {
		return errors.New("status.retention must not be negative")
	}
	return nil
}

// BlobBaseURL returns the prefix of file blob addresses.
func (c *Config) BlobBaseURL() string {
	if c.Blob.PublicURL != "" {
		return c.Blob.PublicURL
	}
	return "http://" + c.Blob.Listen
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
