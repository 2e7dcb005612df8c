package cmd

import (
	"errors"
	"fmt"

	"github.com/distribox/atlas"
	"github.com/distribox/atlas/internal/remote"
	"github.com/spf13/viper"
)

const (
	backendS3   = "s3"
	backendOCI  = "oci"
	backendFile = "file"
)

// Config is everything the commands read from flags, environment, .env and
// the config file.
type Config struct {
	Bucket           string
	Backend          string
	LogLevel         string
	Concurrency      int
	FetchConcurrency int
	MetricsTextfile  string

	S3   remote.S3Config
	OCI  OCIConfig
	File FileConfig
}

type OCIConfig struct {
	Repository string
	Username   string
	Password   string
	Insecure   bool
}

type FileConfig struct {
	Dir string
}

var errConfig = errors.New("invalid configuration")

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", backendS3)
	v.SetDefault("log_level", "info")
	v.SetDefault("concurrency", atlas.DefaultConcurrency)
	v.SetDefault("fetch_concurrency", atlas.DefaultFetchConcurrency)
	v.SetDefault("s3.region", remote.DefaultRegion)
}

func loadConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Bucket:           v.GetString("bucket_registry"),
		Backend:          v.GetString("backend"),
		LogLevel:         v.GetString("log_level"),
		Concurrency:      v.GetInt("concurrency"),
		FetchConcurrency: v.GetInt("fetch_concurrency"),
		MetricsTextfile:  v.GetString("metrics_textfile"),
		S3: remote.S3Config{
			Endpoint:        v.GetString("s3.endpoint"),
			Region:          v.GetString("s3.region"),
			AccessKeyID:     v.GetString("s3.access_key_id"),
			SecretAccessKey: v.GetString("s3.secret_access_key"),
			ForcePathStyle:  v.GetBool("s3.force_path_style"),
		},
		OCI: OCIConfig{
			Repository: v.GetString("oci.repository"),
			Username:   v.GetString("oci.username"),
			Password:   v.GetString("oci.password"),
			Insecure:   v.GetBool("oci.insecure"),
		},
		File: FileConfig{
			Dir: v.GetString("file.dir"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate fails before any registry call is made.
func (c *Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("%w: %w (set DISTRIBOX_BUCKET_REGISTRY or bucket_registry)", errConfig, atlas.ErrNoBucket)
	}
	switch c.Backend {
	case backendS3:
	case backendOCI:
		if c.OCI.Repository == "" {
			return fmt.Errorf("%w: oci backend requires oci.repository", errConfig)
		}
	case backendFile:
		if c.File.Dir == "" {
			return fmt.Errorf("%w: file backend requires file.dir", errConfig)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", errConfig, c.Backend)
	}
	if c.Concurrency < 1 || c.FetchConcurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", errConfig)
	}
	return nil
}
