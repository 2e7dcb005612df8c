package cmd

import (
	"testing"

	"github.com/distribox/atlas"
	"github.com/distribox/atlas/internal/remote"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	bindEnv(v)
	setDefaults(v)
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	v := newTestViper(t)
	v.Set("bucket_registry", "registry")

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "registry", cfg.Bucket)
	assert.Equal(t, backendS3, cfg.Backend)
	assert.Equal(t, remote.DefaultRegion, cfg.S3.Region)
	assert.Equal(t, atlas.DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, atlas.DefaultFetchConcurrency, cfg.FetchConcurrency)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DISTRIBOX_BUCKET_REGISTRY", "images")
	t.Setenv("DISTRIBOX_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("DISTRIBOX_S3_FORCE_PATH_STYLE", "true")
	t.Setenv("DISTRIBOX_CONCURRENCY", "3")

	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)
	assert.Equal(t, "images", cfg.Bucket)
	assert.Equal(t, "http://minio:9000", cfg.S3.Endpoint)
	assert.True(t, cfg.S3.ForcePathStyle)
	assert.Equal(t, 3, cfg.Concurrency)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
	}{
		{"no bucket", map[string]any{}},
		{"unknown backend", map[string]any{"bucket_registry": "r", "backend": "ftp"}},
		{"oci without repository", map[string]any{"bucket_registry": "r", "backend": "oci"}},
		{"file without dir", map[string]any{"bucket_registry": "r", "backend": "file"}},
		{"zero concurrency", map[string]any{"bucket_registry": "r", "concurrency": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestViper(t)
			for k, val := range tt.settings {
				v.Set(k, val)
			}
			_, err := loadConfig(v)
			assert.ErrorIs(t, err, errConfig)
		})
	}
}

func TestLoadConfigMissingBucket(t *testing.T) {
	_, err := loadConfig(newTestViper(t))
	assert.ErrorIs(t, err, atlas.ErrNoBucket)
}

func TestNewStore(t *testing.T) {
	s, err := newStore(&Config{Backend: backendFile, File: FileConfig{Dir: t.TempDir()}})
	require.NoError(t, err)
	assert.NotNil(t, s)

	s, err = newStore(&Config{Backend: backendOCI, OCI: OCIConfig{Repository: "localhost:5000/distribox", Insecure: true}})
	require.NoError(t, err)
	assert.IsType(t, &remote.OCIStore{}, s)

	s, err = newStore(&Config{Backend: backendS3, S3: remote.S3Config{Region: "eu-west-1"}})
	require.NoError(t, err)
	assert.IsType(t, &remote.S3Store{}, s)
}
