package cmd

import (
	"fmt"

	"github.com/distribox/atlas"
	"github.com/distribox/atlas/internal/metrics"
	"github.com/distribox/atlas/internal/remote"
	"github.com/rs/zerolog/log"
)

func newStore(cfg *Config) (atlas.ObjectStore, error) {
	switch cfg.Backend {
	case backendS3:
		s, err := remote.NewS3Store(cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	case backendOCI:
		opts := []remote.OCIOption{remote.WithInsecure(cfg.OCI.Insecure)}
		if cfg.OCI.Username != "" {
			opts = append(opts, remote.WithAuthenticator(remote.StaticAuthenticator{
				Username: cfg.OCI.Username,
				Password: cfg.OCI.Password,
			}))
		}
		s, err := remote.NewOCIStore(cfg.OCI.Repository, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case backendFile:
		return atlas.NewDirStore(cfg.File.Dir)
	}
	return nil, fmt.Errorf("%w: unknown backend %q", errConfig, cfg.Backend)
}

// session is one command run: the engine plus the metrics it reports to.
type session struct {
	cfg     *Config
	engine  *atlas.Engine
	metrics *metrics.Metrics
}

func openSession(cfg *Config) (*session, error) {
	s, err := newStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}

	m := metrics.New()
	engine, err := atlas.Open(cfg.Bucket,
		atlas.WithStore(s),
		atlas.WithLogger(log.Logger),
		atlas.WithConcurrency(cfg.Concurrency),
		atlas.WithFetchConcurrency(cfg.FetchConcurrency),
		atlas.WithObserver(m),
	)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, engine: engine, metrics: m}, nil
}

// close writes the metrics textfile when one is configured.
func (s *session) close() error {
	if s.cfg.MetricsTextfile == "" {
		return nil
	}
	return s.metrics.WriteTextfile(s.cfg.MetricsTextfile)
}
