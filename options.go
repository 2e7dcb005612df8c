package atlas

import (
	"github.com/rs/zerolog"
)

// Defaults used by Open.
const (
	DefaultConcurrency      = 1
	DefaultFetchConcurrency = 4
)

// OpenOptions configures an Engine.
type OpenOptions struct {
	Store            ObjectStore
	Logger           zerolog.Logger
	Concurrency      int
	FetchConcurrency int
	Observer         Observer
}

// OpenOption is a functional option for configuring Open.
type OpenOption func(*OpenOptions)

func defaultOptions() *OpenOptions {
	return &OpenOptions{
		Logger:           zerolog.Nop(),
		Concurrency:      DefaultConcurrency,
		FetchConcurrency: DefaultFetchConcurrency,
	}
}

// WithStore sets the object store holding the registry. Required.
func WithStore(s ObjectStore) OpenOption {
	return func(o *OpenOptions) { o.Store = s }
}

// WithLogger sets the logger for per-image progress.
func WithLogger(l zerolog.Logger) OpenOption {
	return func(o *OpenOptions) { o.Logger = l }
}

// WithConcurrency sets how many images of a directory sync are in flight
// at once. Each image still writes its image object before its metadata.
func WithConcurrency(n int) OpenOption {
	return func(o *OpenOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithFetchConcurrency sets the number of parallel metadata fetches while
// listing the registry.
func WithFetchConcurrency(n int) OpenOption {
	return func(o *OpenOptions) {
		if n > 0 {
			o.FetchConcurrency = n
		}
	}
}

func WithObserver(obs Observer) OpenOption {
	return func(o *OpenOptions) { o.Observer = obs }
}
