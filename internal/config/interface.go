package config

import "context"

// Loader reads a run configuration from a file.
type Loader interface {
	Load(ctx context.Context, path string) (RunConfig, error)
}
