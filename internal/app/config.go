package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ManifestPath string // hcl link manifests; empty uses the built-in demo wiring

	ListenAddr string
	LogFormat  string
	LogLevel   string

	// Once renders a single document to stdout instead of serving.
	Once bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ListenAddr == "" && !cfg.Once {
		return nil, errors.New("ListenAddr is required when serving")
	}

	return &cfg, nil
}
