package storage

import (
	"fmt"

	"stocklib/internal/config"
	"stocklib/internal/observability"
)

// Adapters maps adapter names to constructors. cmd wiring registers
// the concrete adapters here; keeping the registry indirect avoids an
// import cycle between this package and its adapters.
type Factory struct {
	logger  observability.Logger
	metrics observability.Metrics

	constructors map[string]Constructor
}

// Constructor builds a concrete adapter from configuration.
type Constructor func(cfg config.StorageConfig, logger observability.Logger, metrics observability.Metrics) (ObjectStorage, error)

// NewFactory creates a storage factory.
func NewFactory(logger observability.Logger, metrics observability.Metrics) *Factory {
	return &Factory{
		logger:       logger,
		metrics:      metrics,
		constructors: make(map[string]Constructor),
	}
}

// Register adds an adapter constructor under a name.
func (f *Factory) Register(name string, ctor Constructor) {
	f.constructors[name] = ctor
}

// Create builds the adapter named by the configuration.
func (f *Factory) Create(cfg config.StorageConfig) (ObjectStorage, error) {
	ctor, ok := f.constructors[cfg.Adapter]
	if !ok {
		return nil, fmt.Errorf("unsupported storage adapter: %s", cfg.Adapter)
	}
	return ctor(cfg, f.logger, f.metrics)
}
