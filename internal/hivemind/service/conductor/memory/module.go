package memory

import (
	"context"
	"fmt"

	"github.com/kiosk404/echoryn/internal/hivemind/service/plugin/builtin/memory-core/embedding"
	"github.com/kiosk404/echoryn/internal/hivemind/service/plugin/builtin/memory-core/entity"
	"github.com/kiosk404/echoryn/pkg/logger"
)

// Config holds the configuration for the Memory Store module. Follows the
// same Config → Complete() → New(ctx, deps) shape as the Agents module.
type Config struct {
	// BackendType selects "inprocess" or "chromem". Default: "inprocess".
	BackendType string `json:"backend_type,omitempty"`

	// ChromemPath is the persistence directory when BackendType="chromem".
	// Empty means in-memory-only chromem (no file persistence).
	ChromemPath string `json:"chromem_path,omitempty"`

	// ChromemCompress enables gzip compression of the persisted file.
	ChromemCompress bool `json:"chromem_compress,omitempty"`

	// Embedding configures the embedding provider shared with memory-core.
	Embedding entity.EmbeddingConfig `json:"embedding,omitempty"`
}

type CompletedConfig struct {
	*Config
}

func (c *Config) Complete() CompletedConfig {
	if c.BackendType == "" {
		c.BackendType = "inprocess"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "auto"
	}
	if c.Embedding.Fallback == "" {
		c.Embedding.Fallback = "none"
	}
	return CompletedConfig{c}
}

// Module wraps the selected Store implementation.
type Module struct {
	Store Store
}

func (m *Module) Close() error {
	return m.Store.Close()
}

// New builds the Memory Store module from a completed config.
func (c CompletedConfig) New(_ context.Context) (*Module, error) {
	providerResult, err := embedding.NewProvider(c.Embedding)
	if err != nil {
		return nil, fmt.Errorf("conductor memory: create embedding provider: %w", err)
	}
	if providerResult.FallbackFrom != "" {
		logger.Warn("[ConductorMemory] embedding provider fallback: %s -> %s (reason: %s)",
			providerResult.FallbackFrom, providerResult.Provider.ID(), providerResult.FallbackReason)
	}

	var store Store
	switch c.BackendType {
	case "chromem":
		store, err = NewChromemStore(providerResult.Provider, c.ChromemPath, c.ChromemCompress)
		if err != nil {
			return nil, fmt.Errorf("conductor memory: open chromem store: %w", err)
		}
		logger.Info("[ConductorMemory] using chromem-go store (path=%s)", c.ChromemPath)
	default:
		store = NewInProcessStore(providerResult.Provider)
		logger.Info("[ConductorMemory] using in-process store")
	}

	return &Module{Store: store}, nil
}
