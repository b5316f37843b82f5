// Package source provides transaction source abstractions for the mining
// driver. Each source type (CSV, Kafka, HTTP, database) is a concrete
// strategy implementing the TransactionSource interface, selected and
// constructed through a type registry.
package source

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Type names a transaction source strategy.
type Type string

// TransactionSource is the strategy interface every transaction feed
// implements.
type TransactionSource interface {
	// Type returns the source type constant defined by the strategy.
	Type() Type

	// Name returns the instance name (for distinguishing multiple instances
	// of the same type).
	Name() string

	// Start begins emitting transactions onto the channel returned by
	// Transactions.
	Start(ctx context.Context) error

	// Stop stops the source gracefully.
	Stop() error

	// Transactions returns a channel that emits transaction events.
	Transactions() <-chan *Event

	// HealthCheck performs a health check on the source.
	HealthCheck(ctx context.Context) error
}

// Config holds the configuration for a transaction source instance.
type Config struct {
	Type    Type                   `yaml:"type" mapstructure:"type"`
	Name    string                 `yaml:"name" mapstructure:"name"`
	Enabled bool                   `yaml:"enabled" mapstructure:"enabled"`
	Options map[string]interface{} `yaml:"options" mapstructure:"options"`
}

// GetString retrieves a string option with a default value.
func (c *Config) GetString(key, defaultValue string) string {
	if c.Options == nil {
		return defaultValue
	}
	if v, ok := c.Options[key].(string); ok {
		return v
	}
	return defaultValue
}

// GetInt retrieves an int option with a default value.
func (c *Config) GetInt(key string, defaultValue int) int {
	if c.Options == nil {
		return defaultValue
	}
	switch v := c.Options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultValue
}

// GetDuration retrieves a duration option with a default value. Accepts a
// string (e.g. "2s") or a number of seconds.
func (c *Config) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if c.Options == nil {
		return defaultValue
	}
	switch v := c.Options[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v) * time.Second
	}
	return defaultValue
}

// GetStringSlice retrieves a string-slice option with a default value.
func (c *Config) GetStringSlice(key string, defaultValue []string) []string {
	if c.Options == nil {
		return defaultValue
	}
	switch v := c.Options[key].(type) {
	case []string:
		return v
	case []interface{}:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	}
	return defaultValue
}

// Creator builds a TransactionSource from configuration.
type Creator func(cfg *Config) (TransactionSource, error)

var (
	registry   = make(map[Type]Creator)
	registryMu sync.RWMutex
)

// Register registers a source creator for a given type. Concrete
// strategies call this from their package init().
func Register(t Type, creator Creator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = creator
}

// RegisteredTypes returns all registered source types.
func RegisteredTypes() []Type {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]Type, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}

// CreateSource creates a TransactionSource from the given configuration.
func CreateSource(cfg *Config) (TransactionSource, error) {
	registryMu.RLock()
	creator, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown source type: %s (registered: %v)", cfg.Type, RegisteredTypes())
	}
	return creator(cfg)
}

// CreateSources creates every enabled source from the given configurations.
func CreateSources(configs []*Config) ([]TransactionSource, error) {
	var sources []TransactionSource
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		src, err := CreateSource(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create source %q: %w", cfg.Name, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}
