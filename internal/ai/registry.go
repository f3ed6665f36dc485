package ai

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lingora/backend/internal/config"
)

// Resolver resolves symbolic driver names. Registry is the production
// implementation; tests substitute fakes.
type Resolver interface {
	Driver(name string) (Driver, error)
	Settings(name string) (config.DriverConfig, error)
}

type constructor func(cfg config.DriverConfig, client *http.Client) Driver

// Registry resolves drivers by name, constructing each lazily and
// memoizing the instance. It owns the pooled HTTP client handed to
// every raw-HTTP driver, so vendor calls share one connection pool.
type Registry struct {
	cfg      config.AIConfig
	client   *http.Client
	builders map[string]constructor

	mu      sync.Mutex
	drivers map[string]Driver
}

func NewRegistry(cfg config.AIConfig) *Registry {
	return &Registry{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		builders: map[string]constructor{
			"openai":    newOpenAIDriver,
			"anthropic": newAnthropicDriver,
			"rapidchat": newRapidChatDriver,
			"rapidstt":  newRapidSTTDriver,
		},
		drivers: make(map[string]Driver),
	}
}

func (r *Registry) resolveName(name string) (string, error) {
	if name == "" {
		name = r.cfg.DefaultDriver
	}
	if name == "" {
		return "", ErrNoDefault
	}
	return name, nil
}

// Settings returns the static configuration for a driver without
// constructing it. Shaping decisions (system folding) read from here.
func (r *Registry) Settings(name string) (config.DriverConfig, error) {
	name, err := r.resolveName(name)
	if err != nil {
		return config.DriverConfig{}, err
	}
	cfg, ok := r.cfg.Drivers[name]
	if !ok {
		return config.DriverConfig{}, fmt.Errorf("driver %q: %w", name, ErrNotConfigured)
	}
	return cfg, nil
}

// Driver resolves a driver by name, or the configured default when name
// is empty. Repeated calls with the same name return the same instance.
func (r *Registry) Driver(name string) (Driver, error) {
	name, err := r.resolveName(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.drivers[name]; ok {
		return d, nil
	}

	cfg, ok := r.cfg.Drivers[name]
	if !ok {
		return nil, fmt.Errorf("driver %q: %w", name, ErrNotConfigured)
	}
	build, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("driver %q has no implementation: %w", name, ErrNotConfigured)
	}

	d := build(cfg, r.client)
	r.drivers[name] = d
	return d, nil
}
