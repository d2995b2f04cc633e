package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

// ConfigLoader parses, validates and caches engine configurations,
// turning declarative YAML into ready-to-use Engines.
type ConfigLoader struct {
	validator *validator.Validate
	registry  ports.UnitRegistry
	opts      []EngineOption
	// cache stores engines indexed by SHA256 hash of the normalized config.
	cache   map[string]*Engine
	cacheMu sync.RWMutex
	// sf prevents duplicate engine construction when multiple goroutines
	// load the same configuration simultaneously.
	sf singleflight.Group
}

// NewConfigLoader creates a loader whose engines are built with registry
// and opts. A nil registry uses NewDefaultUnitRegistry.
func NewConfigLoader(registry ports.UnitRegistry, opts ...EngineOption) (*ConfigLoader, error) {
	v, err := newValidator()
	if err != nil {
		return nil, err
	}
	return &ConfigLoader{
		validator: v,
		registry:  registry,
		opts:      opts,
		cache:     make(map[string]*Engine),
	}, nil
}

// LoadFromFile loads an engine configuration from a YAML file.
// The returned Engine is shared with every caller that loads an equivalent
// configuration.
func (cl *ConfigLoader) LoadFromFile(ctx context.Context, path string) (*Engine, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, ports.NewConfigError(ports.ConfigSourceFile, path, fmt.Errorf("failed to read file: %w", err))
	}
	return cl.load(ctx, data)
}

// LoadFromReader loads an engine configuration from r.
func (cl *ConfigLoader) LoadFromReader(ctx context.Context, r io.Reader) (*Engine, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ports.NewConfigError(ports.ConfigSourceReader, "", fmt.Errorf("failed to read data: %w", err))
	}
	return cl.load(ctx, data)
}

func (cl *ConfigLoader) load(ctx context.Context, data []byte) (*Engine, error) {
	var config EngineConfig
	if err := decodeStrict(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	config.applyDefaults()

	// Hash the normalized config so formatting and omitted defaults do not
	// produce distinct engines.
	hash, err := hashYAML(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := cl.sf.Do(hash, func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if engine, ok := cl.cached(hash); ok {
			return engine, nil
		}
		if err := cl.validator.Struct(config); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
		}
		engine, err := NewEngine(config, cl.registry, cl.opts...)
		if err != nil {
			return nil, err
		}

		cl.cacheMu.Lock()
		cl.cache[hash] = engine
		cl.cacheMu.Unlock()
		return engine, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Engine), nil
}

func (cl *ConfigLoader) cached(hash string) (*Engine, bool) {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()
	engine, ok := cl.cache[hash]
	return engine, ok
}

// ClearCache drops every cached engine.
func (cl *ConfigLoader) ClearCache() {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()
	cl.cache = make(map[string]*Engine)
}

// decodeStrict decodes YAML (or JSON, which YAML accepts) into out,
// rejecting unknown fields.
func decodeStrict(data []byte, out any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		if err == io.EOF {
			return fmt.Errorf("empty document")
		}
		return fmt.Errorf("YAML decode failed: %w", err)
	}
	return nil
}

var _ ports.ConfigLoader = (*YAMLSource)(nil)

// YAMLSource reads one YAML or JSON document from a file. It loads engine
// configurations and evaluation inputs alike.
type YAMLSource struct {
	Path string
}

// Load decodes the document at s.Path into config, which must be a
// pointer. Unknown fields are rejected.
func (s YAMLSource) Load(ctx context.Context, config any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Clean(s.Path))
	if err != nil {
		if os.IsNotExist(err) {
			return ports.NewConfigError(ports.ConfigSourceFile, s.Path, ports.ErrConfigNotFound)
		}
		return ports.NewConfigError(ports.ConfigSourceFile, s.Path, err)
	}
	if err := decodeStrict(data, config); err != nil {
		return ports.NewConfigError(ports.ConfigSourceFile, s.Path, err)
	}
	return nil
}
