package nodata

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jpfielding/rok4tile.go/pkg/datasource"
	"github.com/jpfielding/rok4tile.go/pkg/encoder"
	"github.com/jpfielding/rok4tile.go/pkg/options"
	"github.com/karlseguin/ccache/v3"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxSize = 256
	DefaultTTL     = time.Hour
)

// Tile is a shared no-data tile. Its Release is a no-op.
type Tile interface {
	datasource.DataSource
	ID() string
	ETag() string
}

type shared struct{ *Source }

func (shared) Release() bool { return false }

// RegistryConfig tunes a Registry.
type RegistryConfig struct {
	MaxSize int64
	TTL     time.Duration
	Encoder []encoder.Option
}

type Option = options.Option[*RegistryConfig]

// WithMaxSize bounds the number of cached tiles.
func WithMaxSize(n int64) Option {
	return options.New(func(c *RegistryConfig) error {
		if n <= 0 {
			return fmt.Errorf("registry size must be positive, got %d", n)
		}
		c.MaxSize = n
		return nil
	})
}

// WithTTL sets how long a tile stays cached.
func WithTTL(d time.Duration) Option {
	return options.New(func(c *RegistryConfig) error {
		if d <= 0 {
			return fmt.Errorf("registry ttl must be positive, got %s", d)
		}
		c.TTL = d
		return nil
	})
}

// WithEncoderOptions passes opts to every encoder the registry runs.
func WithEncoderOptions(opts ...encoder.Option) Option {
	return options.NoError(func(c *RegistryConfig) {
		c.Encoder = append(c.Encoder, opts...)
	})
}

// Registry caches no-data tiles by parameters. Concurrent requests for the
// same parameters share a single build.
type Registry struct {
	cache    *ccache.Cache[*Source]
	inflight singleflight.Group
	cfg      RegistryConfig
	build    func(Params, ...encoder.Option) (*Source, error)
}

func NewRegistry(opts ...Option) (*Registry, error) {
	cfg := RegistryConfig{MaxSize: DefaultMaxSize, TTL: DefaultTTL}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	prune := uint32(cfg.MaxSize / 8)
	if prune == 0 {
		prune = 1
	}
	return &Registry{
		cache: ccache.New(ccache.Configure[*Source]().MaxSize(cfg.MaxSize).ItemsToPrune(prune)),
		cfg:   cfg,
		build: New,
	}, nil
}

// Get returns the tile for p, building it on first use.
func (r *Registry) Get(p Params) (Tile, error) {
	key := p.ID()
	if item := r.cache.Get(key); item != nil && !item.Expired() {
		return shared{item.Value()}, nil
	}
	v, err, _ := r.inflight.Do(key, func() (any, error) {
		if item := r.cache.Get(key); item != nil && !item.Expired() {
			return item.Value(), nil
		}
		src, err := r.build(p, r.cfg.Encoder...)
		if err != nil {
			slog.Warn("no-data tile build failed", "format", p.Format, "width", p.Width, "height", p.Height, "error", err)
			return nil, err
		}
		r.cache.Set(key, src, r.cfg.TTL)
		return src, nil
	})
	if err != nil {
		return nil, err
	}
	return shared{v.(*Source)}, nil
}

// Len is the number of cached tiles.
func (r *Registry) Len() int { return r.cache.ItemCount() }

// Stop ends the cache's background worker.
func (r *Registry) Stop() { r.cache.Stop() }
