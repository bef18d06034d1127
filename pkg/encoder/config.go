package encoder

import (
	"fmt"

	"github.com/jpfielding/rok4tile.go/pkg/compress"
	"github.com/jpfielding/rok4tile.go/pkg/options"
)

// Config holds the tunables shared by every encoder.
type Config struct {
	// MaxBuffer caps the compressed payload buffer of the TIFF encoders.
	MaxBuffer int
	// DeflateLevel overrides the zlib level; 0 keeps the codec default
	// (6 for TIFF, 5 for PNG).
	DeflateLevel int
	// Quality of the JPEG encoder, 1 to 100.
	Quality int
	// GeoTIFF embeds the placement of georeferenced images.
	GeoTIFF bool
}

// Option configures an encoder.
type Option = options.Option[*Config]

// DefaultQuality is the JPEG quality used when none is given
const DefaultQuality = 75

// DefaultConfig returns the encoder defaults.
func DefaultConfig() *Config {
	return &Config{MaxBuffer: compress.DefaultMaxBuffer, Quality: DefaultQuality}
}

func newConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithMaxBuffer bounds the buffer a compressor may grow to.
func WithMaxBuffer(n int) Option {
	return options.New(func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("encoder: max buffer must be positive, got %d", n)
		}
		c.MaxBuffer = n
		return nil
	})
}

// WithDeflateLevel sets the zlib level of deflate TIFF and PNG output.
func WithDeflateLevel(level int) Option {
	return options.New(func(c *Config) error {
		if level < 1 || level > 9 {
			return fmt.Errorf("encoder: deflate level %d out of range [1,9]", level)
		}
		c.DeflateLevel = level
		return nil
	})
}

// WithQuality sets the JPEG quality.
func WithQuality(q int) Option {
	return options.New(func(c *Config) error {
		if q < 1 || q > 100 {
			return fmt.Errorf("encoder: jpeg quality %d out of range [1,100]", q)
		}
		c.Quality = q
		return nil
	})
}

// WithGeoTIFF toggles GeoTIFF tags on TIFF output.
func WithGeoTIFF(enabled bool) Option {
	return options.NoError(func(c *Config) {
		c.GeoTIFF = enabled
	})
}

func (c *Config) deflateLevel(fallback int) int {
	if c.DeflateLevel == 0 {
		return fallback
	}
	return c.DeflateLevel
}
