package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type config struct {
	level int
	name  string
}

func withLevel(l int) Option[*config] {
	return New(func(c *config) error {
		if l < 0 || l > 9 {
			return errors.New("level out of range")
		}
		c.level = l
		return nil
	})
}

func withName(n string) Option[*config] {
	return NoError(func(c *config) { c.name = n })
}

func TestApply(t *testing.T) {
	c := &config{}
	require.NoError(t, Apply(c, withLevel(6), withName("deflate"), nil))
	assert.Equal(t, 6, c.level)
	assert.Equal(t, "deflate", c.name)
}

func TestApplyStopsOnError(t *testing.T) {
	c := &config{}
	err := Apply(c, withName("a"), withLevel(12), withName("b"))
	require.Error(t, err)
	assert.Equal(t, "a", c.name)
}
