package randutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsDeterministic(t *testing.T) {
	t.Parallel()
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestNewDiffersBySeed(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t, New(1).Uint64(), New(2).Uint64())
}

func TestSeedIsPositive(t *testing.T) {
	t.Parallel()
	for i := 0; i < 50; i++ {
		assert.Positive(t, Seed())
	}
}
