package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKeyStable(t *testing.T) {
	assert.Equal(t, CacheKey("v1", "aspirin", "warfarin"), CacheKey("v1", "aspirin", "warfarin"))
	assert.Len(t, CacheKey("x"), 64)
}

func TestCacheKeySeparatesParts(t *testing.T) {
	assert.NotEqual(t, CacheKey("ab", "c"), CacheKey("a", "bc"))
}
