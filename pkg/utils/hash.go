package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CacheKey hashes parts into a stable hex key. Parts are separated by a
// unit separator so ("ab","c") and ("a","bc") differ.
func CacheKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
