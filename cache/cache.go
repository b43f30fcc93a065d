package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
)

// Cache is a bounded memo table. Entries expire on a TTL and implementations
// hold at most a fixed number of entries; misses are always safe.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// Key hashes its parts into a fixed-width cache key. Parts are joined with a
// NUL byte so ("ab","c") and ("a","bc") cannot collide.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%x", sum)
}
