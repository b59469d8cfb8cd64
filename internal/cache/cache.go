package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Cache defines the interface for byte-level caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// VerdictKey generates the cache key for a quality verdict
func VerdictKey(opinionID int64, version int) string {
	return fmt.Sprintf("shepard:verdict:v%d:%d", version, opinionID)
}

// ResponseKey generates the cache key for a fetched API response
func ResponseKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "shepard:response:" + hex.EncodeToString(hash[:])
}
