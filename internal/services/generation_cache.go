package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"venturekit/internal/models"

	"github.com/patrickmn/go-cache"
)

// Heavier structured operations (business plans, legal drafts) cache for 15
// minutes; conversational generation is never cached.
const generationCacheTTL = 15 * time.Minute

// GenerationCache is the passive lookaside in front of the provider. Only
// the gateway touches it; stale-but-bounded reads are acceptable.
type GenerationCache struct {
	cache *cache.Cache
}

// NewGenerationCache creates the lookaside cache.
func NewGenerationCache() *GenerationCache {
	return &GenerationCache{
		cache: cache.New(generationCacheTTL, 5*time.Minute),
	}
}

// CacheKey derives the deterministic key for (operation, semantic inputs,
// user). Raw inputs are hashed so prompt text never becomes a map key.
func CacheKey(operation, userID string, inputs ...string) string {
	sum := sha256.Sum256([]byte(operation + "|" + userID + "|" + strings.Join(inputs, "|")))
	return operation + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached result for a key, if present and unexpired.
func (c *GenerationCache) Get(key string) (*models.GenerationResult, bool) {
	value, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	result, ok := value.(*models.GenerationResult)
	if !ok {
		return nil, false
	}
	return result, true
}

// Set stores a successful result under the key with the standard TTL.
func (c *GenerationCache) Set(key string, result *models.GenerationResult) {
	c.cache.Set(key, result, cache.DefaultExpiration)
}
