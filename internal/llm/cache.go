package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedModel memoizes replies per prompt. Errors are never cached.
type CachedModel struct {
	next  Model
	cache *gocache.Cache
}

// NewCachedModel returns next unchanged when ttl is not positive.
func NewCachedModel(next Model, ttl time.Duration) Model {
	if ttl <= 0 {
		return next
	}
	return &CachedModel{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (m *CachedModel) Generate(ctx context.Context, prompt string) (string, error) {
	key := promptKey(prompt)
	if cached, ok := m.cache.Get(key); ok {
		if reply, ok := cached.(string); ok {
			return reply, nil
		}
	}
	reply, err := m.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	m.cache.Set(key, reply, gocache.DefaultExpiration)
	return reply, nil
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
