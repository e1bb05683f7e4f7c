package embedding

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"
)

// CachedProvider memoizes embeddings per model version, task type and input text.
type CachedProvider struct {
	inner EmbeddingProvider
	cache *cache.Cache
}

func NewCachedProvider(inner EmbeddingProvider, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachedProvider{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (p *CachedProvider) ModelVersion() string { return p.inner.ModelVersion() }

func (p *CachedProvider) Dimensions() int { return p.inner.Dimensions() }

func (p *CachedProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	key := p.key(text, taskType)
	if x, found := p.cache.Get(key); found {
		return x.(*EmbeddingResponse), nil
	}

	res, err := p.inner.Generate(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	p.cache.Set(key, res, cache.DefaultExpiration)
	return res, nil
}

func (p *CachedProvider) key(text, taskType string) string {
	h := xxhash.New()
	_, _ = h.WriteString(p.inner.ModelVersion())
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(taskType)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(text)
	return string(h.Sum(nil))
}
