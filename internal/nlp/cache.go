package nlp

import (
	"context"

	"github.com/phuslu/log"

	"tickerize/internal"
	"tickerize/internal/util"
)

type TagStore interface {
	GetTaggedTokens(key string) ([]internal.TaggedToken, error)
	PutTaggedTokens(key string, tokens []internal.TaggedToken) error
}

// CachedTagger memoises another tagger's output by token sequence. Failed
// taggings are never stored.
type CachedTagger struct {
	name  string
	inner Tagger
	store TagStore
}

func NewCachedTagger(name string, inner Tagger, store TagStore) *CachedTagger {
	return &CachedTagger{name: name, inner: inner, store: store}
}

func (c *CachedTagger) Tag(ctx context.Context, tokens []string) ([]internal.TaggedToken, error) {
	key := c.name + ":" + util.HashKey(tokens)
	cached, err := c.store.GetTaggedTokens(key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("tag cache read failed")
	} else if cached != nil && len(cached) == len(tokens) {
		return cached, nil
	}

	tagged, err := c.inner.Tag(ctx, tokens)
	if err != nil {
		return nil, err
	}
	if err := c.store.PutTaggedTokens(key, tagged); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("tag cache write failed")
	}
	return tagged, nil
}
