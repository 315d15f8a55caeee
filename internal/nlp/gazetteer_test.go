package nlp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerize/internal"
	"tickerize/internal/config"
)

func TestGazetteerTaggerLongestRun(t *testing.T) {
	g := NewGazetteerTagger([]internal.TickerEntry{
		{Company: "Bank of America", Ticker: "BAC"},
		{Company: "Bank", Ticker: "BNK"},
	})

	tagged, err := g.Tag(context.Background(), strings.Fields("bank of america and Bank shares BAC"))
	require.NoError(t, err)
	assert.Equal(t, []internal.Label{
		internal.LabelOrganization, internal.LabelOrganization, internal.LabelOrganization,
		internal.LabelOther, internal.LabelOrganization, internal.LabelOther, internal.LabelOrganization,
	}, labels(tagged))
}

type memoryTagStore struct {
	data   map[string][]internal.TaggedToken
	writes int
}

func (m *memoryTagStore) GetTaggedTokens(key string) ([]internal.TaggedToken, error) {
	return m.data[key], nil
}

func (m *memoryTagStore) PutTaggedTokens(key string, tokens []internal.TaggedToken) error {
	m.writes++
	m.data[key] = tokens
	return nil
}

type countingTagger struct {
	calls int
	err   error
}

func (c *countingTagger) Tag(_ context.Context, tokens []string) ([]internal.TaggedToken, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := make([]internal.TaggedToken, len(tokens))
	for i, tok := range tokens {
		out[i] = internal.TaggedToken{Text: tok, Label: internal.LabelOther}
	}
	return out, nil
}

func TestCachedTagger(t *testing.T) {
	store := &memoryTagStore{data: map[string][]internal.TaggedToken{}}
	inner := &countingTagger{}
	tagger := NewCachedTagger("stanford", inner, store)

	for i := 0; i < 3; i++ {
		tagged, err := tagger.Tag(context.Background(), []string{"Apple", "rises"})
		require.NoError(t, err)
		require.Len(t, tagged, 2)
	}
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, store.writes)
}

func TestCachedTaggerDoesNotStoreFailures(t *testing.T) {
	store := &memoryTagStore{data: map[string][]internal.TaggedToken{}}
	inner := &countingTagger{err: ErrTaggerUnavailable}
	tagger := NewCachedTagger("stanford", inner, store)

	_, err := tagger.Tag(context.Background(), []string{"Apple"})
	assert.True(t, errors.Is(err, ErrTaggerUnavailable))
	assert.Equal(t, 0, store.writes)
}

func TestFactories(t *testing.T) {
	cfg := config.Config{TagCache: true}
	store := &memoryTagStore{data: map[string][]internal.TaggedToken{}}

	tagger, err := NewTagger(cfg, "gazetteer", nil, store)
	require.NoError(t, err)
	assert.IsType(t, &CachedTagger{}, tagger)

	cfg.TagCache = false
	tagger, err = NewTagger(cfg, "Prose", nil, nil)
	require.NoError(t, err)
	assert.IsType(t, ProseTagger{}, tagger)

	_, err = NewTagger(cfg, "spacy", nil, nil)
	assert.Error(t, err)

	ext, err := NewExtractor(cfg, "none")
	require.NoError(t, err)
	assert.IsType(t, NoopExtractor{}, ext)

	_, err = NewTokenizer("nltk")
	assert.Error(t, err)
}
