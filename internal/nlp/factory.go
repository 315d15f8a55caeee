package nlp

import (
	"fmt"
	"strings"

	"tickerize/internal"
	"tickerize/internal/config"
)

// NewTagger builds the tagger named by TAGGER. The gazetteer tagger is fed
// from the catalog entries; store may be nil when caching is off.
func NewTagger(cfg config.Config, name string, entries []internal.TickerEntry, store TagStore) (Tagger, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	var tagger Tagger
	switch name {
	case "stanford":
		tagger = NewStanfordTagger(cfg)
	case "corenlp":
		tagger = NewCoreNLPClient(cfg)
	case "prose":
		tagger = ProseTagger{}
	case "gazetteer":
		tagger = NewGazetteerTagger(entries)
	default:
		return nil, fmt.Errorf("unsupported tagger: %s", name)
	}
	if cfg.TagCache && store != nil {
		tagger = NewCachedTagger(name, tagger, store)
	}
	return tagger, nil
}

func NewExtractor(cfg config.Config, name string) (SVOExtractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "corenlp":
		return NewCoreNLPClient(cfg), nil
	case "none", "":
		return NoopExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported svo extractor: %s", name)
	}
}

func NewTokenizer(name string) (Tokenizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "prose", "":
		return ProseTokenizer{}, nil
	case "whitespace":
		return WhitespaceTokenizer{}, nil
	default:
		return nil, fmt.Errorf("unsupported tokenizer: %s", name)
	}
}
