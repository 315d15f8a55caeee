package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tickerize/internal"
	"tickerize/internal/catalog"
	"tickerize/internal/nlp"
	"tickerize/internal/util"
)

// Annotator replaces organization mentions in a headline with marked tickers.
type Annotator struct {
	tokenizer nlp.Tokenizer
	tagger    nlp.Tagger
	catalog   *catalog.Catalog
	matcher   *Matcher
}

func NewAnnotator(tokenizer nlp.Tokenizer, tagger nlp.Tagger, cat *catalog.Catalog) *Annotator {
	return &Annotator{
		tokenizer: tokenizer,
		tagger:    tagger,
		catalog:   cat,
		matcher:   NewMatcher(cat),
	}
}

// Annotate tokenizes and tags headline, groups entity runs and substitutes
// every group the matcher resolves. When the tagger is unavailable the
// returned annotation has StatusUnavailable and a nil error.
func (a *Annotator) Annotate(ctx context.Context, headline string) (internal.Annotation, error) {
	tokens, err := a.tokenizer.Tokenize(CleanHeadline(headline))
	if err != nil {
		return internal.Annotation{}, err
	}

	tagged, err := a.tagger.Tag(ctx, tokens)
	if err != nil {
		if errors.Is(err, nlp.ErrTaggerUnavailable) {
			return internal.Annotation{Status: internal.StatusUnavailable}, nil
		}
		return internal.Annotation{}, fmt.Errorf("tag headline: %w", err)
	}

	spans := GroupEntities(tagged)
	for i, span := range spans {
		if span.Label != internal.LabelOrganization {
			continue
		}
		if ticker, ok := a.matcher.Match(span.Text); ok {
			spans[i].Text = catalog.Mark(ticker)
		}
	}

	text := joinSpans(spans)
	return internal.Annotation{
		Text:    text,
		Changed: a.catalog.ContainsMarked(text),
		Status:  internal.StatusTagged,
	}, nil
}

// SubstituteSubjectsObjects runs the second pass over an annotated text:
// each word equal to a subject or object of triples is matched again and
// replaced by its marked ticker.
func (a *Annotator) SubstituteSubjectsObjects(text string, triples []internal.Triple) (string, bool) {
	targets := map[string]struct{}{}
	for _, tr := range triples {
		targets[tr.Subject] = struct{}{}
		targets[tr.Object] = struct{}{}
	}

	words := util.SplitWords(text)
	for i, word := range words {
		if _, ok := targets[word]; !ok {
			continue
		}
		if ticker, ok := a.matcher.Match(word); ok {
			words[i] = catalog.Mark(ticker)
		}
	}

	out := strings.Join(words, " ")
	return out, a.catalog.ContainsMarked(out)
}
