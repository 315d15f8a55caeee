// Package nlp wraps the external language tools the annotator depends on:
// tokenization, named-entity tagging and subject/verb/object extraction.
package nlp

import (
	"context"
	"errors"
	"strings"

	"tickerize/internal"
)

// ErrTaggerUnavailable means the tagging resource (model, jar, server) could
// not be reached. Callers skip the headline instead of aborting the run.
var ErrTaggerUnavailable = errors.New("tagger unavailable")

// ErrExtractorUnavailable is the SVO counterpart of ErrTaggerUnavailable.
var ErrExtractorUnavailable = errors.New("svo extractor unavailable")

type Tokenizer interface {
	Tokenize(text string) ([]string, error)
}

type Tagger interface {
	Tag(ctx context.Context, tokens []string) ([]internal.TaggedToken, error)
}

type SVOExtractor interface {
	Extract(ctx context.Context, text string) ([]internal.Triple, error)
}

// NormalizeLabel maps back-end specific entity labels onto the shared set.
// IOB prefixes are stripped; unknown labels are kept upper-cased.
func NormalizeLabel(raw string) internal.Label {
	l := strings.ToUpper(strings.TrimSpace(raw))
	if len(l) > 2 && (strings.HasPrefix(l, "B-") || strings.HasPrefix(l, "I-") || strings.HasPrefix(l, "E-") || strings.HasPrefix(l, "S-")) {
		l = l[2:]
	}
	switch l {
	case "", "O":
		return internal.LabelOther
	case "PER", "PERSON":
		return internal.LabelPerson
	case "ORG", "ORGANIZATION", "ORGANISATION":
		return internal.LabelOrganization
	case "LOC", "LOCATION", "GPE":
		return internal.LabelLocation
	default:
		return internal.Label(l)
	}
}

// NoopExtractor never finds triples.
type NoopExtractor struct{}

func (NoopExtractor) Extract(context.Context, string) ([]internal.Triple, error) {
	return nil, nil
}

// alignLabels pairs input tokens with labels produced for a possibly
// different tokenization of the same text. Tokens are matched in order by
// text; tokens with no counterpart are labelled O.
func alignLabels(tokens []string, produced []internal.TaggedToken) []internal.TaggedToken {
	out := make([]internal.TaggedToken, len(tokens))
	if len(produced) == len(tokens) {
		for i, tok := range tokens {
			out[i] = internal.TaggedToken{Text: tok, Label: produced[i].Label}
		}
		return out
	}

	j := 0
	for i, tok := range tokens {
		out[i] = internal.TaggedToken{Text: tok, Label: internal.LabelOther}
		for k := j; k < len(produced); k++ {
			if produced[k].Text == tok {
				out[i].Label = produced[k].Label
				j = k + 1
				break
			}
		}
	}
	return out
}
