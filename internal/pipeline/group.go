package pipeline

import (
	"strings"

	"tickerize/internal"
)

type run struct {
	start, end int
	matched    bool
}

// runs splits items into maximal runs of consecutive matching items. Each
// non-matching item forms a run of its own.
func runs[T any](items []T, match func(T) bool) []run {
	out := make([]run, 0, len(items))
	for i := 0; i < len(items); {
		if !match(items[i]) {
			out = append(out, run{start: i, end: i + 1})
			i++
			continue
		}
		j := i + 1
		for j < len(items) && match(items[j]) {
			j++
		}
		out = append(out, run{start: i, end: j, matched: true})
		i = j
	}
	return out
}

// GroupEntities merges consecutive PERSON/ORGANIZATION tokens into a single
// ORGANIZATION span. Every other token becomes its own span labelled O.
func GroupEntities(tokens []internal.TaggedToken) []internal.Span {
	grouped := runs(tokens, func(t internal.TaggedToken) bool { return t.Label.IsCompanyLike() })
	spans := make([]internal.Span, 0, len(grouped))
	for _, r := range grouped {
		if !r.matched {
			spans = append(spans, internal.Span{Text: tokens[r.start].Text, Label: internal.LabelOther})
			continue
		}
		words := make([]string, 0, r.end-r.start)
		for _, t := range tokens[r.start:r.end] {
			words = append(words, t.Text)
		}
		spans = append(spans, internal.Span{Text: strings.Join(words, " "), Label: internal.LabelOrganization})
	}
	return spans
}

func joinSpans(spans []internal.Span) string {
	texts := make([]string, 0, len(spans))
	for _, s := range spans {
		texts = append(texts, s.Text)
	}
	return strings.Join(texts, " ")
}
