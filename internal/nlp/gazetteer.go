package nlp

import (
	"context"
	"strings"

	"tickerize/internal"
	"tickerize/internal/util"
)

// GazetteerTagger labels token runs that spell a known company name or
// ticker as ORGANIZATION, preferring the longest run at each position.
type GazetteerTagger struct {
	phrases map[string]struct{}
	maxLen  int
}

func NewGazetteerTagger(entries []internal.TickerEntry) *GazetteerTagger {
	g := &GazetteerTagger{phrases: map[string]struct{}{}, maxLen: 1}
	for _, e := range entries {
		for _, phrase := range []string{e.Company, e.Ticker} {
			key := strings.ToLower(util.NormalizeSpaces(phrase))
			if key == "" {
				continue
			}
			g.phrases[key] = struct{}{}
			if n := len(strings.Fields(key)); n > g.maxLen {
				g.maxLen = n
			}
		}
	}
	return g
}

func (g *GazetteerTagger) Tag(_ context.Context, tokens []string) ([]internal.TaggedToken, error) {
	out := make([]internal.TaggedToken, len(tokens))
	i := 0
	for i < len(tokens) {
		matchLen := 0
		longest := g.maxLen
		if remaining := len(tokens) - i; longest > remaining {
			longest = remaining
		}
		for n := longest; n >= 1; n-- {
			key := strings.ToLower(strings.Join(tokens[i:i+n], " "))
			if _, ok := g.phrases[key]; ok {
				matchLen = n
				break
			}
		}

		if matchLen == 0 {
			out[i] = internal.TaggedToken{Text: tokens[i], Label: internal.LabelOther}
			i++
			continue
		}
		for k := i; k < i+matchLen; k++ {
			out[k] = internal.TaggedToken{Text: tokens[k], Label: internal.LabelOrganization}
		}
		i += matchLen
	}
	return out, nil
}
