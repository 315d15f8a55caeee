package pipeline

import (
	"strings"

	"tickerize/internal/catalog"
	"tickerize/internal/util"
)

// Matcher resolves a possibly multi-word name to a ticker.
type Matcher struct {
	index    *catalog.Index
	maxWords int
}

func NewMatcher(cat *catalog.Catalog) *Matcher {
	return NewMatcherWithWindow(cat, cat.MaxWords())
}

// NewMatcherWithWindow bounds the largest window tried to maxWords words.
func NewMatcherWithWindow(cat *catalog.Catalog, maxWords int) *Matcher {
	return &Matcher{index: cat.Index(), maxWords: maxWords}
}

// Match tries every window of words in name, longest first and left to
// right, against each catalog entry in catalog order. A window matches when
// it is a case-insensitive substring of the company name or equals the
// ticker. The stored ticker is returned.
func (m *Matcher) Match(name string) (string, bool) {
	words := util.SplitWords(name)
	size := m.maxWords
	if len(words) < size {
		size = len(words)
	}

	for ; size >= 1; size-- {
		for start := 0; start+size <= len(words); start++ {
			subset := strings.ToLower(strings.Join(words[start:start+size], " "))
			if strings.TrimSpace(subset) == "" {
				continue
			}
			for _, e := range m.index.Entries {
				if strings.Contains(e.LowerCompany, subset) {
					return e.Ticker, true
				}
				if subset == e.LowerTicker {
					return e.Ticker, true
				}
			}
		}
	}
	return "", false
}
