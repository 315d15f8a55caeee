package catalog

import (
	"strings"

	"tickerize/internal"
	"tickerize/internal/util"
)

// MarkerPrefix is prepended to a ticker when it replaces text in a headline.
const MarkerPrefix = "__"

func Mark(ticker string) string {
	return MarkerPrefix + ticker
}

// Catalog is an ordered company name to ticker mapping. Iteration order is
// the order entries were loaded in, which decides ties during matching.
type Catalog struct {
	entries  []internal.TickerEntry
	index    *Index
	maxWords int
}

// New keeps the first occurrence of each company name and drops entries with
// an empty name or ticker.
func New(entries []internal.TickerEntry) *Catalog {
	seen := make(map[string]struct{}, len(entries))
	kept := make([]internal.TickerEntry, 0, len(entries))
	maxWords := 0
	for _, e := range entries {
		company := strings.TrimSpace(e.Company)
		ticker := strings.TrimSpace(e.Ticker)
		if company == "" || ticker == "" {
			continue
		}
		if _, dup := seen[company]; dup {
			continue
		}
		seen[company] = struct{}{}
		kept = append(kept, internal.TickerEntry{Company: company, Ticker: ticker})
		if n := util.WordCount(company); n > maxWords {
			maxWords = n
		}
	}

	return &Catalog{entries: kept, index: BuildIndex(kept), maxWords: maxWords}
}

func (c *Catalog) Entries() []internal.TickerEntry {
	out := make([]internal.TickerEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Len() int { return len(c.entries) }

// MaxWords is the word count of the longest company name.
func (c *Catalog) MaxWords() int { return c.maxWords }

func (c *Catalog) Index() *Index { return c.index }

// IsMarked reports whether word is a marked ticker from this catalog.
func (c *Catalog) IsMarked(word string) bool {
	_, ok := c.index.Marked[word]
	return ok
}

// ContainsMarked reports whether any space-separated word of text is a
// marked ticker.
func (c *Catalog) ContainsMarked(text string) bool {
	for _, word := range util.SplitWords(text) {
		if c.IsMarked(word) {
			return true
		}
	}
	return false
}

// CompaniesFor lists the company names stored under ticker, in catalog order.
func (c *Catalog) CompaniesFor(ticker string) []string {
	positions := c.index.ByTicker[strings.ToLower(ticker)]
	out := make([]string, 0, len(positions))
	for _, i := range positions {
		out = append(out, c.entries[i].Company)
	}
	return out
}
