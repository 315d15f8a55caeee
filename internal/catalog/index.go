package catalog

import (
	"strings"

	"tickerize/internal"
)

type IndexedEntry struct {
	Company      string
	Ticker       string
	LowerCompany string
	LowerTicker  string
}

// Index holds lowercased catalog entries in catalog order plus the set of
// marked tickers used to detect substitutions.
type Index struct {
	Entries  []IndexedEntry
	ByTicker map[string][]int
	Marked   map[string]struct{}
}

func BuildIndex(entries []internal.TickerEntry) *Index {
	idx := &Index{
		Entries:  make([]IndexedEntry, 0, len(entries)),
		ByTicker: map[string][]int{},
		Marked:   map[string]struct{}{},
	}

	for i, e := range entries {
		lowerTicker := strings.ToLower(e.Ticker)
		idx.Entries = append(idx.Entries, IndexedEntry{
			Company:      e.Company,
			Ticker:       e.Ticker,
			LowerCompany: strings.ToLower(e.Company),
			LowerTicker:  lowerTicker,
		})
		idx.ByTicker[lowerTicker] = append(idx.ByTicker[lowerTicker], i)
		idx.Marked[Mark(e.Ticker)] = struct{}{}
	}

	return idx
}
