package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"tickerize/internal"
)

// LoadFile reads a catalog file, picking the decoder from the extension.
func LoadFile(path string) (*Catalog, error) {
	entries, err := ReadEntriesFile(path)
	if err != nil {
		return nil, err
	}
	return New(entries), nil
}

func ReadEntriesFile(path string) ([]internal.TickerEntry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		entries, err := ReadJSON(f)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		return entries, nil
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		entries, err := ReadYAML(f)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		return entries, nil
	case ".xlsx":
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		entries, err := ReadXLSX(blob)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", path)
	}
}

// ReadJSON decodes a JSON object of company name to ticker, keeping the key
// order of the document.
func ReadJSON(r io.Reader) ([]internal.TickerEntry, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("catalog must be a JSON object")
	}

	out := []internal.TickerEntry{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		company, _ := keyTok.(string)
		var ticker string
		if err := dec.Decode(&ticker); err != nil {
			return nil, fmt.Errorf("ticker for %q: %w", company, err)
		}
		out = append(out, internal.TickerEntry{Company: company, Ticker: ticker})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteJSON encodes entries as an indented JSON object in entry order.
func WriteJSON(w io.Writer, entries []internal.TickerEntry) error {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, e := range entries {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := json.Marshal(e.Company)
		if err != nil {
			return err
		}
		value, err := json.Marshal(e.Ticker)
		if err != nil {
			return err
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
	}
	if len(entries) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadYAML accepts either a mapping of company to ticker or a sequence of
// {company, ticker} mappings. Document order is kept.
func ReadYAML(r io.Reader) ([]internal.TickerEntry, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []internal.TickerEntry{}, nil
		}
		return nil, err
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	out := []internal.TickerEntry{}
	switch root.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			key, value := root.Content[i], root.Content[i+1]
			if value.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: ticker for %q must be a scalar", value.Line, key.Value)
			}
			out = append(out, internal.TickerEntry{Company: key.Value, Ticker: value.Value})
		}
	case yaml.SequenceNode:
		for _, item := range root.Content {
			var e internal.TickerEntry
			if err := item.Decode(&e); err != nil {
				return nil, fmt.Errorf("line %d: %w", item.Line, err)
			}
			out = append(out, e)
		}
	default:
		return nil, errors.New("catalog must be a YAML mapping or sequence")
	}
	return out, nil
}

// ReadXLSX reads company and ticker from the first two columns of the first
// sheet. A header row naming the columns is skipped.
func ReadXLSX(content []byte) ([]internal.TickerEntry, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []internal.TickerEntry{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	out := make([]internal.TickerEntry, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		if i == 0 && isHeaderRow(row) {
			continue
		}
		out = append(out, internal.TickerEntry{Company: row[0], Ticker: row[1]})
	}
	return out, nil
}

func isHeaderRow(row []string) bool {
	first := strings.ToLower(strings.TrimSpace(row[0]))
	second := strings.ToLower(strings.TrimSpace(row[1]))
	return (first == "company" || first == "name" || first == "title") &&
		(second == "ticker" || second == "symbol")
}
