package corpus

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `[
  {"Headline": "Apple reports record profit", "Date": "2014-01-28", "Provider": "Reuters"},
  {"Provider": "AP", "Headline": "Bank of America <b>cuts</b> jobs", "Extra": {"n": 1}}
]`

func TestReadKeepsFieldOrder(t *testing.T) {
	records, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"Headline", "Date", "Provider"}, records[0].Keys())
	assert.Equal(t, []string{"Provider", "Headline", "Extra"}, records[1].Keys())

	headline, err := records[1].Headline()
	require.NoError(t, err)
	assert.Equal(t, "Bank of America <b>cuts</b> jobs", headline)
}

func TestSetAppendsAndReplaces(t *testing.T) {
	records, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	rec := records[0]

	require.NoError(t, rec.Set("org_parse", "__AAPL reports record profit"))
	require.NoError(t, rec.Set("org_change_made", true))
	require.NoError(t, rec.Set("Date", "2014-01-29"))

	assert.Equal(t, []string{"Headline", "Date", "Provider", "org_parse", "org_change_made"}, rec.Keys())
	raw, ok := rec.Get("Date")
	require.True(t, ok)
	assert.Equal(t, `"2014-01-29"`, string(raw))
}

func TestWriteIndentsWithoutEscaping(t *testing.T) {
	records, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.NoError(t, records[1].Set("org_parse", nil))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "[\n  {\n    \"Headline\": \"Apple reports record profit\","))
	assert.Contains(t, out, `<b>cuts</b>`)
	assert.Contains(t, out, `"org_parse": null`)
	assert.Contains(t, out, "\"Extra\": {\n      \"n\": 1\n    }")

	again, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, records[1].Keys(), again[1].Keys())
}

func TestHeadlineErrors(t *testing.T) {
	records, err := Read(strings.NewReader(`[{"Date": "x"}, {"Headline": 3}]`))
	require.NoError(t, err)

	_, err = records[0].Headline()
	assert.ErrorContains(t, err, "missing Headline")

	_, err = records[1].Headline()
	assert.ErrorContains(t, err, "not a string")
}

func TestReadRejectsNonObjects(t *testing.T) {
	for name, input := range map[string]string{
		"object root": `{"Headline": "x"}`,
		"null item":   `[null]`,
		"string item": `["x"]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "parsed_main_with_tickers.json")
	require.NoError(t, WriteFile(path, nil))

	blob, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(blob))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
