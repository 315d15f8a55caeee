package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerize/internal"
	"tickerize/internal/corpus"
	"tickerize/internal/nlp"
	"tickerize/internal/storage"
)

type fakeExtractor struct {
	triples map[string][]internal.Triple
	err     error
}

func (f fakeExtractor) Extract(_ context.Context, text string) ([]internal.Triple, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.triples[text], nil
}

const testCorpus = `[
  {"Headline": "Apple reports record profit", "Date": "2014-01-28"},
  {"Headline": "Outage hits Microsoft", "Date": "2014-01-29"},
  {"Headline": "Shares of Microsoft fall", "Date": "2014-01-30"},
  {"Headline": "Markets close higher", "Date": "2014-01-31"}
]`

func testService(t *testing.T, db *storage.DB, workers int) *ProcessingService {
	t.Helper()
	tagger := orgTagger("Apple")
	tagger.fail["Outage"] = fmt.Errorf("%w: connection refused", nlp.ErrTaggerUnavailable)
	annotator := NewAnnotator(nlp.WhitespaceTokenizer{}, tagger, testCatalog("Apple Inc", "AAPL", "Microsoft Corp", "MSFT"))
	extractor := fakeExtractor{triples: map[string][]internal.Triple{
		"Shares of Microsoft fall": {{Subject: "Microsoft", Verb: "fall", Object: "Shares"}},
	}}
	return NewProcessingService(annotator, extractor, db, Options{Workers: workers, ProgressEvery: 2})
}

func readCorpus(t *testing.T) []*corpus.Record {
	t.Helper()
	records, err := corpus.Read(strings.NewReader(testCorpus))
	require.NoError(t, err)
	return records
}

func field(t *testing.T, rec *corpus.Record, key string) string {
	t.Helper()
	raw, ok := rec.Get(key)
	if !ok {
		return "<unset>"
	}
	return string(raw)
}

func TestProcessRecords(t *testing.T) {
	records := readCorpus(t)
	results, counts, err := testService(t, nil, 1).ProcessRecords(context.Background(), records)
	require.NoError(t, err)
	if len(results) != 4 {
		t.Fatalf("len=%d", len(results))
	}

	assert.Equal(t, `"__AAPL reports record profit"`, field(t, records[0], FieldOrgParse))
	assert.Equal(t, `true`, field(t, records[0], FieldOrgChangeMade))
	assert.Equal(t, `"__AAPL reports record profit"`, field(t, records[0], FieldOrgSubObjParse))
	assert.Equal(t, `true`, field(t, records[0], FieldOrgSubObjChangeMade))

	assert.Equal(t, `null`, field(t, records[1], FieldOrgParse))
	assert.Equal(t, "<unset>", field(t, records[1], FieldOrgChangeMade))
	assert.Equal(t, "<unset>", field(t, records[1], FieldOrgSubObjParse))
	assert.Equal(t, internal.StatusUnavailable, results[1].Status)
	assert.Nil(t, results[1].OrgParse)

	assert.Equal(t, `"Shares of Microsoft fall"`, field(t, records[2], FieldOrgParse))
	assert.Equal(t, `false`, field(t, records[2], FieldOrgChangeMade))
	assert.Equal(t, `"Shares of __MSFT fall"`, field(t, records[2], FieldOrgSubObjParse))
	assert.Equal(t, `true`, field(t, records[2], FieldOrgSubObjChangeMade))

	assert.Equal(t, `false`, field(t, records[3], FieldOrgChangeMade))

	assert.Equal(t, internal.RunCounts{Records: 4, Changed: 1, SubObjAdded: 1, Unavailable: 1}, counts)
	assert.Equal(t, []string{"Headline", "Date", FieldOrgParse, FieldOrgChangeMade, FieldOrgSubObjParse, FieldOrgSubObjChangeMade}, records[0].Keys())
}

func TestProcessRecordsWorkersKeepOrder(t *testing.T) {
	sequential := readCorpus(t)
	want, _, err := testService(t, nil, 1).ProcessRecords(context.Background(), sequential)
	require.NoError(t, err)

	parallel := readCorpus(t)
	got, _, err := testService(t, nil, 4).ProcessRecords(context.Background(), parallel)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	for i := range got {
		assert.Equal(t, i, got[i].Index)
		a, _ := sequential[i].MarshalJSON()
		b, _ := parallel[i].MarshalJSON()
		assert.JSONEq(t, string(a), string(b))
	}
}

func TestProcessRecordsExtractorUnavailable(t *testing.T) {
	svc := testService(t, nil, 1)
	svc.extractor = fakeExtractor{err: fmt.Errorf("%w: down", nlp.ErrExtractorUnavailable)}

	records := readCorpus(t)
	_, counts, err := svc.ProcessRecords(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, `"Shares of Microsoft fall"`, field(t, records[2], FieldOrgSubObjParse))
	assert.Equal(t, 0, counts.SubObjAdded)
}

func TestProcessRecordsExtractorFailureIsFatal(t *testing.T) {
	svc := testService(t, nil, 1)
	svc.extractor = fakeExtractor{err: fmt.Errorf("decode openie response")}

	_, _, err := svc.ProcessRecords(context.Background(), readCorpus(t))
	assert.ErrorContains(t, err, "extract triples")
}

func TestProcessFileWritesOutputAndRecordsRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "parsed_main.json")
	output := filepath.Join(dir, "out", "parsed_main_with_tickers.json")
	require.NoError(t, os.WriteFile(input, []byte(testCorpus), 0o644))

	db, err := storage.Open(filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	defer db.Close()

	res, err := testService(t, db, 2).ProcessFile(context.Background(), input, output)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 4, res.Counts.Records)

	written, err := corpus.ReadFile(output)
	require.NoError(t, err)
	require.Len(t, written, 4)
	assert.Equal(t, `"__AAPL reports record profit"`, field(t, written[0], FieldOrgParse))

	run, err := db.MustRun(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Counts, run.Counts)
	assert.NotNil(t, run.FinishedAt)

	rows, err := db.GetExportRows(res.RunID)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "unavailable", rows[1].Status)
	assert.Nil(t, rows[1].OrgParse)
}

func TestProcessFileMalformedRecordAborts(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.json")
	output := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(input, []byte(`[{"Headline": "Apple rises"}, {"Title": "no headline"}]`), 0o644))

	_, err := testService(t, nil, 1).ProcessFile(context.Background(), input, output)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessFileMissingInput(t *testing.T) {
	_, err := testService(t, nil, 1).ProcessFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"), "out.json")
	assert.Error(t, err)
}

func TestProcessFileFailedRunIsNotRecorded(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(good, []byte(testCorpus), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(`[{"Headline": "Apple rises"}, {"Title": "no headline"}]`), 0o644))

	db, err := storage.Open(filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	defer db.Close()

	svc := testService(t, db, 1)
	res, err := svc.ProcessFile(context.Background(), good, filepath.Join(dir, "good_out.json"))
	require.NoError(t, err)

	_, err = svc.ProcessFile(context.Background(), bad, filepath.Join(dir, "bad_out.json"))
	require.Error(t, err)

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	if len(runs) != 1 {
		t.Fatalf("len=%d", len(runs))
	}
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Equal(t, good, runs[0].Input)
	assert.NotNil(t, runs[0].FinishedAt)

	rows, err := db.GetExportRows(runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}
