package catalog

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerize/internal/storage"
)

func TestSyncSECStoresCatalog(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer db.Close()

	cfg := testSECConfig()
	svc := NewSyncService(db, cfg)
	svc.client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			body := `{"1": {"cik_str": 2, "ticker": "MSFT", "title": "Microsoft Corp"}, "0": {"cik_str": 1, "ticker": "AAPL", "title": "Apple Inc."}}`
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body)), Header: make(http.Header)}, nil
		}),
	}

	n, err := svc.SyncSEC(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cat, err := LoadFromDB(db)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", cat.Entries()[0].Ticker)

	source, err := db.GetMetadata("catalog.source")
	require.NoError(t, err)
	require.NotNil(t, source)
	assert.Equal(t, cfg.SECTickersURL, *source)

	synced, err := db.GetMetadata("catalog.last_sync")
	require.NoError(t, err)
	assert.NotNil(t, synced)
}
