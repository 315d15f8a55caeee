package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/phuslu/log"

	"tickerize/internal/config"
	"tickerize/internal/storage"
)

type SyncService struct {
	db     *storage.DB
	client *SECClient
	cfg    config.Config
}

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewSECClient(cfg), cfg: cfg}
}

// SyncSEC replaces the stored catalog with the EDGAR listing.
func (s *SyncService) SyncSEC(ctx context.Context) (int, error) {
	entries, err := s.client.FetchTickers(ctx)
	if err != nil {
		return 0, err
	}
	cat := New(entries)
	if err := s.db.ReplaceTickers(cat.Entries()); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("catalog.last_sync", time.Now().UTC().Format(time.RFC3339))
	_ = s.db.SetMetadata("catalog.source", s.cfg.SECTickersURL)
	log.Info().Int("tickers", cat.Len()).Int("max_words", cat.MaxWords()).Msg("sec catalog stored")
	return cat.Len(), nil
}

// ImportFile replaces the stored catalog with the contents of a catalog file.
func (s *SyncService) ImportFile(path string) (int, error) {
	cat, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	if err := s.db.ReplaceTickers(cat.Entries()); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("catalog.last_sync", time.Now().UTC().Format(time.RFC3339))
	_ = s.db.SetMetadata("catalog.source", path)
	return cat.Len(), nil
}

// LoadFromDB builds a catalog from the stored tickers.
func LoadFromDB(db *storage.DB) (*Catalog, error) {
	entries, err := db.ListTickers()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("stored catalog is empty, run catalog:import or catalog:sync first")
	}
	return New(entries), nil
}
