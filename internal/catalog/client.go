package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"tickerize/internal"
	"tickerize/internal/config"
)

const maxAttempts = 5

// SECClient downloads the EDGAR company ticker listing.
type SECClient struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

type secCompany struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

func NewSECClient(cfg config.Config) *SECClient {
	rps := cfg.SECRateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	return &SECClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.SECTimeoutMs) * time.Millisecond},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// FetchTickers returns the listing ordered by its numeric keys, which EDGAR
// assigns by market capitalisation.
func (c *SECClient) FetchTickers(ctx context.Context) ([]internal.TickerEntry, error) {
	body, err := c.fetch(ctx, c.cfg.SECTickersURL)
	if err != nil {
		return nil, err
	}

	var payload map[string]secCompany
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode sec tickers: %w", err)
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sortListingKeys(keys)

	out := make([]internal.TickerEntry, 0, len(keys))
	for _, k := range keys {
		company := payload[k]
		if strings.TrimSpace(company.Title) == "" || strings.TrimSpace(company.Ticker) == "" {
			continue
		}
		out = append(out, internal.TickerEntry{Company: company.Title, Ticker: company.Ticker})
	}
	return out, nil
}

// sortListingKeys orders numeric keys by value, then any other keys
// lexically after them.
func sortListingKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			if a != b {
				return a < b
			}
			return keys[i] < keys[j]
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}

func (c *SECClient) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.SECUserAgent) == "" {
		return nil, errors.New("missing SEC_USER_AGENT")
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.cfg.SECUserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Msg("sec request retry")
				if err := sleepCtx(ctx, backoff(attempt)); err != nil {
					return nil, err
				}
				lastErr = fmt.Errorf("sec status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("sec api error: status=%d body=%s", resp.StatusCode, truncate(string(body), 200))
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("sec request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func backoff(attempt int) time.Duration {
	return time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
