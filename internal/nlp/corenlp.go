package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"tickerize/internal"
	"tickerize/internal/config"
)

const coreNLPMaxAttempts = 4

var errUnreachable = errors.New("corenlp server unreachable")

// CoreNLPClient talks to a Stanford CoreNLP server. It tags pre-tokenized
// text with the ner annotator and extracts triples with openie.
type CoreNLPClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type coreNLPToken struct {
	Word string `json:"word"`
	NER  string `json:"ner"`
}

type coreNLPTriple struct {
	Subject  string `json:"subject"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

type coreNLPSentence struct {
	Tokens []coreNLPToken  `json:"tokens"`
	OpenIE []coreNLPTriple `json:"openie"`
}

type coreNLPResponse struct {
	Sentences []coreNLPSentence `json:"sentences"`
}

func NewCoreNLPClient(cfg config.Config) *CoreNLPClient {
	rps := cfg.CoreNLPRateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	return &CoreNLPClient{
		baseURL:    strings.TrimRight(cfg.CoreNLPURL, "/"),
		httpClient: &http.Client{Timeout: time.Duration(cfg.CoreNLPTimeoutMs) * time.Millisecond},
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (c *CoreNLPClient) Tag(ctx context.Context, tokens []string) ([]internal.TaggedToken, error) {
	if len(tokens) == 0 {
		return []internal.TaggedToken{}, nil
	}
	props := map[string]string{
		"annotators":           "tokenize,ssplit,pos,lemma,ner",
		"tokenize.whitespace":  "true",
		"ssplit.eolonly":       "true",
		"ner.applyFineGrained": "false",
		"outputFormat":         "json",
	}
	resp, err := c.annotate(ctx, strings.Join(tokens, " "), props)
	if err != nil {
		if errors.Is(err, errUnreachable) {
			return nil, fmt.Errorf("%w: %v", ErrTaggerUnavailable, err)
		}
		return nil, err
	}

	produced := make([]internal.TaggedToken, 0, len(tokens))
	for _, s := range resp.Sentences {
		for _, tok := range s.Tokens {
			produced = append(produced, internal.TaggedToken{Text: tok.Word, Label: NormalizeLabel(tok.NER)})
		}
	}
	return alignLabels(tokens, produced), nil
}

func (c *CoreNLPClient) Extract(ctx context.Context, text string) ([]internal.Triple, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	props := map[string]string{
		"annotators":           "tokenize,ssplit,pos,lemma,depparse,natlog,openie",
		"openie.triple.strict": "true",
		"outputFormat":         "json",
	}
	resp, err := c.annotate(ctx, text, props)
	if err != nil {
		if errors.Is(err, errUnreachable) {
			return nil, fmt.Errorf("%w: %v", ErrExtractorUnavailable, err)
		}
		return nil, err
	}

	var out []internal.Triple
	for _, s := range resp.Sentences {
		for _, tr := range s.OpenIE {
			out = append(out, internal.Triple{Subject: tr.Subject, Verb: tr.Relation, Object: tr.Object})
		}
	}
	return out, nil
}

func (c *CoreNLPClient) annotate(ctx context.Context, text string, props map[string]string) (*coreNLPResponse, error) {
	propsJSON, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	u := c.baseURL + "/?properties=" + url.QueryEscape(string(propsJSON))

	var lastErr error
	for attempt := 1; attempt <= coreNLPMaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewBufferString(text))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %v", errUnreachable, err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < coreNLPMaxAttempts {
				log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Msg("corenlp retry")
				backoff := time.Duration(100*(1<<(attempt-1))+rand.Intn(50)) * time.Millisecond
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
				}
				lastErr = fmt.Errorf("corenlp status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("corenlp error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var out coreNLPResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decode corenlp response: %w", err)
		}
		return &out, nil
	}

	if lastErr == nil {
		lastErr = errors.New("corenlp request failed")
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
