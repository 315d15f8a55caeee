package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"tickerize/internal"
	"tickerize/internal/corpus"
	"tickerize/internal/nlp"
	"tickerize/internal/storage"
)

const (
	FieldOrgParse            = "org_parse"
	FieldOrgChangeMade       = "org_change_made"
	FieldOrgSubObjParse      = "org_sub_obj_parse"
	FieldOrgSubObjChangeMade = "org_sub_obj_change_made"
)

type Options struct {
	Workers       int
	ProgressEvery int
}

// ProcessingService annotates a whole corpus. db is optional; when set each
// run and its per-record results are recorded.
type ProcessingService struct {
	annotator *Annotator
	extractor nlp.SVOExtractor
	db        *storage.DB
	opts      Options
}

func NewProcessingService(annotator *Annotator, extractor nlp.SVOExtractor, db *storage.DB, opts Options) *ProcessingService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ProgressEvery < 1 {
		opts.ProgressEvery = 5
	}
	if extractor == nil {
		extractor = nlp.NoopExtractor{}
	}
	return &ProcessingService{annotator: annotator, extractor: extractor, db: db, opts: opts}
}

type ProcessResult struct {
	RunID   string
	Output  string
	Counts  internal.RunCounts
	Results []internal.RecordResult
}

// ProcessFile reads the corpus at input, annotates every record and writes
// the result to output once all records are done. Nothing is written and no
// run is recorded when a record fails.
func (s *ProcessingService) ProcessFile(ctx context.Context, input, output string) (ProcessResult, error) {
	start := time.Now()
	records, err := corpus.ReadFile(input)
	if err != nil {
		return ProcessResult{}, err
	}

	results, counts, err := s.ProcessRecords(ctx, records)
	if err != nil {
		return ProcessResult{}, err
	}

	if err := corpus.WriteFile(output, records); err != nil {
		return ProcessResult{}, err
	}

	runID := uuid.NewString()
	if s.db != nil {
		if err := s.db.RecordRun(runID, input, output, start, counts, results); err != nil {
			return ProcessResult{}, err
		}
	}

	log.Info().
		Str("run", runID).
		Int("records", counts.Records).
		Int("changed", counts.Changed).
		Int("unavailable", counts.Unavailable).
		Dur("duration", time.Since(start)).
		Msg("annotation complete")

	return ProcessResult{RunID: runID, Output: output, Counts: counts, Results: results}, nil
}

// ProcessRecords annotates records in place. Results keep record order
// whatever the number of workers.
func (s *ProcessingService) ProcessRecords(ctx context.Context, records []*corpus.Record) ([]internal.RecordResult, internal.RunCounts, error) {
	results := make([]internal.RecordResult, len(records))
	total := len(records)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, rec := range records {
		i, rec := i, rec // per-iteration copies for the goroutine below (go < 1.22)
		if i%s.opts.ProgressEvery == 0 {
			pct := int(math.Round(100 * float64(i) / float64(total)))
			log.Info().Int("index", i).Int("total", total).Msgf("%d/%d - %d%%", i, total, pct)
		}

		g.Go(func() error {
			res, err := s.processRecord(gctx, i, rec)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
		if gctx.Err() != nil {
			break
		}
	}
	if err := g.Wait(); err != nil {
		return nil, internal.RunCounts{}, err
	}

	counts := internal.RunCounts{Records: total}
	for _, r := range results {
		if r.Status == internal.StatusUnavailable {
			counts.Unavailable++
			continue
		}
		if r.OrgChangeMade {
			counts.Changed++
		}
		if r.OrgParse != nil && r.OrgSubObjParse != nil && *r.OrgParse != *r.OrgSubObjParse {
			counts.SubObjAdded++
		}
	}
	return results, counts, nil
}

func (s *ProcessingService) processRecord(ctx context.Context, index int, rec *corpus.Record) (internal.RecordResult, error) {
	headline, err := rec.Headline()
	if err != nil {
		return internal.RecordResult{}, err
	}

	ann, err := s.annotator.Annotate(ctx, headline)
	if err != nil {
		return internal.RecordResult{}, err
	}

	res := internal.RecordResult{Index: index, Headline: headline, Status: ann.Status}
	if ann.Status == internal.StatusUnavailable {
		log.Warn().Int("index", index).Msg("tagger unavailable, headline skipped")
		return res, rec.Set(FieldOrgParse, nil)
	}

	res.OrgParse = &ann.Text
	res.OrgChangeMade = ann.Changed
	if err := rec.Set(FieldOrgParse, ann.Text); err != nil {
		return res, err
	}
	if err := rec.Set(FieldOrgChangeMade, ann.Changed); err != nil {
		return res, err
	}

	triples, err := s.extractor.Extract(ctx, CleanHeadline(headline))
	if err != nil {
		if !errors.Is(err, nlp.ErrExtractorUnavailable) {
			return res, fmt.Errorf("extract triples: %w", err)
		}
		log.Warn().Int("index", index).Err(err).Msg("svo extractor unavailable")
		triples = nil
	}

	subObj, changed := s.annotator.SubstituteSubjectsObjects(ann.Text, triples)
	res.OrgSubObjParse = &subObj
	res.OrgSubObjChangeMade = changed
	if err := rec.Set(FieldOrgSubObjParse, subObj); err != nil {
		return res, err
	}
	if err := rec.Set(FieldOrgSubObjChangeMade, changed); err != nil {
		return res, err
	}
	return res, nil
}
