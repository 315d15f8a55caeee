package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tickerize/internal/catalog"
	"tickerize/internal/listener"
	"tickerize/internal/nlp"
	"tickerize/internal/pipeline"
	"tickerize/internal/util"
)

type annotateFlags struct {
	input         string
	output        string
	tickers       string
	catalogSource string
	workers       int
	tagger        string
	tokenizer     string
	svo           string
	noRecord      bool
}

func (f *annotateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.input, "input", "", "corpus JSON file (default $CORPUS_PATH)")
	cmd.Flags().StringVar(&f.output, "output", "", "annotated corpus path (default $OUTPUT_PATH)")
	cmd.Flags().StringVar(&f.tickers, "tickers", "", "ticker catalog file (default $TICKERS_PATH)")
	cmd.Flags().StringVar(&f.catalogSource, "catalog-source", "", "file|db (default $CATALOG_SOURCE)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "concurrent headlines (default $ANNOTATE_WORKERS)")
	cmd.Flags().StringVar(&f.tagger, "tagger", "", "stanford|corenlp|prose|gazetteer (default $TAGGER)")
	cmd.Flags().StringVar(&f.tokenizer, "tokenizer", "", "prose|whitespace (default $TOKENIZER)")
	cmd.Flags().StringVar(&f.svo, "svo", "", "corenlp|none (default $SVO_EXTRACTOR)")
	cmd.Flags().BoolVar(&f.noRecord, "no-record", false, "do not record the run in the database")
}

// apply folds explicit flags into the loaded configuration.
func (f *annotateFlags) apply(a *app) {
	cfg := &a.cfg
	cfg.CorpusPath = util.FirstNonEmpty(f.input, cfg.CorpusPath)
	cfg.OutputPath = util.FirstNonEmpty(f.output, cfg.OutputPath)
	cfg.TickersPath = util.FirstNonEmpty(f.tickers, cfg.TickersPath)
	cfg.CatalogSource = util.FirstNonEmpty(f.catalogSource, cfg.CatalogSource)
	cfg.Tagger = util.FirstNonEmpty(f.tagger, cfg.Tagger)
	cfg.Tokenizer = util.FirstNonEmpty(f.tokenizer, cfg.Tokenizer)
	cfg.SVOExtractor = util.FirstNonEmpty(f.svo, cfg.SVOExtractor)
	if f.workers > 0 {
		cfg.AnnotateWorkers = f.workers
	}
}

// buildService wires catalog, collaborators and storage for an annotation run.
func (a *app) buildService(f *annotateFlags) (*pipeline.ProcessingService, error) {
	f.apply(a)
	if err := a.cfg.ValidateAnnotate(); err != nil {
		return nil, err
	}

	cat, err := a.loadCatalog(a.cfg.CatalogSource, a.cfg.TickersPath)
	if err != nil {
		return nil, err
	}

	var store nlp.TagStore
	if a.cfg.TagCache || !f.noRecord {
		db, err := a.openDB()
		if err != nil {
			return nil, err
		}
		store = db
	}

	tokenizer, err := nlp.NewTokenizer(a.cfg.Tokenizer)
	if err != nil {
		return nil, err
	}
	tagger, err := nlp.NewTagger(a.cfg, a.cfg.Tagger, cat.Entries(), store)
	if err != nil {
		return nil, err
	}
	extractor, err := nlp.NewExtractor(a.cfg, a.cfg.SVOExtractor)
	if err != nil {
		return nil, err
	}

	annotator := pipeline.NewAnnotator(tokenizer, tagger, cat)
	opts := pipeline.Options{Workers: a.cfg.AnnotateWorkers, ProgressEvery: a.cfg.ProgressEvery}
	if f.noRecord {
		return pipeline.NewProcessingService(annotator, extractor, nil, opts), nil
	}
	return pipeline.NewProcessingService(annotator, extractor, a.db, opts), nil
}

func newAnnotateCmd(a *app) *cobra.Command {
	f := &annotateFlags{}
	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Replace company mentions in every headline with tickers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.buildService(f)
			if err != nil {
				return err
			}
			res, err := svc.ProcessFile(cmd.Context(), a.cfg.CorpusPath, a.cfg.OutputPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "annotated %d headlines changed=%d sub_obj=%d unavailable=%d output=%s run=%s\n",
				res.Counts.Records, res.Counts.Changed, res.Counts.SubObjAdded, res.Counts.Unavailable, res.Output, res.RunID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	f := &annotateFlags{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-annotate the corpus whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.buildService(f)
			if err != nil {
				return err
			}
			s := listener.NewService(a.cfg, svc, a.cfg.CorpusPath, a.cfg.OutputPath)
			return s.Run(cmd.Context())
		},
	}
	f.register(cmd)
	return cmd
}

func newMatchCmd(a *app) *cobra.Command {
	var tickers, source string
	cmd := &cobra.Command{
		Use:   "match NAME...",
		Short: "Resolve company names against the catalog",
		Long: `Prints one line per name: the name, the matched ticker and the catalog
companies listed under that ticker. Unmatched names print "-".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.loadCatalog(util.FirstNonEmpty(source, a.cfg.CatalogSource), util.FirstNonEmpty(tickers, a.cfg.TickersPath))
			if err != nil {
				return err
			}
			matcher := pipeline.NewMatcher(cat)
			for _, name := range args {
				ticker, ok := matcher.Match(name)
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t-\n", name)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", name, ticker, strings.Join(cat.CompaniesFor(ticker), "; "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tickers, "tickers", "", "ticker catalog file (default $TICKERS_PATH)")
	cmd.Flags().StringVar(&source, "catalog-source", "", "file|db (default $CATALOG_SOURCE)")
	return cmd
}

func newCatalogImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog:import PATH",
		Short: "Store a json, yaml or xlsx ticker catalog in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			count, err := catalog.NewSyncService(db, a.cfg).ImportFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog import complete: %d tickers\n", count)
			return nil
		},
	}
}

func newCatalogSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog:sync",
		Short: "Download the SEC EDGAR ticker listing into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Require("SEC_USER_AGENT", a.cfg.SECUserAgent); err != nil {
				return err
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			count, err := catalog.NewSyncService(db, a.cfg).SyncSEC(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog sync complete: %d tickers\n", count)
			return nil
		},
	}
}

func newCatalogExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "catalog:export",
		Short: "Write the stored catalog as a tickers JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(out) == "" {
				return errors.New("--out is required")
			}
			cat, err := a.loadCatalog("db", "")
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := catalog.WriteJSON(f, cat.Entries()); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d tickers to %s\n", cat.Len(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output JSON path")
	return cmd
}

func newExportXLSXCmd(a *app) *cobra.Command {
	var runID, out string
	cmd := &cobra.Command{
		Use:   "export:xlsx",
		Short: "Export the annotations of a recorded run to xlsx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			if strings.TrimSpace(runID) == "" {
				runs, err := db.ListRuns(1)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					return errors.New("no recorded runs")
				}
				runID = runs[0].ID
			}
			if _, err := db.MustRun(runID); err != nil {
				return err
			}
			if strings.TrimSpace(out) == "" {
				out = filepath.Join(a.cfg.OutputDir, runID+".xlsx")
			}
			rows, err := db.GetExportRows(runID)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("no export rows for run=%s", runID)
			}
			if err := pipeline.ExportRunToXLSX(rows, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", len(rows), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id (default latest run)")
	cmd.Flags().StringVar(&out, "out", "", "output xlsx path (default $OUTPUT_DIR/<run>.xlsx)")
	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded annotation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			runs, err := db.ListRuns(limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tFINISHED\tRECORDS\tCHANGED\tUNAVAILABLE\tINPUT")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					r.ID, r.StartedAt, util.FirstNonEmpty(util.DerefString(r.FinishedAt), "-"),
					r.Counts.Records, r.Counts.Changed, r.Counts.Unavailable, r.Input)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	return cmd
}
