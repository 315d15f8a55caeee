package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"tickerize/internal/catalog"
	"tickerize/internal/config"
	"tickerize/internal/logger"
	"tickerize/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	must(err)
}

// app carries state shared by the subcommands. The database is opened on
// first use so that commands which never touch it work without a data dir.
type app struct {
	cfg      config.Config
	db       *storage.DB
	dbPath   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "tickerize",
		Short:         "Annotate news headlines with stock tickers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if a.dbPath != "" {
				cfg.DBPath = a.dbPath
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}
			a.cfg = cfg
			logger.Setup(cfg.LogLevel, cmd.ErrOrStderr())
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "sqlite database path (default $DB_PATH)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "trace|debug|info|warn|error")

	root.AddCommand(
		newAnnotateCmd(a),
		newMatchCmd(a),
		newCatalogImportCmd(a),
		newCatalogSyncCmd(a),
		newCatalogExportCmd(a),
		newExportXLSXCmd(a),
		newRunsCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) openDB() (*storage.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := storage.Open(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	return db, nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// loadCatalog reads the ticker catalog from the file or the database,
// depending on source.
func (a *app) loadCatalog(source, path string) (*catalog.Catalog, error) {
	switch source {
	case "file":
		return catalog.LoadFile(path)
	case "db":
		db, err := a.openDB()
		if err != nil {
			return nil, err
		}
		return catalog.LoadFromDB(db)
	default:
		return nil, fmt.Errorf("unsupported catalog source: %s", source)
	}
}

func must(err error) {
	if err != nil {
		log.Debug().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
