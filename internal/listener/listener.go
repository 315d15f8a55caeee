// Package listener re-annotates the corpus whenever the input file changes.
package listener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/phuslu/log"

	"tickerize/internal/config"
	"tickerize/internal/pipeline"
)

type Runner interface {
	ProcessFile(ctx context.Context, input, output string) (pipeline.ProcessResult, error)
}

type Service struct {
	cfg     config.Config
	runner  Runner
	input   string
	output  string
	lastMod time.Time
}

func NewService(cfg config.Config, runner Runner, input, output string) *Service {
	return &Service{
		cfg:    cfg,
		runner: runner,
		input:  filepath.Clean(input),
		output: filepath.Clean(output),
	}
}

// Run annotates once, then again after every change to the input file.
// Filesystem events are debounced; a periodic modification-time check
// covers filesystems that do not deliver events.
func (s *Service) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// The directory is watched so editors that replace the file by rename
	// keep triggering events.
	if err := watcher.Add(filepath.Dir(s.input)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.input), err)
	}

	if err := s.runCycle(ctx); err != nil {
		log.Error().Err(err).Msg("listener cycle error")
	}

	interval := time.Duration(s.cfg.WatchIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if s.isRelevant(event) {
				debounce.Reset(s.cfg.WatchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")
		case <-debounce.C:
			if err := s.runCycle(ctx); err != nil {
				log.Error().Err(err).Msg("listener cycle error")
			}
		case <-ticker.C:
			if !s.modifiedSinceLastRun() {
				continue
			}
			if err := s.runCycle(ctx); err != nil {
				log.Error().Err(err).Msg("listener cycle error")
			}
		}
	}
}

func (s *Service) isRelevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != s.input {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (s *Service) modifiedSinceLastRun() bool {
	info, err := os.Stat(s.input)
	if err != nil {
		return false
	}
	return info.ModTime().After(s.lastMod)
}

func (s *Service) runCycle(ctx context.Context) error {
	info, err := os.Stat(s.input)
	if err != nil {
		return err
	}
	s.lastMod = info.ModTime()

	res, err := s.runner.ProcessFile(ctx, s.input, s.output)
	if err != nil {
		return err
	}

	log.Info().
		Str("run", res.RunID).
		Str("output", res.Output).
		Int("records", res.Counts.Records).
		Int("changed", res.Counts.Changed).
		Msg("listener cycle done")
	return nil
}
