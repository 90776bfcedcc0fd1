package watcher

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"archimport/internal/shared/util"
)

// ReimportFunc re-runs an import after the listed paths changed.
type ReimportFunc func(ctx context.Context, changed []string) error

// SessionConfig tunes a watch session.
type SessionConfig struct {
	Debounce    time.Duration
	MinInterval time.Duration
	ExcludeDirs []string
}

// Session re-imports whenever class roots change. Change batches that
// arrive while an import is running, or before MinInterval has passed, are
// merged into the next import.
type Session struct {
	cfg      SessionConfig
	reimport ReimportFunc
	limiter  *util.Limiter
	logger   *slog.Logger
	changes  chan []string
}

func NewSession(cfg SessionConfig, reimport ReimportFunc, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:      cfg,
		reimport: reimport,
		limiter:  util.NewIntervalLimiter(cfg.MinInterval),
		logger:   logger,
		changes:  make(chan []string, 16),
	}
}

// Run watches roots until ctx is done. Failed re-imports are logged and do
// not stop the session.
func (s *Session) Run(ctx context.Context, roots []string) error {
	w, err := NewWatcher(s.cfg.Debounce, s.cfg.ExcludeDirs, func(paths []string) {
		select {
		case s.changes <- paths:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()
	w.SetLogger(s.logger)

	if err := w.Watch(roots); err != nil {
		return err
	}
	s.logger.Info("watching class roots", "roots", roots)

	// Count the initial import against MinInterval.
	s.limiter.Allow(1)

	for {
		var changed []string
		select {
		case <-ctx.Done():
			return nil
		case changed = <-s.changes:
		}

		if err := s.limiter.Wait(ctx, 1); err != nil {
			return nil
		}
		changed = s.drain(changed)

		s.logger.Info("class roots changed, re-importing", "changed", len(changed))
		if err := s.reimport(ctx, changed); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("re-import failed", "error", err)
		}
	}
}

// drain merges every batch already queued into changed.
func (s *Session) drain(changed []string) []string {
	seen := make(map[string]bool, len(changed))
	for _, p := range changed {
		seen[p] = true
	}
	for {
		select {
		case more := <-s.changes:
			for _, p := range more {
				seen[p] = true
			}
		default:
			out := make([]string, 0, len(seen))
			for p := range seen {
				out = append(out, p)
			}
			sort.Strings(out)
			return out
		}
	}
}
