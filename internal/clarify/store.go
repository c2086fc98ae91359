// Package clarify durably records user clarifications ("no, I meant ...")
// without blocking the conversational loop. The primary path is a DB
// insert raced against a wall-clock deadline; on timeout or DB failure the
// record lands as one line in a JSONL fallback file. The DB row is
// authoritative whenever both exist.
package clarify

import (
	"context"
	"regexp"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/repos"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/types"
)

const defaultDBTimeout = 500 * time.Millisecond

type Store struct {
	repo     repos.ClarificationRepo
	path     string
	timeout  time.Duration
	patterns []*regexp.Regexp
	log      *logger.Logger

	// mu serializes JSONL appends and purges within this process; the
	// flock in jsonl.go covers other processes.
	mu sync.Mutex
}

type Config struct {
	// Repo is the primary durable path. Nil means JSONL-only.
	Repo repos.ClarificationRepo
	// Path is the JSONL fallback file. Empty disables the fallback.
	Path string
	// DBTimeout is the hard wall-clock deadline for the DB insert.
	DBTimeout time.Duration
	// Patterns overrides the correction-detection regex set.
	Patterns []string
}

func NewStore(cfg Config, baseLog *logger.Logger) (*Store, error) {
	patterns, err := compilePatterns(cfg.Patterns)
	if err != nil {
		return nil, err
	}
	timeout := cfg.DBTimeout
	if timeout <= 0 {
		timeout = defaultDBTimeout
	}
	return &Store{
		repo:     cfg.Repo,
		path:     cfg.Path,
		timeout:  timeout,
		patterns: patterns,
		log:      baseLog.With("component", "ClarificationStore"),
	}, nil
}

// Write records a clarification on whichever durable path answers first.
// It returns true if either the DB insert or the JSONL append succeeded,
// false only when both failed. The caller is never blocked much past the
// DB deadline.
func (s *Store) Write(ctx context.Context, c *types.Clarification) bool {
	c.Trigger = NormalizeTrigger(c.Trigger)
	truncate(c)

	if s.repo != nil && s.insertWithDeadline(ctx, c) {
		// DB row is authoritative; drop any stale fallback line for
		// the same key.
		if s.path != "" {
			s.mu.Lock()
			if err := s.purgeJSONL(c.Key()); err != nil {
				s.log.Warn("fallback purge failed", "error", err)
			}
			s.mu.Unlock()
		}
		return true
	}

	if s.path == "" {
		return false
	}
	s.mu.Lock()
	err := s.appendJSONL(c)
	s.mu.Unlock()
	if err != nil {
		s.log.Error("both durable paths failed", "error", err)
		return false
	}
	return true
}

// insertWithDeadline runs the DB insert on its own goroutine and waits at
// most the configured deadline. A late result is discarded; the insert
// context is cancelled so a cooperative driver can stop early.
//
// The goroutine can outlive the deadline, so it gets its own copy of the
// clarification: a late id/timestamp stamp must never race the fallback
// marshal of the caller's record.
func (s *Store) insertWithDeadline(ctx context.Context, c *types.Clarification) bool {
	insertCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	detached := *c
	done := make(chan error, 1)
	go func() {
		_, err := s.repo.Create(insertCtx, nil, &detached)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			s.log.Warn("db insert failed, taking fallback", "error", err)
			return false
		}
		// The goroutine is finished; carrying the stamped row back to
		// the caller is safe here.
		*c = detached
		return true
	case <-insertCtx.Done():
		s.log.Debug("db insert deadline hit, taking fallback", "timeout", s.timeout)
		return false
	}
}

// Lookup returns the most recent clarification whose normalized trigger
// matches the phrase, or nil. A store constructed with a JSONL path
// consults only the JSONL file; otherwise the DB is consulted.
func (s *Store) Lookup(ctx context.Context, phrase string) *types.Clarification {
	trigger := NormalizeTrigger(phrase)
	if trigger == "" {
		return nil
	}
	if s.path != "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.scanJSONL(trigger)
	}
	if s.repo == nil {
		return nil
	}
	c, err := s.repo.GetLatestByTrigger(ctx, nil, trigger)
	if err != nil {
		s.log.Warn("db lookup failed", "error", err)
		return nil
	}
	return c
}

// Reconcile removes JSONL lines that have since gained an authoritative
// DB row, covering inserts that completed after their deadline had
// already routed the write to the fallback.
func (s *Store) Reconcile(ctx context.Context) error {
	if s.repo == nil || s.path == "" {
		return nil
	}
	rows, err := s.repo.GetAll(ctx, nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		if err := s.purgeJSONL(row.Key()); err != nil {
			return err
		}
	}
	return nil
}

func truncate(c *types.Clarification) {
	c.OriginalInput = cut(c.OriginalInput, types.ClarificationMaxOriginal)
	c.SystemResponse = cut(c.SystemResponse, types.ClarificationMaxSystem)
	c.UserClarification = cut(c.UserClarification, types.ClarificationMaxClarification)
}

func cut(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back off to a rune boundary so truncation never emits invalid UTF-8.
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
