package clarify

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/types"
)

// appendJSONL writes one clarification as a single JSON line under an
// exclusive advisory lock, fsyncing before release. The file is created
// 0600: fallback lines hold truncated raw text and are operator-only.
// Caller holds s.mu.
func (s *Store) appendJSONL(c *types.Clarification) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("clarify: open fallback file: %w", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("clarify: lock fallback file: %w", err)
	}
	defer func() { _ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN) }()

	line, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("clarify: marshal clarification: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("clarify: append fallback line: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("clarify: fsync fallback file: %w", err)
	}
	return nil
}

// purgeJSONL removes lines matching the key. Lines that fail to parse are
// preserved verbatim; a purge must never lose data it cannot read.
// Caller holds s.mu.
func (s *Store) purgeJSONL(key types.ClarificationKey) error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("clarify: read fallback file: %w", err)
	}

	var kept []byte
	removed := 0
	for _, line := range splitLines(raw) {
		var c types.Clarification
		if err := json.Unmarshal(line, &c); err != nil {
			kept = append(kept, line...)
			kept = append(kept, '\n')
			continue
		}
		if c.Trigger == key.Trigger && c.ConversationID == key.ConversationID && c.UserID == key.UserID {
			removed++
			continue
		}
		kept = append(kept, line...)
		kept = append(kept, '\n')
	}
	if removed == 0 {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".clarifications-*")
	if err != nil {
		return fmt.Errorf("clarify: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("clarify: chmod temp file: %w", err)
	}
	if _, err := tmp.Write(kept); err != nil {
		tmp.Close()
		return fmt.Errorf("clarify: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("clarify: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("clarify: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("clarify: replace fallback file: %w", err)
	}
	return nil
}

// scanJSONL returns the most recent line whose normalized trigger equals
// trigger, or nil. Unparsable lines are skipped, not fatal.
func (s *Store) scanJSONL(trigger string) *types.Clarification {
	f, err := os.Open(s.path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var latest *types.Clarification
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var c types.Clarification
		if err := json.Unmarshal(line, &c); err != nil {
			continue
		}
		if NormalizeTrigger(c.Trigger) == trigger {
			copied := c
			latest = &copied
		}
	}
	return latest
}

func splitLines(raw []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range raw {
		if b == '\n' {
			if i > start {
				lines = append(lines, raw[start:i])
			}
			start = i + 1
		}
	}
	if start < len(raw) {
		lines = append(lines, raw[start:])
	}
	return lines
}
