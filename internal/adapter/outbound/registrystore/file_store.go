// Package registrystore provides a durable, append-only, flock-protected
// file backend for the replay registry's used-token and event streams
// (spec §4.5, §6, §9 "Persistence failures never unblock replay").
package registrystore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/sentinelgate/execgate/internal/domain/registry"
)

// FileStore persists UsedTokenRecord and EventRecord entries as JSON
// Lines in two separate append-only files under dir. Both streams are
// write-once: existing lines are never rewritten or deleted.
type FileStore struct {
	usedPath  string
	eventPath string
	mu        sync.Mutex
	logger    *slog.Logger
}

// NewFileStore creates dir if needed and returns a FileStore backed by
// used_tokens.jsonl and events.jsonl inside it.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("registrystore: create audit directory: %w", err)
	}
	return &FileStore{
		usedPath:  filepath.Join(dir, "used_tokens.jsonl"),
		eventPath: filepath.Join(dir, "events.jsonl"),
		logger:    logger,
	}, nil
}

// AppendUsed appends record to the used-token stream.
func (s *FileStore) AppendUsed(record registry.UsedTokenRecord) error {
	return s.appendLine(s.usedPath, record)
}

// AppendEvent appends record to the event stream.
func (s *FileStore) AppendEvent(record registry.EventRecord) error {
	return s.appendLine(s.eventPath, record)
}

func (s *FileStore) appendLine(path string, record interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("registrystore: marshal record: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("registrystore: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := flockLock(f.Fd()); err != nil {
		return fmt.Errorf("registrystore: lock %s: %w", path, err)
	}
	defer flockUnlock(f.Fd()) //nolint:errcheck

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("registrystore: write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("registrystore: fsync %s: %w", path, err)
	}
	return nil
}

// LoadForHydration reads every well-formed line of the used-token stream
// and returns its (token_id, expires_at) pair. Malformed lines — typically
// a partially-written final line left by a crash mid-append — are skipped
// with a warning rather than failing hydration outright (spec §5).
func (s *FileStore) LoadForHydration() ([]registry.HydrationEntry, error) {
	f, err := os.Open(s.usedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("registrystore: open %s: %w", s.usedPath, err)
	}
	defer func() { _ = f.Close() }()

	var entries []registry.HydrationEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec registry.UsedTokenRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			if s.logger != nil {
				s.logger.Warn("registrystore: skipping malformed used-token line",
					"file", s.usedPath, "line", lineNum, "error", err)
			}
			continue
		}
		entries = append(entries, registry.HydrationEntry{TokenID: rec.TokenID, Expiry: rec.ExpiresAt})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("registrystore: scan %s: %w", s.usedPath, err)
	}
	return entries, nil
}
