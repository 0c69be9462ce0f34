package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/SergeOin/titan/internal/domain"
	"github.com/SergeOin/titan/internal/logger"
)

// FileStore is the last-resort tier: an append-only JSONL file. Identity
// keys already present in the file are remembered in memory so duplicate
// appends are skipped.
type FileStore struct {
	mu     sync.Mutex
	path   string
	seen   map[string]bool
	logger logger.Logger
}

// NewFileStore opens the fallback file and loads the identity keys of any
// previously appended posts.
func NewFileStore(path string, log logger.Logger) (*FileStore, error) {
	s := &FileStore{path: path, seen: make(map[string]bool), logger: log}
	if err := s.loadSeen(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) loadSeen() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open fallback file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var post domain.PersistedPost
		if err := json.Unmarshal(scanner.Bytes(), &post); err != nil {
			// Torn tail line from a crashed append; everything before it
			// is still usable.
			s.logger.Warn("skipping unreadable fallback line", logger.Error(err))
			continue
		}
		s.seen[identityOf(&post).String()] = true
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan fallback file: %w", err)
	}
	return nil
}

// Name implements Backend.
func (s *FileStore) Name() string { return "file" }

// Ping implements Backend. The file tier is healthy when its directory is
// writable; probe by opening the file in append mode.
func (s *FileStore) Ping(ctx context.Context) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("fallback file not writable: %w", err)
	}
	return f.Close()
}

// Write implements Backend, appending one JSON line per new post.
func (s *FileStore) Write(ctx context.Context, posts []*domain.PersistedPost) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open fallback file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	inserted := 0
	for _, post := range posts {
		key := identityOf(post).String()
		if s.seen[key] {
			continue
		}

		line, marshalErr := json.Marshal(post)
		if marshalErr != nil {
			return inserted, fmt.Errorf("marshal post %s: %w", post.ID, marshalErr)
		}
		if _, writeErr := w.Write(append(line, '\n')); writeErr != nil {
			return inserted, fmt.Errorf("append post %s: %w", post.ID, writeErr)
		}
		s.seen[key] = true
		inserted++
	}

	if err := w.Flush(); err != nil {
		return inserted, fmt.Errorf("flush fallback file: %w", err)
	}
	return inserted, nil
}
