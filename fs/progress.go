// Package fs provides file-based storage for crawl progress and listing records.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/fwojciec/propcrawl"
)

// Ensure ProgressStore implements propcrawl.ProgressStore at compile time.
var _ propcrawl.ProgressStore = (*ProgressStore)(nil)

// progressFile is the on-disk layout of the progress file.
type progressFile struct {
	CompletedShards []string                 `json:"completed_shards"`
	ShardProgress   map[string]progressEntry `json:"shard_progress"`
}

type progressEntry struct {
	LastPage int      `json:"last_page"`
	SeenURLs []string `json:"seen_urls"`
}

// ProgressStore keeps crawl progress in a single JSON file.
// Every change rewrites the file through a temporary file and a rename,
// so a crash leaves either the old or the new state on disk.
type ProgressStore struct {
	mu   sync.Mutex
	path string
}

// NewProgressStore returns a store backed by the file at path.
// The file is created on the first write.
func NewProgressStore(path string) *ProgressStore {
	return &ProgressStore{path: path}
}

// Path returns the location of the progress file.
func (s *ProgressStore) Path() string {
	return s.path
}

func (s *ProgressStore) Load(ctx context.Context, key string) (*propcrawl.ShardProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	return f.progress(key), nil
}

func (s *ProgressStore) Save(ctx context.Context, progress *propcrawl.ShardProgress) error {
	if progress.Key == "" {
		return propcrawl.Errorf(propcrawl.EINVALID, "shard key required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	f.ShardProgress[progress.Key] = progressEntry{
		LastPage: progress.LastPage,
		SeenURLs: progress.SortedSeenURLs(),
	}
	return s.write(f)
}

func (s *ProgressStore) MarkComplete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	if slices.Contains(f.CompletedShards, key) {
		return nil
	}
	f.CompletedShards = append(f.CompletedShards, key)
	return s.write(f)
}

func (s *ProgressStore) Completed(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	return slices.Clone(f.CompletedShards), nil
}

func (s *ProgressStore) List(ctx context.Context) ([]*propcrawl.ShardProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}

	keys := make(map[string]bool)
	for _, k := range f.CompletedShards {
		keys[k] = true
	}
	for k := range f.ShardProgress {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	list := make([]*propcrawl.ShardProgress, 0, len(sorted))
	for _, k := range sorted {
		list = append(list, f.progress(k))
	}
	return list, nil
}

func (f *progressFile) progress(key string) *propcrawl.ShardProgress {
	p := propcrawl.NewShardProgress(key)
	if e, ok := f.ShardProgress[key]; ok {
		if e.LastPage > 0 {
			p.LastPage = e.LastPage
		}
		p.MarkSeen(e.SeenURLs...)
	}
	p.Completed = slices.Contains(f.CompletedShards, key)
	return p
}

// read loads the progress file. A missing file is an empty state.
func (s *ProgressStore) read() (*progressFile, error) {
	f := &progressFile{ShardProgress: make(map[string]progressEntry)}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	} else if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	if len(data) == 0 {
		return f, nil
	}

	if err := json.Unmarshal(data, f); err != nil {
		return nil, propcrawl.Errorf(propcrawl.EINVALID, "progress file %s is corrupt: %v", s.path, err)
	}
	if f.ShardProgress == nil {
		f.ShardProgress = make(map[string]progressEntry)
	}
	return f, nil
}

func (s *ProgressStore) write(f *progressFile) error {
	if f.CompletedShards == nil {
		f.CompletedShards = []string{}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create progress dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp progress: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write progress: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close progress: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("commit progress: %w", err)
	}
	return nil
}
