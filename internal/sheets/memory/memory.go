package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"budget/internal/core"
)

// Store keeps months in a map. Records are cloned on the way in and out so
// callers never share slices with the store.
type Store struct {
	mu     sync.RWMutex
	months map[string]core.MonthRecord
}

func New() *Store {
	return &Store{months: map[string]core.MonthRecord{}}
}

// NewFromDir seeds a store from every "*.json" legacy month document in dir.
// Unreadable files are skipped and reported in the returned error list.
func NewFromDir(dir string) (*Store, []error) {
	s := New()
	if dir == "" {
		return s, nil
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return s, []error{err}
	}
	sort.Strings(paths)

	var errs []error
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", p, err))
			continue
		}
		rec, err := core.DecodeLegacyMonth(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", filepath.Base(p), err))
			continue
		}
		s.months[rec.Key()] = rec
	}
	return s, errs
}

func (s *Store) GetMonth(_ context.Context, key string) (core.MonthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.months[strings.TrimSpace(key)]
	if !ok {
		return core.MonthRecord{}, fmt.Errorf("%w: %s", core.ErrMonthNotFound, key)
	}
	return rec.Clone(), nil
}

// SaveMonth overwrites any month stored under key.
func (s *Store) SaveMonth(_ context.Context, key string, rec core.MonthRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if key != rec.Key() {
		return fmt.Errorf("%w: key %q does not match %s", core.ErrInvalidMonthKey, key, rec.Key())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.months[key] = rec.Clone()
	return nil
}

// GetAllMonths returns every month ordered by key.
func (s *Store) GetAllMonths(_ context.Context) ([]core.MonthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.months))
	for k := range s.months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]core.MonthRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.months[k].Clone())
	}
	return out, nil
}

func (s *Store) DeleteMonth(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.months[key]; !ok {
		return fmt.Errorf("%w: %s", core.ErrMonthNotFound, key)
	}
	delete(s.months, key)
	return nil
}
