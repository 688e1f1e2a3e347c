package settings

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository using in-memory storage.
// Intended for tests and local development.
type InMemoryRepository struct {
	mu       sync.RWMutex
	settings map[string]GlobalSetting // lowercased name -> setting
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		settings: make(map[string]GlobalSetting),
	}
}

func (r *InMemoryRepository) Get(ctx context.Context, name string) (*GlobalSetting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[strings.ToLower(name)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, setting GlobalSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if setting.ID == uuid.Nil {
		setting.ID = uuid.New()
	}
	setting.Name = strings.ToLower(setting.Name)
	r.settings[setting.Name] = setting
	return nil
}

func (r *InMemoryRepository) GetAll(ctx context.Context, opts GetAllOptions) ([]GlobalSetting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []GlobalSetting
	for _, s := range r.settings {
		if opts.Name != "" && !strings.Contains(s.Name, strings.ToLower(opts.Name)) {
			continue
		}
		results = append(results, s)
	}

	switch strings.ToLower(opts.SortField) {
	case "name":
		sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	case "value":
		sort.Slice(results, func(i, j int) bool { return results[i].Value < results[j].Value })
	}
	if opts.SortOrder == SortDescending {
		for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
			results[i], results[j] = results[j], results[i]
		}
	}

	start := (opts.Page - 1) * opts.PageSize
	if start < 0 || start >= len(results) {
		return nil, nil
	}
	end := start + opts.PageSize
	if end > len(results) {
		end = len(results)
	}
	return results[start:end], nil
}

func (r *InMemoryRepository) GetCount(ctx context.Context, name string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, s := range r.settings {
		if name != "" && !strings.Contains(s.Name, strings.ToLower(name)) {
			continue
		}
		count++
	}
	return count, nil
}
