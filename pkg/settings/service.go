package settings

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rollforge/tavernkeep/pkg/errors"
)

// Service provides typed, default-falling-back access to global settings.
// Reads go through a small TTL cache since settings are consulted on every
// login and activation but change rarely. Staleness up to the TTL is
// acceptable; there is no invalidation on write.
type Service struct {
	repo     Repository
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	setting   *GlobalSetting
	fetchedAt time.Time
}

// Option defines configuration options for the Service
type Option func(*Service)

// WithCacheTTL sets how long a fetched setting may be served from cache.
// A zero or negative TTL disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.cacheTTL = ttl
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	service := &Service{
		repo:     repo,
		cacheTTL: 30 * time.Second,
		cache:    make(map[string]cacheEntry),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// lookup returns the raw value for name, reporting whether a row exists.
// Repository errors are logged and treated as absent so configuration
// problems never crash a caller.
func (s *Service) lookup(ctx context.Context, name string) (string, bool) {
	key := strings.ToLower(name)

	if s.cacheTTL > 0 {
		s.mu.RLock()
		entry, ok := s.cache[key]
		s.mu.RUnlock()
		if ok && time.Since(entry.fetchedAt) < s.cacheTTL {
			if entry.setting == nil {
				return "", false
			}
			return entry.setting.Value, true
		}
	}

	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		slog.Error("Failed to read global setting", "name", key, "err", err)
		return "", false
	}

	if s.cacheTTL > 0 {
		s.mu.Lock()
		s.cache[key] = cacheEntry{setting: setting, fetchedAt: time.Now()}
		s.mu.Unlock()
	}

	if setting == nil {
		return "", false
	}
	return setting.Value, true
}

// GetString returns the setting value, or defaultValue when absent.
func (s *Service) GetString(ctx context.Context, name, defaultValue string) string {
	value, ok := s.lookup(ctx, name)
	if !ok {
		return defaultValue
	}
	return value
}

// GetBool returns the setting parsed as a bool, or defaultValue when absent
// or unparseable.
func (s *Service) GetBool(ctx context.Context, name string, defaultValue bool) bool {
	value, ok := s.lookup(ctx, name)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetInt returns the setting parsed as an int, or defaultValue when absent
// or unparseable.
func (s *Service) GetInt(ctx context.Context, name string, defaultValue int) int {
	value, ok := s.lookup(ctx, name)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetFloat returns the setting parsed as a float64, or defaultValue when
// absent or unparseable.
func (s *Service) GetFloat(ctx context.Context, name string, defaultValue float64) float64 {
	value, ok := s.lookup(ctx, name)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetUUID returns the setting parsed as a UUID, or defaultValue when absent
// or unparseable.
func (s *Service) GetUUID(ctx context.Context, name string, defaultValue uuid.UUID) uuid.UUID {
	value, ok := s.lookup(ctx, name)
	if !ok {
		return defaultValue
	}
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetTime returns the setting parsed as RFC 3339, or defaultValue when absent
// or unparseable.
func (s *Service) GetTime(ctx context.Context, name string, defaultValue time.Time) time.Time {
	value, ok := s.lookup(ctx, name)
	if !ok {
		return defaultValue
	}
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

// CreateSetting validates and persists a new setting.
func (s *Service) CreateSetting(ctx context.Context, setting GlobalSetting) error {
	var fields []errors.FieldError
	if strings.TrimSpace(setting.Name) == "" {
		fields = append(fields, errors.FieldError{Field: "name", Message: "name must not be empty"})
	}
	if strings.TrimSpace(setting.Value) == "" {
		fields = append(fields, errors.FieldError{Field: "value", Message: "value must not be empty"})
	}
	if len(fields) > 0 {
		return errors.Validation(fields...)
	}

	return s.repo.Create(ctx, setting)
}

// GetAll returns a page of settings.
func (s *Service) GetAll(ctx context.Context, opts GetAllOptions) ([]GlobalSetting, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 25
	}
	return s.repo.GetAll(ctx, opts)
}

// GetCount returns the number of settings matching the optional name filter.
func (s *Service) GetCount(ctx context.Context, name string) (int, error) {
	return s.repo.GetCount(ctx, name)
}
