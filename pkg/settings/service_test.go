package settings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rollforge/tavernkeep/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, cacheTTL time.Duration) (*Service, *InMemoryRepository) {
	t.Helper()
	repo := NewInMemoryRepository()
	return NewService(repo, WithCacheTTL(cacheTTL)), repo
}

func TestTypedGetters(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService(t, 0)

	id := uuid.New()
	seed := map[string]string{
		"flag":       "true",
		"batch":      "250",
		"multiplier": "1.5",
		"owner":      id.String(),
		"launch":     "2026-01-02T15:04:05Z",
		"greeting":   "well met",
		"garbage":    "not-a-number",
	}
	for name, value := range seed {
		require.NoError(t, repo.Create(ctx, GlobalSetting{Name: name, Value: value}))
	}

	t.Run("ParsesStoredValues", func(t *testing.T) {
		assert.True(t, service.GetBool(ctx, "flag", false))
		assert.Equal(t, 250, service.GetInt(ctx, "batch", 1))
		assert.Equal(t, 1.5, service.GetFloat(ctx, "multiplier", 0))
		assert.Equal(t, id, service.GetUUID(ctx, "owner", uuid.Nil))
		assert.Equal(t, time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), service.GetTime(ctx, "launch", time.Time{}))
		assert.Equal(t, "well met", service.GetString(ctx, "greeting", "fallback"))
	})

	t.Run("AbsentReturnsDefault", func(t *testing.T) {
		assert.Equal(t, 42, service.GetInt(ctx, "missing", 42))
		assert.Equal(t, "fallback", service.GetString(ctx, "missing", "fallback"))
		assert.False(t, service.GetBool(ctx, "missing", false))
	})

	t.Run("UnparseableReturnsDefault", func(t *testing.T) {
		assert.Equal(t, 7, service.GetInt(ctx, "garbage", 7))
		assert.Equal(t, uuid.Nil, service.GetUUID(ctx, "garbage", uuid.Nil))
		assert.True(t, service.GetBool(ctx, "garbage", true))
	})

	t.Run("NameLookupIsCaseInsensitive", func(t *testing.T) {
		assert.Equal(t, 250, service.GetInt(ctx, "BATCH", 1))
	})
}

func TestCacheServesStaleWithinTTL(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService(t, time.Minute)

	require.NoError(t, repo.Create(ctx, GlobalSetting{Name: "batch", Value: "10"}))
	assert.Equal(t, 10, service.GetInt(ctx, "batch", 0))

	// Write bypasses the cache; the cached value is served until expiry.
	require.NoError(t, repo.Create(ctx, GlobalSetting{Name: "batch", Value: "99"}))
	assert.Equal(t, 10, service.GetInt(ctx, "batch", 0))
}

func TestCacheDisabled(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService(t, 0)

	require.NoError(t, repo.Create(ctx, GlobalSetting{Name: "batch", Value: "10"}))
	assert.Equal(t, 10, service.GetInt(ctx, "batch", 0))

	require.NoError(t, repo.Create(ctx, GlobalSetting{Name: "batch", Value: "99"}))
	assert.Equal(t, 99, service.GetInt(ctx, "batch", 0))
}

func TestCreateSettingValidation(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, 0)

	err := service.CreateSetting(ctx, GlobalSetting{Name: " ", Value: ""})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
	assert.Len(t, errors.GetFields(err), 2, "both violations reported at once")

	require.NoError(t, service.CreateSetting(ctx, GlobalSetting{Name: "greeting", Value: "hail"}))
}

func TestGetAllPagingAndSorting(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService(t, 0)

	names := []string{"alpha", "bravo", "charlie", "delta"}
	for i, name := range names {
		require.NoError(t, repo.Create(ctx, GlobalSetting{Name: name, Value: string(rune('a' + i))}))
	}

	page, err := service.GetAll(ctx, GetAllOptions{Page: 1, PageSize: 2, SortField: "name", SortOrder: SortAscending})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "alpha", page[0].Name)
	assert.Equal(t, "bravo", page[1].Name)

	page, err = service.GetAll(ctx, GetAllOptions{Page: 2, PageSize: 2, SortField: "name", SortOrder: SortAscending})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "charlie", page[0].Name)

	filtered, err := service.GetAll(ctx, GetAllOptions{Page: 1, PageSize: 10, Name: "lt"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "delta", filtered[0].Name)

	count, err := service.GetCount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
