package repositories

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidfriends/linkresolver/internal/models"
	"github.com/vidfriends/linkresolver/internal/resolver"
)

func TestInMemorySettingsRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemorySettingsRepository()

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	cfg := resolver.ProviderConfig{APIKey: "k", APIHost: "h", BaseURL: "https://h/get", Method: resolver.MethodGet}
	require.NoError(t, repo.Save(ctx, cfg))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestInMemoryHistoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryHistoryRepository(3)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(ctx, models.ResolutionRecord{VideoURL: fmt.Sprintf("https://example.com/%d", i), Outcome: models.OutcomeResolved}))
	}

	records, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 3, "capacity bounds history")
	assert.Equal(t, "https://example.com/4", records[0].VideoURL)
	assert.Equal(t, "https://example.com/2", records[2].VideoURL)
	assert.NotEmpty(t, records[0].ID)
	assert.False(t, records[0].CreatedAt.IsZero())

	assert.ErrorIs(t, repo.Record(ctx, records[0]), ErrConflict)

	records, err = repo.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRowsToSettingsRejectsBadValues(t *testing.T) {
	_, err := rowsToSettings(map[string]string{SettingMethod: "PATCH"})
	assert.Error(t, err, "invalid method")

	_, err = rowsToSettings(map[string]string{SettingMethod: "GET", SettingUseProxy: "maybe"})
	assert.Error(t, err, "invalid bool")
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: DefaultHistoryLimit, -1: DefaultHistoryLimit, 5: 5, MaxHistoryLimit + 1: MaxHistoryLimit}
	for in, want := range cases {
		assert.Equal(t, want, clampLimit(in), "clampLimit(%d)", in)
	}
}
