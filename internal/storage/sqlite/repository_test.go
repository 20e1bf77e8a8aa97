package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsdigest-agent/internal/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "newsbot.db"))
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestGetActiveConfigEmpty(t *testing.T) {
	repo := newTestRepo(t)

	cfg, err := repo.GetActiveConfig(context.Background())

	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestUpsertCreatesFirstConfig(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cfg := &models.DigestConfig{
		Topic:           "golang",
		Recipient:       "whatsapp:+1234567890",
		IntervalMinutes: 30,
		ArticleCount:    5,
	}
	require.NoError(t, repo.UpsertActiveConfig(ctx, cfg))

	got, err := repo.GetActiveConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "golang", got.Topic)
	assert.Equal(t, 30, got.IntervalMinutes)
	assert.True(t, got.Active)
	// Unset fields were defaulted
	assert.Equal(t, models.DefaultCountry, got.Country)
	assert.Equal(t, models.ProviderNewsData, got.Provider)
}

func TestUpsertClampsInterval(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		submitted int
		want      int
	}{
		{5, 15},
		{14, 15},
		{15, 15},
		{16, 16},
		{-1, 15},
	}

	for _, tt := range tests {
		cfg := &models.DigestConfig{
			Recipient:       "whatsapp:+1234567890",
			IntervalMinutes: tt.submitted,
		}
		require.NoError(t, repo.UpsertActiveConfig(ctx, cfg))

		got, err := repo.GetActiveConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.IntervalMinutes, "submitted %d", tt.submitted)
	}
}

func TestUpsertMutatesSingleActiveRow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := &models.DigestConfig{Topic: "first", Recipient: "whatsapp:+111"}
	require.NoError(t, repo.UpsertActiveConfig(ctx, first))

	second := &models.DigestConfig{Topic: "second", Recipient: "whatsapp:+222"}
	require.NoError(t, repo.UpsertActiveConfig(ctx, second))

	got, err := repo.GetActiveConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID, "second submit must mutate the existing row")
	assert.Equal(t, "second", got.Topic)
	assert.Equal(t, "whatsapp:+222", got.Recipient)

	var count int64
	require.NoError(t, repo.db.Model(&models.DigestConfig{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLogsAppendListOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		entry := &models.DeliveryLog{
			ConfigID:  1,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Message:   "digest",
			Status:    models.StatusSuccess,
		}
		require.NoError(t, repo.AppendLog(ctx, entry))
	}

	logs, err := repo.ListRecentLogs(ctx, 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	// Newest first
	assert.True(t, logs[0].Timestamp.After(logs[1].Timestamp))
	assert.True(t, logs[1].Timestamp.After(logs[2].Timestamp))
}

func TestClearLogs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AppendLog(ctx, models.NewDeliveryLog(1, "a", models.StatusSuccess)))
	require.NoError(t, repo.AppendLog(ctx, models.NewDeliveryLog(1, "b", models.StatusWarning)))

	require.NoError(t, repo.ClearLogs(ctx))

	logs, err := repo.ListRecentLogs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestPruneLogsBefore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	old := &models.DeliveryLog{ConfigID: 1, Timestamp: time.Now().Add(-48 * time.Hour), Message: "old", Status: models.StatusSuccess}
	recent := &models.DeliveryLog{ConfigID: 1, Timestamp: time.Now(), Message: "recent", Status: models.StatusSuccess}
	require.NoError(t, repo.AppendLog(ctx, old))
	require.NoError(t, repo.AppendLog(ctx, recent))

	pruned, err := repo.PruneLogsBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	logs, err := repo.ListRecentLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "recent", logs[0].Message)
}

func TestAppendLogDefaultsTimestamp(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entry := &models.DeliveryLog{ConfigID: 1, Message: "m", Status: models.StatusTest}
	require.NoError(t, repo.AppendLog(ctx, entry))

	logs, err := repo.ListRecentLogs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Timestamp.IsZero())
}
