package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/signalrun/internal/setups"
	"github.com/sawpanic/signalrun/internal/signal"
)

func TestDayWindow(t *testing.T) {
	at := time.Date(2025, 9, 7, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))
	tr := Day(at)

	assert.Equal(t, time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC), tr.From)
	assert.True(t, tr.Contains(at))
	assert.False(t, tr.Contains(tr.To))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	day := time.Date(2025, 9, 7, 10, 0, 0, 0, time.UTC)

	first := &signal.Signal{AuditID: "BTCUSDT-250907-aaaaaa", Symbol: "BTC/USDT", Setup: setups.BRK, GeneratedAt: day, Reasons: []string{"trend align +10.0"}}
	second := &signal.Signal{AuditID: "ETHUSDT-250907-bbbbbb", Symbol: "ETH/USDT", Setup: setups.PULL, GeneratedAt: day.Add(time.Hour)}
	old := &signal.Signal{AuditID: "ETHUSDT-250906-cccccc", Symbol: "ETH/USDT", Setup: setups.PULL, GeneratedAt: day.Add(-24 * time.Hour)}

	for _, s := range []*signal.Signal{first, second, old} {
		inserted, err := store.Insert(ctx, s)
		require.NoError(t, err)
		assert.True(t, inserted)
	}

	inserted, err := store.Insert(ctx, first)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate audit id")

	got, err := store.GetByAuditID(ctx, first.AuditID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	_, err = store.GetByAuditID(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	list, err := store.List(ctx, Day(day), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.AuditID, list[0].AuditID)

	list, err = store.List(ctx, Day(day), 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	counts, err := store.CountBySetup(ctx, Day(day))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"BRK": 1, "PULL": 1}, counts)

	require.NoError(t, store.Delete(ctx, first.AuditID))
	require.NoError(t, store.Delete(ctx, "missing"))
	_, err = store.GetByAuditID(ctx, first.AuditID)
	assert.True(t, errors.Is(err, ErrNotFound))

	inserted, err = store.Insert(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted, "deleted audit id can be recorded again")
}
