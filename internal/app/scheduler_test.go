package app

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/planbot/internal/callbackstore"
	"github.com/Freeeeeet/planbot/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSweepRemovesExpiredEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := callbackstore.NewMemory(time.Minute).WithClock(func() time.Time { return now })

	ctx := context.Background()
	_, err := store.Save(ctx, "b1", []byte("token"))
	require.NoError(t, err)

	s := NewScheduler(time.UTC, metrics.New(), zap.NewNop())
	s.sweep(ctx, store)
	assert.Equal(t, 1, store.Len())

	now = now.Add(2 * time.Minute)
	s.sweep(ctx, store)
	assert.Equal(t, 0, store.Len())
}

func TestScheduleSweepRejectsBadSpec(t *testing.T) {
	s := NewScheduler(time.UTC, metrics.New(), zap.NewNop())
	assert.Error(t, s.ScheduleSweep(context.Background(), "not a spec", callbackstore.NewMemory(time.Minute)))
	assert.NoError(t, s.ScheduleSweep(context.Background(), "@every 10m", callbackstore.NewMemory(time.Minute)))
}
