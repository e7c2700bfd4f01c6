package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Used(ctx context.Context, day string) (int, error) {
	args := m.Called(ctx, day)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) Increment(ctx context.Context, day string, units int) (int, error) {
	args := m.Called(ctx, day, units)
	return args.Int(0), args.Error(1)
}

func newTestManager(store Store, limit, threshold int) *Manager {
	m := NewManager(store, limit, threshold, nil)
	// 2025-03-10 06:00 UTC is still 2025-03-09 in Los Angeles
	m.now = func() time.Time { return time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC) }
	return m
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(NewMemoryStore(), 0, 150, nil)

	assert.Equal(t, 10000, m.dailyLimit)
	assert.Equal(t, 90, m.thresholdPercent)
	assert.Equal(t, 9000, m.threshold())
}

func TestManager_Acquire(t *testing.T) {
	ctx := context.Background()

	t.Run("records usage under threshold", func(t *testing.T) {
		store := NewMemoryStore()
		m := newTestManager(store, 10, 50)

		for i := 0; i < 5; i++ {
			require.NoError(t, m.Acquire(ctx, VideosListCost))
		}

		used, _ := store.Used(ctx, "2025-03-09")
		assert.Equal(t, 5, used)
	})

	t.Run("refuses and rolls back past threshold", func(t *testing.T) {
		store := NewMemoryStore()
		m := newTestManager(store, 10, 50)
		for i := 0; i < 5; i++ {
			require.NoError(t, m.Acquire(ctx, 1))
		}

		err := m.Acquire(ctx, 1)

		assert.ErrorIs(t, err, ErrQuotaExhausted)
		used, _ := store.Used(ctx, "2025-03-09")
		assert.Equal(t, 5, used)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		store := new(mockStore)
		store.On("Increment", mock.Anything, "2025-03-09", 1).Return(0, errors.New("redis down"))
		m := newTestManager(store, 10, 50)

		err := m.Acquire(ctx, 1)

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrQuotaExhausted)
		store.AssertExpectations(t)
	})
}

func TestManager_GetUsage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, _ = store.Increment(ctx, "2025-03-09", 8)
	m := newTestManager(store, 20, 50)

	usage, err := m.GetUsage(ctx)
	require.NoError(t, err)

	assert.Equal(t, &Usage{Day: "2025-03-09", Used: 8, Limit: 20, Threshold: 10, Remaining: 2}, usage)

	ok, _, err := m.CheckQuotaAvailable(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _, err = m.CheckQuotaAvailable(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	exhausted, err := m.IsQuotaExhausted(ctx)
	require.NoError(t, err)
	assert.False(t, exhausted)

	_, _ = store.Increment(ctx, "2025-03-09", 5)
	usage, err = m.GetUsage(ctx)
	require.NoError(t, err)
	assert.Zero(t, usage.Remaining)

	exhausted, err = m.IsQuotaExhausted(ctx)
	require.NoError(t, err)
	assert.True(t, exhausted)
}

func TestManager_GetUsageStoreError(t *testing.T) {
	store := new(mockStore)
	store.On("Used", mock.Anything, mock.Anything).Return(0, errors.New("timeout"))
	m := newTestManager(store, 10, 90)

	_, err := m.GetUsage(context.Background())
	assert.Error(t, err)

	_, err = m.IsQuotaExhausted(context.Background())
	assert.Error(t, err)
}
