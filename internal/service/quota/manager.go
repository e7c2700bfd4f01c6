// Package quota tracks YouTube Data API quota spent per Pacific-time day.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
)

// VideosListCost is the quota cost of one videos.list call, whatever the part count.
const VideosListCost = 1

// ErrQuotaExhausted is returned by Acquire when the call would cross the threshold.
var ErrQuotaExhausted = errors.New("youtube quota threshold reached")

// Store persists the units used per day.
type Store interface {
	// Used returns the units recorded for day.
	Used(ctx context.Context, day string) (int, error)
	// Increment adds units (possibly negative) to day and returns the new total.
	Increment(ctx context.Context, day string, units int) (int, error)
}

// Usage is a snapshot of one day's quota.
type Usage struct {
	Day       string
	Used      int
	Limit     int
	Threshold int
	Remaining int
}

// Manager gates upstream calls on the daily quota.
type Manager struct {
	store            Store
	dailyLimit       int
	thresholdPercent int // stop issuing calls once this % of the limit is used
	location         *time.Location
	now              func() time.Time
	logger           *zap.Logger
}

// NewManager creates a quota manager. Non-positive limits fall back to the
// Data API default of 10000 units and a 90% threshold.
func NewManager(store Store, dailyLimit int, thresholdPercent int, logger *zap.Logger) *Manager {
	if dailyLimit <= 0 {
		dailyLimit = 10000
	}
	if thresholdPercent <= 0 || thresholdPercent > 100 {
		thresholdPercent = 90
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// quota resets at midnight Pacific time
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		loc = time.UTC
	}

	return &Manager{
		store:            store,
		dailyLimit:       dailyLimit,
		thresholdPercent: thresholdPercent,
		location:         loc,
		now:              time.Now,
		logger:           logger,
	}
}

func (m *Manager) threshold() int {
	return (m.dailyLimit * m.thresholdPercent) / 100
}

func (m *Manager) today() string {
	return m.now().In(m.location).Format("2006-01-02")
}

// Acquire records units against today's quota, or returns ErrQuotaExhausted
// without recording them when that would cross the threshold.
func (m *Manager) Acquire(ctx context.Context, units int) error {
	day := m.today()

	used, err := m.store.Increment(ctx, day, units)
	if err != nil {
		return fmt.Errorf("failed to record quota usage: %w", err)
	}

	if used > m.threshold() {
		if _, err := m.store.Increment(ctx, day, -units); err != nil {
			m.logger.Warn("Failed to roll back quota reservation",
				zap.String("day", day),
				zap.Int("units", units),
				zap.Error(err),
			)
		}
		m.logger.Warn("Quota threshold reached",
			zap.String("day", day),
			zap.Int("used", used-units),
			zap.Int("threshold", m.threshold()),
			zap.Int("limit", m.dailyLimit),
		)
		return ErrQuotaExhausted
	}

	m.logger.Debug("Quota used",
		zap.String("day", day),
		zap.Int("used", used),
		zap.Int("limit", m.dailyLimit),
		zap.Int("cost", units),
	)
	return nil
}

// GetUsage returns today's usage snapshot.
func (m *Manager) GetUsage(ctx context.Context) (*Usage, error) {
	day := m.today()
	used, err := m.store.Used(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get quota info: %w", err)
	}

	remaining := m.threshold() - used
	if remaining < 0 {
		remaining = 0
	}

	return &Usage{
		Day:       day,
		Used:      used,
		Limit:     m.dailyLimit,
		Threshold: m.threshold(),
		Remaining: remaining,
	}, nil
}

// CheckQuotaAvailable reports whether required units fit under the threshold.
func (m *Manager) CheckQuotaAvailable(ctx context.Context, required int) (bool, *Usage, error) {
	usage, err := m.GetUsage(ctx)
	if err != nil {
		return false, nil, err
	}
	return usage.Used+required <= usage.Threshold, usage, nil
}

// IsQuotaExhausted checks if the quota threshold has been reached.
func (m *Manager) IsQuotaExhausted(ctx context.Context) (bool, error) {
	usage, err := m.GetUsage(ctx)
	if err != nil {
		return false, err
	}
	return usage.Used >= usage.Threshold, nil
}
