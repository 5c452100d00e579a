package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/unilove/ridersync/internal/model"
)

func delivered(id, created, updated string) model.Order {
	return model.Order{ID: id, Status: model.StatusDelivered, CreatedAt: created, UpdatedAt: updated}
}

func TestCompute_CanonicalDay(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	orders := []model.Order{
		// 30 minutes, on time.
		delivered("a", "2025-06-01T09:00:00Z", "2025-06-01T09:30:00Z"),
		// 120 minutes, late.
		delivered("b", "2025-06-01T08:00:00Z", "2025-06-01T10:00:00Z"),
		// Out for the last 25 minutes; counts toward the average only.
		{ID: "c", Status: model.StatusOutForDelivery, CreatedAt: "2025-06-01T11:35:00Z", UpdatedAt: "2025-06-01T11:35:00Z"},
	}

	m := Compute(orders, now, time.UTC)
	assert.Equal(t, 2, m.DeliveriesToday)
	assert.Equal(t, 50, m.OnTimeRatePercent)
	assert.Equal(t, 58, m.AverageMinutes, "(30+120+25)/3 rounds half-up to 58")
}

func TestCompute_EmptySnapshot(t *testing.T) {
	m := Compute(nil, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), time.UTC)
	assert.Zero(t, m.DeliveriesToday)
	assert.Zero(t, m.OnTimeRatePercent)
	assert.Zero(t, m.AverageMinutes)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 0}, m.WeeklyTrend)
}

func TestCompute_YesterdayExcludedFromToday(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	orders := []model.Order{
		delivered("a", "2025-05-31T09:00:00Z", "2025-05-31T09:20:00Z"),
	}

	m := Compute(orders, now, time.UTC)
	assert.Zero(t, m.DeliveriesToday)
	assert.Zero(t, m.AverageMinutes)
	// Still visible in the trend, one bucket back.
	assert.Equal(t, []int{0, 0, 0, 0, 0, 1, 0}, m.WeeklyTrend)
}

func TestCompute_WeeklyTrendBuckets(t *testing.T) {
	now := time.Date(2025, 6, 7, 18, 0, 0, 0, time.UTC)
	orders := []model.Order{
		delivered("a", "2025-06-01T09:00:00Z", "2025-06-01T09:30:00Z"), // 6 days ago
		delivered("b", "2025-06-04T09:00:00Z", "2025-06-04T09:30:00Z"),
		delivered("c", "2025-06-04T10:00:00Z", "2025-06-04T10:30:00Z"),
		delivered("d", "2025-06-07T09:00:00Z", "2025-06-07T09:30:00Z"), // today
		delivered("e", "2025-05-25T09:00:00Z", "2025-05-25T09:30:00Z"), // too old
	}

	m := Compute(orders, now, time.UTC)
	assert.Equal(t, []int{1, 0, 0, 2, 0, 0, 1}, m.WeeklyTrend)
	assert.Equal(t, 1, m.DeliveriesToday)
}

func TestCompute_ZoneBoundary(t *testing.T) {
	// 23:30 UTC on May 31 is already June 1 in UTC+1.
	accra := time.FixedZone("UTC+1", 3600)
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, accra)
	orders := []model.Order{
		delivered("a", "2025-05-31T23:00:00Z", "2025-05-31T23:30:00Z"),
	}

	m := Compute(orders, now, accra)
	assert.Equal(t, 1, m.DeliveriesToday)
}

func TestCompute_SkipsBadTimestamps(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	orders := []model.Order{
		delivered("a", "not-a-time", "2025-06-01T09:30:00Z"),
		delivered("b", "2025-06-01T10:00:00Z", "garbage"),
		// Updated before created; span is negative.
		delivered("c", "2025-06-01T10:00:00Z", "2025-06-01T09:00:00Z"),
		delivered("d", "2025-06-01T09:00:00Z", "2025-06-01T09:40:00Z"),
	}

	m := Compute(orders, now, time.UTC)
	assert.Equal(t, 3, m.DeliveriesToday, "bad createdAt still counts the delivery")
	assert.Equal(t, 40, m.AverageMinutes, "only the measurable span contributes")
	assert.Equal(t, 100, m.OnTimeRatePercent)
}

func TestCompute_OnTimeBoundaryInclusive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	orders := []model.Order{
		delivered("a", "2025-06-01T09:00:00Z", "2025-06-01T09:45:00Z"),
	}

	m := Compute(orders, now, time.UTC)
	assert.Equal(t, 100, m.OnTimeRatePercent, "exactly 45 minutes is on time")
}
