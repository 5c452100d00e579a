// Package metrics derives the rider's performance numbers from the
// cached order snapshot. Pure computation over cached data: no network,
// no store access, deterministic for a given snapshot and clock.
package metrics

import (
	"time"

	"github.com/unilove/ridersync/internal/model"
)

// OnTimeThreshold is the duration under which a delivery counts as
// on time.
const OnTimeThreshold = 45 * time.Minute

// Compute calculates today's delivery metrics in the given zone.
// Delivered orders contribute their createdAt to updatedAt span; orders
// still out for delivery contribute createdAt to now, so a long-running
// run drags the average in real time. Unparseable timestamps and
// negative spans are skipped rather than failing the whole report.
func Compute(orders []model.Order, now time.Time, zone *time.Location) model.Metrics {
	if zone == nil {
		zone = time.UTC
	}
	now = now.In(zone)
	today := now.Format("2006-01-02")

	m := model.Metrics{WeeklyTrend: make([]int, 7)}
	var durations []time.Duration
	onTime := 0
	deliveredToday := 0
	deliveredTimed := 0

	for _, o := range orders {
		switch o.Status {
		case model.StatusDelivered:
			done, ok := parseWire(o.UpdatedAt)
			if !ok {
				continue
			}
			done = done.In(zone)
			if bucket := 6 - daysBetween(done, now); bucket >= 0 && bucket < 7 {
				m.WeeklyTrend[bucket]++
			}
			if done.Format("2006-01-02") != today {
				continue
			}
			deliveredToday++
			start, ok := parseWire(o.CreatedAt)
			if !ok {
				continue
			}
			span := done.Sub(start)
			if span < 0 {
				continue
			}
			durations = append(durations, span)
			deliveredTimed++
			if span <= OnTimeThreshold {
				onTime++
			}
		case model.StatusOutForDelivery:
			start, ok := parseWire(o.CreatedAt)
			if !ok {
				continue
			}
			span := now.Sub(start)
			if span < 0 {
				continue
			}
			durations = append(durations, span)
		}
	}

	m.DeliveriesToday = deliveredToday
	if n := len(durations); n > 0 {
		var totalMinutes float64
		for _, d := range durations {
			totalMinutes += d.Minutes()
		}
		m.AverageMinutes = roundHalfUp(totalMinutes / float64(n))
	}
	if deliveredTimed > 0 {
		m.OnTimeRatePercent = roundHalfUp(float64(onTime) * 100 / float64(deliveredTimed))
	}
	return m
}

// roundHalfUp rounds to the nearest integer with .5 going up, the
// documented rule for reported averages: (30+120+25)/3 = 58.33 -> 58.
func roundHalfUp(v float64) int {
	return int(v + 0.5)
}

// parseWire accepts the RFC 3339 stamps the server emits, with or
// without fractional seconds.
func parseWire(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// daysBetween counts whole calendar days from a to b in b's zone.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	aDay := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bDay := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bDay.Sub(aDay).Hours() / 24)
}
