package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/usecases"
)

// errTypeNotFound marks failures no retry can fix.
const errTypeNotFound = "not_found"

// DayWarmResult reports one warmed day.
type DayWarmResult struct {
	Day  int
	Legs int
}

// PrefetchActivities resolves legs through the same cache the map view reads.
type PrefetchActivities struct {
	Schedule *usecases.ScheduleService
	Legs     *usecases.LegService
}

// PrefetchDays returns the days that have at least one routable pair.
func (a *PrefetchActivities) PrefetchDays(ctx context.Context, itineraryID string) ([]int, error) {
	it, err := a.Schedule.Get(ctx, itineraryID)
	if err != nil {
		return nil, classify(err)
	}
	var days []int
	for _, d := range it.Days {
		if len(usecases.Pairs(d)) > 0 {
			days = append(days, d.Number)
		}
	}
	return days, nil
}

// WarmDay resolves every leg of one day. Any unavailable leg fails the
// attempt; legs that did resolve are cached, so a retry only asks the
// provider for the rest.
func (a *PrefetchActivities) WarmDay(ctx context.Context, itineraryID string, day int) (DayWarmResult, error) {
	logger := activity.GetLogger(ctx)

	it, err := a.Schedule.Get(ctx, itineraryID)
	if err != nil {
		return DayWarmResult{}, classify(err)
	}
	d, ok := it.Day(day)
	if !ok {
		return DayWarmResult{}, classify(domain.ErrDayNotFound)
	}

	results, err := a.Legs.ResolveDay(ctx, d)
	if err != nil {
		return DayWarmResult{}, err
	}

	res := DayWarmResult{Day: day}
	var failed int
	var lastErr error
	for _, r := range results {
		if r.Leg == nil {
			failed++
			lastErr = r.Err
			continue
		}
		res.Legs++
	}
	if failed > 0 {
		logger.Warn("legs unavailable", "itinerary_id", itineraryID, "day", day, "failed", failed)
		return res, fmt.Errorf("day %d: %d of %d legs unavailable: %w", day, failed, len(results), lastErr)
	}
	return res, nil
}

func classify(err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrDayNotFound) {
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeNotFound, err)
	}
	return err
}
