package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// PrefetchInput is the input for the leg prefetch workflow.
type PrefetchInput struct {
	ItineraryID string
}

// PrefetchResult summarises a prefetch run.
type PrefetchResult struct {
	ItineraryID string
	Days        int
	Legs        int
	FailedDays  []int
}

// PrefetchWorkflowID is the workflow ID for an itinerary. Starting a second
// prefetch while one runs attaches to the running one.
func PrefetchWorkflowID(itineraryID string) string {
	return "leg-prefetch-" + itineraryID
}

// LegPrefetchWorkflow warms the leg cache for every day of an itinerary.
// Days are warmed in parallel; a day that still fails after its retries is
// reported in the result and does not fail the run.
func LegPrefetchWorkflow(ctx workflow.Context, input PrefetchInput) (PrefetchResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting leg prefetch", "itineraryID", input.ItineraryID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{errTypeNotFound},
		},
	})

	result := PrefetchResult{ItineraryID: input.ItineraryID}

	var days []int
	if err := workflow.ExecuteActivity(ctx, "PrefetchDays", input.ItineraryID).Get(ctx, &days); err != nil {
		return result, err
	}
	result.Days = len(days)

	futures := make([]workflow.Future, len(days))
	for i, day := range days {
		futures[i] = workflow.ExecuteActivity(ctx, "WarmDay", input.ItineraryID, day)
	}
	for i, f := range futures {
		var dr DayWarmResult
		if err := f.Get(ctx, &dr); err != nil {
			logger.Warn("day prefetch failed", "day", days[i], "error", err)
			result.FailedDays = append(result.FailedDays, days[i])
			continue
		}
		result.Legs += dr.Legs
	}

	logger.Info("Leg prefetch finished", "days", result.Days, "legs", result.Legs, "failedDays", len(result.FailedDays))
	return result, nil
}
