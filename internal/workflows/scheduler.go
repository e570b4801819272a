package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"

	"github.com/samirrijal/wayfarer/internal/pkg/config"
)

// Dial connects to Temporal with the process logger.
func Dial(cfg config.TemporalConfig) (client.Client, error) {
	return client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    log.NewStructuredLogger(slog.Default()),
	})
}

// Scheduler implements ports.PrefetchScheduler on a Temporal client.
type Scheduler struct {
	client    client.Client
	taskQueue string
}

// NewScheduler creates a scheduler that starts workflows on taskQueue.
func NewScheduler(c client.Client, taskQueue string) *Scheduler {
	return &Scheduler{client: c, taskQueue: taskQueue}
}

// SchedulePrefetch starts LegPrefetchWorkflow and returns its run ID.
func (s *Scheduler) SchedulePrefetch(ctx context.Context, itineraryID string) (string, error) {
	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       PrefetchWorkflowID(itineraryID),
		TaskQueue:                s.taskQueue,
		WorkflowExecutionTimeout: 30 * time.Minute,
	}, LegPrefetchWorkflow, PrefetchInput{ItineraryID: itineraryID})
	if err != nil {
		return "", fmt.Errorf("start prefetch workflow: %w", err)
	}
	return run.GetRunID(), nil
}
