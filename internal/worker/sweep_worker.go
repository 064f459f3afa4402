package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/midirender/api/internal/service"
)

// TaskTypeSweep removes stale job directories from the work dir
const TaskTypeSweep = "workdir:sweep"

// NewSweepTask builds the periodic sweep task
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSweep, nil)
}

// SweepWorker deletes job directories older than maxAge
type SweepWorker struct {
	workspace *service.Workspace
	maxAge    time.Duration
	now       func() time.Time
}

// NewSweepWorker creates a new sweep worker
func NewSweepWorker(workspace *service.Workspace, maxAge time.Duration) *SweepWorker {
	return &SweepWorker{
		workspace: workspace,
		maxAge:    maxAge,
		now:       time.Now,
	}
}

// ProcessTask handles sweep task processing
func (w *SweepWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	removed, err := w.workspace.Sweep(w.maxAge, w.now())
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	if removed > 0 {
		log.Printf("Sweep removed %d job directories from %s", removed, w.workspace.Root())
	}
	return nil
}
