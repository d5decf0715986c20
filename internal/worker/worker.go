package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"flashbooth/internal/engine"
	"flashbooth/internal/model"
)

// Processor runs the generation pipeline for a single claimed job.
type Processor interface {
	Run(ctx context.Context, img *model.Image) error
}

// JobClaimer provides atomic claim and terminal-failure operations.
type JobClaimer interface {
	ClaimNextPending(ctx context.Context) (*model.Image, error)
	MarkFailed(ctx context.Context, id, reason string) error
}

// Worker polls for pending generation jobs and runs the pipeline. Claiming
// is the pending→processing transition, so a job can never be executed
// twice concurrently no matter how often the loop wakes up.
type Worker struct {
	claimer   JobClaimer
	processor Processor
	interval  time.Duration
}

// New creates a new Worker.
func New(claimer JobClaimer, processor Processor, interval time.Duration) *Worker {
	return &Worker{claimer: claimer, processor: processor, interval: interval}
}

// Start begins the polling loop. It blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped")
			return
		default:
		}

		img, err := w.claimer.ClaimNextPending(ctx)
		if err != nil {
			slog.Error("worker claim error", "error", err)
			w.sleep(ctx)
			continue
		}
		if img == nil {
			w.sleep(ctx)
			continue
		}

		slog.Info("generating image", "image_id", img.ID)
		if err := w.processor.Run(ctx, img); err != nil {
			slog.Error("generation failed", "image_id", img.ID, "error", err)
			if sErr := w.claimer.MarkFailed(ctx, img.ID, FailureMessage(err)); sErr != nil {
				slog.Error("failed to record failure", "image_id", img.ID, "error", sErr)
			}
			continue
		}

		// The pipeline's link step is the terminal completed write.
		slog.Info("generation completed", "image_id", img.ID)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.interval):
	}
}

// stepNamer is implemented by errors that carry a pipeline step name.
type stepNamer interface {
	StepName() string
}

// FailureMessage builds the user-facing failure reason stored on the
// original. Quota failures get a distinct message so the UI can suggest
// trying later instead of immediately.
func FailureMessage(err error) string {
	step := "unknown"
	var sn stepNamer
	if errors.As(err, &sn) {
		step = sn.StepName()
	}
	if errors.Is(err, engine.ErrQuotaExhausted) {
		return "generation quota exhausted, please try again later (" + step + ": " + err.Error() + ")"
	}
	return "generation failed at " + step + ": " + err.Error()
}
