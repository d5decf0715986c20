package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"flashbooth/internal/engine"
	"flashbooth/internal/model"
)

type fakeClaimer struct {
	mu     sync.Mutex
	queue  []*model.Image
	failed map[string]string
}

func (f *fakeClaimer) ClaimNextPending(context.Context) (*model.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil, nil
	}
	img := f.queue[0]
	f.queue = f.queue[1:]
	return img, nil
}

func (f *fakeClaimer) MarkFailed(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed == nil {
		f.failed = map[string]string{}
	}
	f.failed[id] = reason
	return nil
}

type countingProcessor struct {
	mu   sync.Mutex
	runs int
	err  error
}

func (p *countingProcessor) Run(context.Context, *model.Image) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs++
	return p.err
}

func runWorkerUntil(t *testing.T, w *Worker, done func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	deadline := time.After(2 * time.Second)
	for !done() {
		select {
		case <-deadline:
			t.Fatal("worker did not finish in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestWorker_ProcessesEachJobOnce(t *testing.T) {
	img := model.NewOriginal("orig-1", "sha256/aa/ref")
	claimer := &fakeClaimer{queue: []*model.Image{&img}}
	proc := &countingProcessor{}

	w := New(claimer, proc, time.Millisecond)
	runWorkerUntil(t, w, func() bool {
		proc.mu.Lock()
		defer proc.mu.Unlock()
		return proc.runs >= 1
	})

	// Give the loop a few more ticks: the job must not run again.
	time.Sleep(20 * time.Millisecond)
	proc.mu.Lock()
	defer proc.mu.Unlock()
	if proc.runs != 1 {
		t.Errorf("runs = %d, want 1", proc.runs)
	}
}

func TestWorker_MarksFailedOnProcessorError(t *testing.T) {
	img := model.NewOriginal("orig-1", "sha256/aa/ref")
	claimer := &fakeClaimer{queue: []*model.Image{&img}}
	proc := &countingProcessor{err: errors.New("boom")}

	w := New(claimer, proc, time.Millisecond)
	runWorkerUntil(t, w, func() bool {
		claimer.mu.Lock()
		defer claimer.mu.Unlock()
		return len(claimer.failed) == 1
	})

	claimer.mu.Lock()
	defer claimer.mu.Unlock()
	if !strings.Contains(claimer.failed["orig-1"], "boom") {
		t.Errorf("failure reason = %q, want to contain %q", claimer.failed["orig-1"], "boom")
	}
}

func TestFailureMessage_Quota(t *testing.T) {
	err := &fakeStepError{step: "transform", err: fmt.Errorf("gemini: %w: slow down", engine.ErrQuotaExhausted)}
	msg := FailureMessage(err)
	if !strings.Contains(msg, "quota exhausted") {
		t.Errorf("msg = %q, want quota wording", msg)
	}
	if !strings.Contains(msg, "try again later") {
		t.Errorf("msg = %q, want try-later suggestion", msg)
	}
	if !strings.Contains(msg, "transform") {
		t.Errorf("msg = %q, want step name", msg)
	}
}

func TestFailureMessage_Provider(t *testing.T) {
	err := &fakeStepError{step: "resolve", err: errors.New("open source blob: no such file")}
	msg := FailureMessage(err)
	if strings.Contains(msg, "quota") {
		t.Errorf("msg = %q, provider error wrongly phrased as quota", msg)
	}
	if !strings.Contains(msg, "resolve") {
		t.Errorf("msg = %q, want step name", msg)
	}
}

type fakeStepError struct {
	step string
	err  error
}

func (e *fakeStepError) Error() string    { return e.step + ": " + e.err.Error() }
func (e *fakeStepError) Unwrap() error    { return e.err }
func (e *fakeStepError) StepName() string { return e.step }
