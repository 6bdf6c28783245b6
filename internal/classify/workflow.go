// Package classify orchestrates one image's journey through the external
// inference call: Idle -> HasCandidate -> Submitting -> Succeeded|Failed,
// with re-classify and explicit clear.
package classify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/KARTIK027-CODE/StubbleX/internal/inference"
	"github.com/KARTIK027-CODE/StubbleX/internal/models"
	"github.com/KARTIK027-CODE/StubbleX/internal/upload"
)

// fallbackError is shown when the service fails without a detail message.
const fallbackError = "Failed to classify waste. Please try again."

// State is the workflow's position in its lifecycle.
type State string

const (
	StateIdle         State = "idle"
	StateHasCandidate State = "has_candidate"
	StateSubmitting   State = "submitting"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
)

var (
	// ErrSubmitInFlight rejects a second submit while one is in flight.
	// The trigger is a no-op, not a queued retry.
	ErrSubmitInFlight = errors.New("classification already in progress")
	// ErrNoCandidate rejects a submit with nothing uploaded.
	ErrNoCandidate = errors.New("no image uploaded")
)

// Classifier is the slice of the inference client the workflow needs.
type Classifier interface {
	Classify(ctx context.Context, filename string, data []byte) (*models.ClassificationResult, error)
}

// Snapshot is a point-in-time copy of the workflow for rendering.
type Snapshot struct {
	State        State                        `json:"state"`
	Filename     string                       `json:"filename,omitempty"`
	SizeBytes    int                          `json:"size_bytes,omitempty"`
	PreviewReady bool                         `json:"preview_ready"`
	Result       *models.ClassificationResult `json:"result,omitempty"`
	Error        string                       `json:"error,omitempty"`
}

// Workflow is one uploader instance's classification state machine. All
// transitions run under the instance lock; the inference call itself does
// not, so a slow model server never blocks state reads.
type Workflow struct {
	classifier Classifier

	mu         sync.Mutex
	state      State
	candidate  *upload.Candidate
	result     *models.ClassificationResult
	lastError  string
	generation uint64 // bumped by SetCandidate/Clear to invalidate in-flight responses
}

func NewWorkflow(classifier Classifier) *Workflow {
	return &Workflow{
		classifier: classifier,
		state:      StateIdle,
	}
}

// SetCandidate replaces the candidate wholesale and drops any previous
// result or error. Allowed from any non-submitting state.
func (w *Workflow) SetCandidate(c *upload.Candidate) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateSubmitting {
		return ErrSubmitInFlight
	}
	w.candidate = c
	w.result = nil
	w.lastError = ""
	w.state = StateHasCandidate
	w.generation++
	return nil
}

// Submit runs the in-flight classification. At most one submission per
// instance: a second trigger while Submitting returns ErrSubmitInFlight.
// On failure the candidate is preserved so the user can retry without
// re-uploading.
func (w *Workflow) Submit(ctx context.Context) (*models.ClassificationResult, error) {
	w.mu.Lock()
	switch w.state {
	case StateSubmitting:
		w.mu.Unlock()
		return nil, ErrSubmitInFlight
	case StateIdle:
		w.mu.Unlock()
		return nil, ErrNoCandidate
	}
	candidate := w.candidate
	generation := w.generation
	w.state = StateSubmitting
	w.mu.Unlock()

	result, err := w.classifier.Classify(ctx, candidate.Filename, candidate.Data)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.generation != generation {
		// The candidate was cleared or replaced while we were in flight;
		// this result no longer describes anything on screen.
		slog.Debug("Discarding classification result for replaced candidate")
		return nil, ErrNoCandidate
	}

	if err != nil {
		w.state = StateFailed
		w.lastError = errorMessage(err)
		return nil, err
	}

	w.state = StateSucceeded
	w.result = result
	w.lastError = ""
	return result, nil
}

// Clear returns the instance to Idle, dropping result and candidate
// together. "Classify another" lands here.
func (w *Workflow) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.candidate = nil
	w.result = nil
	w.lastError = ""
	w.state = StateIdle
	w.generation++
}

// Snapshot copies the current state for rendering.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		State:  w.state,
		Result: w.result,
		Error:  w.lastError,
	}
	if w.candidate != nil {
		snap.Filename = w.candidate.Filename
		snap.SizeBytes = w.candidate.Size()
		_, snap.PreviewReady = w.candidate.Preview()
	}
	return snap
}

// errorMessage prefers the service-provided detail, falling back to a
// generic string for bare transport errors.
func errorMessage(err error) string {
	var statusErr *inference.StatusError
	if errors.As(err, &statusErr) && statusErr.Detail != "" {
		return statusErr.Detail
	}
	return fallbackError
}
