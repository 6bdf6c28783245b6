package classify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KARTIK027-CODE/StubbleX/internal/inference"
	"github.com/KARTIK027-CODE/StubbleX/internal/models"
	"github.com/KARTIK027-CODE/StubbleX/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClassifier answers with a canned result or error, optionally
// blocking until released so tests can observe the in-flight state.
type fakeClassifier struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	result  *models.ClassificationResult
	err     error
}

func (f *fakeClassifier) Classify(ctx context.Context, filename string, data []byte) (*models.ClassificationResult, error) {
	f.mu.Lock()
	f.calls++
	release := f.release
	result, err := f.result, f.err
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	return result, err
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func strawResult() *models.ClassificationResult {
	return &models.ClassificationResult{
		PredictedClass: "rice_straw",
		DisplayName:    "Rice Straw (Parali)",
		Confidence:     0.82,
		IndustrialUses: []models.IndustrialUse{
			{Industry: "Paper", Use: "Pulp feedstock", Demand: "High"},
		},
		EnvironmentalBenefits: models.EnvironmentalBenefits{CO2ReductionPerTon: 1.5},
		PriceRange:            models.PriceRange{MinPerTon: 1800, MaxPerTon: 2600},
	}
}

func candidate(name string) *upload.Candidate {
	return &upload.Candidate{Filename: name, MimeType: "image/jpeg", Data: []byte("img-bytes")}
}

func TestSubmitWithoutCandidate(t *testing.T) {
	w := NewWorkflow(&fakeClassifier{})
	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestSubmitSuccess(t *testing.T) {
	w := NewWorkflow(&fakeClassifier{result: strawResult()})
	require.NoError(t, w.SetCandidate(candidate("straw.jpg")))

	result, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rice_straw", result.PredictedClass)
	assert.InDelta(t, 0.82, result.Confidence, 0.001)

	snap := w.Snapshot()
	assert.Equal(t, StateSucceeded, snap.State)
	assert.Equal(t, "straw.jpg", snap.Filename)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "Rice Straw (Parali)", snap.Result.DisplayName)
	assert.Empty(t, snap.Error)
}

func TestSubmitSingleFlight(t *testing.T) {
	fake := &fakeClassifier{result: strawResult(), release: make(chan struct{})}
	w := NewWorkflow(fake)
	require.NoError(t, w.SetCandidate(candidate("straw.jpg")))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := w.Submit(context.Background())
		assert.NoError(t, err)
	}()

	waitForState(t, w, StateSubmitting)

	// A second trigger while in flight is a no-op, not a queued retry.
	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	// So is swapping the candidate mid-flight.
	err = w.SetCandidate(candidate("other.jpg"))
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(fake.release)
	<-done

	assert.Equal(t, 1, fake.callCount())
	assert.Equal(t, StateSucceeded, w.Snapshot().State)
}

func TestSubmitServiceRejection(t *testing.T) {
	fake := &fakeClassifier{err: &inference.StatusError{Code: 422, Detail: "Could not identify the waste type in this image"}}
	w := NewWorkflow(fake)
	require.NoError(t, w.SetCandidate(candidate("blurry.jpg")))

	_, err := w.Submit(context.Background())
	require.Error(t, err)

	snap := w.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, "Could not identify the waste type in this image", snap.Error)
	assert.Equal(t, "blurry.jpg", snap.Filename, "candidate survives the failure for retry")
}

func TestSubmitTransportFailureFallbackMessage(t *testing.T) {
	fake := &fakeClassifier{err: errors.New("connection refused")}
	w := NewWorkflow(fake)
	require.NoError(t, w.SetCandidate(candidate("straw.jpg")))

	_, err := w.Submit(context.Background())
	require.Error(t, err)

	snap := w.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, fallbackError, snap.Error)
}

func TestRetryAfterFailure(t *testing.T) {
	fake := &fakeClassifier{err: errors.New("connection refused")}
	w := NewWorkflow(fake)
	require.NoError(t, w.SetCandidate(candidate("straw.jpg")))

	_, err := w.Submit(context.Background())
	require.Error(t, err)

	// The service comes back; retry reuses the held candidate.
	fake.mu.Lock()
	fake.err = nil
	fake.result = strawResult()
	fake.mu.Unlock()

	result, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rice_straw", result.PredictedClass)
	assert.Equal(t, 2, fake.callCount())
}

func TestClearDuringFlightDiscardsResult(t *testing.T) {
	fake := &fakeClassifier{result: strawResult(), release: make(chan struct{})}
	w := NewWorkflow(fake)
	require.NoError(t, w.SetCandidate(candidate("straw.jpg")))

	errCh := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		errCh <- err
	}()

	waitForState(t, w, StateSubmitting)
	w.Clear()
	close(fake.release)

	assert.ErrorIs(t, <-errCh, ErrNoCandidate)

	snap := w.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Result, "a result for a cleared candidate never lands")
	assert.Empty(t, snap.Filename)
}

func TestClearResetsEverything(t *testing.T) {
	w := NewWorkflow(&fakeClassifier{result: strawResult()})
	require.NoError(t, w.SetCandidate(candidate("straw.jpg")))
	_, err := w.Submit(context.Background())
	require.NoError(t, err)

	w.Clear()

	snap := w.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Result)
	assert.Empty(t, snap.Error)
	assert.Empty(t, snap.Filename)
}

func TestNewCandidateDropsPreviousOutcome(t *testing.T) {
	w := NewWorkflow(&fakeClassifier{result: strawResult()})
	require.NoError(t, w.SetCandidate(candidate("first.jpg")))
	_, err := w.Submit(context.Background())
	require.NoError(t, err)

	require.NoError(t, w.SetCandidate(candidate("second.jpg")))

	snap := w.Snapshot()
	assert.Equal(t, StateHasCandidate, snap.State)
	assert.Nil(t, snap.Result, "stale result never shows beside a new candidate")
	assert.Equal(t, "second.jpg", snap.Filename)
}

func waitForState(t *testing.T, w *Workflow, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if w.Snapshot().State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("workflow never reached state %q", want)
}
