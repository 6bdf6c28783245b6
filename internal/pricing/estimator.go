// Package pricing keeps a displayed market estimate in step with rapid
// input edits. Edits are debounced behind a quiescence window, every
// issued request is stamped with a monotonically increasing token, and a
// response is applied only when its token is still the latest at arrival
// time. Last issued wins, regardless of arrival order.
package pricing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/KARTIK027-CODE/StubbleX/internal/metrics"
	"github.com/KARTIK027-CODE/StubbleX/internal/models"
)

// DebounceWindow is the quiescence period between the last edit and the
// request actually going out.
const DebounceWindow = 500 * time.Millisecond

// requestTimeout bounds one refresh call; a refresh is best-effort and
// should never hang the estimator.
const requestTimeout = 30 * time.Second

// Pricer is the slice of the inference client the estimator needs.
type Pricer interface {
	PredictPrice(ctx context.Context, query models.PriceQuery) (*models.PriceEstimate, error)
}

// Snapshot is what the dashboard renders: the last applied estimate plus
// low-emphasis refresh indicators. A failed refresh leaves the previous
// estimate in place rather than erroring the page.
type Snapshot struct {
	Estimate      *models.PriceEstimate `json:"estimate,omitempty"`
	Query         *models.PriceQuery    `json:"query,omitempty"`
	Refreshing    bool                  `json:"refreshing"`
	RefreshFailed bool                  `json:"refresh_failed"`
}

// Estimator is one query instance's debounce-and-discard coordinator.
type Estimator struct {
	pricer   Pricer
	debounce time.Duration

	mu            sync.Mutex
	pending       *models.PriceQuery
	timer         *time.Timer
	timerSeq      uint64
	latestToken   uint64
	estimate      *models.PriceEstimate
	appliedQuery  *models.PriceQuery
	inFlight      int
	refreshFailed bool
	closed        bool
}

func NewEstimator(pricer Pricer) *Estimator {
	return newEstimator(pricer, DebounceWindow)
}

// newEstimator lets tests shrink the quiescence window.
func newEstimator(pricer Pricer, debounce time.Duration) *Estimator {
	return &Estimator{pricer: pricer, debounce: debounce}
}

// Update records one edit of the inputs. Each edit restarts the
// quiescence window; an edit inside the window supersedes the earlier
// one without issuing its request.
func (e *Estimator) Update(query models.PriceQuery) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.pending = &query
	if e.timer != nil {
		e.timer.Stop()
	}
	// Each armed timer carries its sequence number. Stop is not enough on
	// its own: a timer that already fired and is waiting on the mutex
	// would otherwise issue the new edit without its quiescence window.
	e.timerSeq++
	seq := e.timerSeq
	e.timer = time.AfterFunc(e.debounce, func() { e.fire(seq) })
}

// Flush issues any pending edit immediately instead of waiting out the
// window. Used on shutdown and by tests.
func (e *Estimator) Flush() {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.timerSeq++
	seq := e.timerSeq
	e.mu.Unlock()
	e.fire(seq)
}

// Close stops the timer and refuses further edits. Responses already in
// flight are discarded by the token check as usual.
func (e *Estimator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.pending = nil
}

// Snapshot returns the displayed state.
func (e *Estimator) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		Refreshing:    e.inFlight > 0 || e.pending != nil,
		RefreshFailed: e.refreshFailed,
	}
	if e.estimate != nil {
		est := *e.estimate
		snap.Estimate = &est
	}
	if e.appliedQuery != nil {
		q := *e.appliedQuery
		snap.Query = &q
	}
	return snap
}

// fire runs when the window goes quiet: it stamps the pending query with
// the next token and issues the request. A fire whose timer has been
// superseded is a no-op; the edit it would have issued belongs to the
// newer timer.
func (e *Estimator) fire(seq uint64) {
	e.mu.Lock()
	if seq != e.timerSeq || e.closed || e.pending == nil {
		e.mu.Unlock()
		return
	}
	query := *e.pending
	e.pending = nil
	e.timer = nil
	e.latestToken++
	token := e.latestToken
	e.inFlight++
	e.mu.Unlock()

	go e.issue(token, query)
}

func (e *Estimator) issue(token uint64, query models.PriceQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	estimate, err := e.pricer.PredictPrice(ctx, query)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight--

	if token != e.latestToken {
		// Superseded by a later edit; discard silently. Not an error.
		slog.Debug("Discarding stale price estimate", "token", token, "latest", e.latestToken)
		metrics.PriceRefreshes.WithLabelValues("stale").Inc()
		return
	}

	if err != nil {
		// Keep the last known estimate on screen; just flag the refresh.
		slog.Debug("Price refresh failed", "error", err)
		metrics.PriceRefreshes.WithLabelValues("failed").Inc()
		e.refreshFailed = true
		return
	}

	metrics.PriceRefreshes.WithLabelValues("applied").Inc()
	e.estimate = estimate
	e.appliedQuery = &query
	e.refreshFailed = false
}
