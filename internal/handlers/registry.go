package handlers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/KARTIK027-CODE/StubbleX/internal/classify"
	"github.com/KARTIK027-CODE/StubbleX/internal/pricing"
)

// Workspace holds the per-client workflow instances, one classification
// state machine and one price estimator, keyed by the workspace ID the
// session carries.
type Workspace struct {
	Workflow  *classify.Workflow
	Estimator *pricing.Estimator
}

type workspaceEntry struct {
	ws       *Workspace
	lastSeen time.Time
}

// Registry creates workspaces on demand and evicts idle ones so
// abandoned sessions don't pin candidate bytes in memory.
type Registry struct {
	classifier classify.Classifier
	pricer     pricing.Pricer
	idleTTL    time.Duration

	mu         sync.Mutex
	workspaces map[string]*workspaceEntry
}

func NewRegistry(classifier classify.Classifier, pricer pricing.Pricer, idleTTL time.Duration) *Registry {
	r := &Registry{
		classifier: classifier,
		pricer:     pricer,
		idleTTL:    idleTTL,
		workspaces: make(map[string]*workspaceEntry),
	}
	go r.cleanup()
	return r
}

// Get returns the workspace for the ID, creating it on first use.
func (r *Registry) Get(id string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.workspaces[id]
	if !ok {
		entry = &workspaceEntry{
			ws: &Workspace{
				Workflow:  classify.NewWorkflow(r.classifier),
				Estimator: pricing.NewEstimator(r.pricer),
			},
		}
		r.workspaces[id] = entry
	}
	entry.lastSeen = time.Now()
	return entry.ws
}

// Drop removes a workspace immediately (sign-out).
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.workspaces[id]; ok {
		entry.ws.Estimator.Close()
		delete(r.workspaces, id)
	}
}

// evictIdle removes workspaces that went quiet. Split out for tests.
func (r *Registry) evictIdle(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, entry := range r.workspaces {
		if now.Sub(entry.lastSeen) > r.idleTTL {
			entry.ws.Estimator.Close()
			delete(r.workspaces, id)
			evicted++
		}
	}
	return evicted
}

func (r *Registry) cleanup() {
	for {
		time.Sleep(time.Minute)
		if n := r.evictIdle(time.Now()); n > 0 {
			slog.Debug("Evicted idle workspaces", "count", n)
		}
	}
}
