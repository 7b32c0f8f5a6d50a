// Package breaker implements per-source circuit breaking for feed fetches.
// A source with five consecutive failures is held open for five minutes;
// after the cooldown the entry is discarded and the next fetch acts as a
// probe, collapsing the classic half-open state into a decide-on-result path.
package breaker

import (
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
)

const (
	failureThreshold = 5
	cooldown         = 5 * time.Minute
)

// State is the circuit state for a single source
type State struct {
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure"`
	Open        bool      `json:"open"`
}

// Registry tracks circuit state per source id. Absent entry means closed.
// It is the only shared mutable structure in the pipeline; all access is
// serialized by the internal mutex.
type Registry struct {
	mu     sync.Mutex
	states map[string]*State
	now    func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		states: make(map[string]*State),
		now:    time.Now,
	}
}

// Admit reports whether a fetch for the source may proceed. An open circuit
// past its cooldown is discarded so the next call behaves as closed.
func (r *Registry) Admit(sourceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.states[sourceID]
	if !ok {
		return true
	}
	if !st.Open {
		return true
	}
	if r.now().Sub(st.LastFailure) > cooldown {
		delete(r.states, sourceID)
		lgr.Printf("[INFO] circuit cooldown elapsed for %s, probing", sourceID)
		return true
	}
	return false
}

// RecordSuccess clears the source's failure state
func (r *Registry) RecordSuccess(sourceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, sourceID)
}

// RecordFailure counts a failure against the source, opening the circuit at
// the threshold
func (r *Registry) RecordFailure(sourceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.states[sourceID]
	if !ok {
		st = &State{}
		r.states[sourceID] = st
	}
	st.Failures++
	st.LastFailure = r.now()
	if st.Failures >= failureThreshold && !st.Open {
		st.Open = true
		lgr.Printf("[WARN] circuit opened for %s after %d failures", sourceID, st.Failures)
	}
}

// Reset is an administrative override that unconditionally clears the entry
func (r *Registry) Reset(sourceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, sourceID)
	lgr.Printf("[INFO] circuit reset for %s", sourceID)
}

// Snapshot returns a copy of all current states keyed by source id
func (r *Registry) Snapshot() map[string]State {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]State, len(r.states))
	for id, st := range r.states {
		out[id] = *st
	}
	return out
}
