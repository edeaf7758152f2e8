package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// View is the scheduler's complete current state, published as one immutable
// value. Readers get a consistent snapshot without locking; writers replace
// the whole view.
type View struct {
	Snapshots     []domain.PriceSnapshot
	Opportunities []domain.Opportunity
	Gas           domain.GasReading
	Cycle         uint64
	Freshness     domain.DataFreshness
	Degraded      bool
	ActiveSource  string
	LastRefreshAt time.Time
	PriceFailures uint64
	GasFailures   uint64
	LastError     string
}

// Snapshot returns the snapshot for a token, if present in the view.
func (v View) Snapshot(token string) (domain.PriceSnapshot, bool) {
	for _, s := range v.Snapshots {
		if s.Token == token {
			return s, true
		}
	}
	return domain.PriceSnapshot{}, false
}

// Opportunity resolves an opportunity ID against the current view.
func (v View) Opportunity(id string) (domain.Opportunity, bool) {
	for _, o := range v.Opportunities {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Opportunity{}, false
}

// state holds the published view. Reads are lock-free through the atomic
// pointer; the mutex serializes read-modify-write update cycles between the
// price and gas loops.
type state struct {
	mu      sync.Mutex
	current atomic.Pointer[View]
}

func newState() *state {
	s := &state{}
	s.current.Store(&View{Freshness: domain.FreshnessNone})
	return s
}

// load returns the current view by value.
func (s *state) load() View {
	return *s.current.Load()
}

// update applies fn to a copy of the current view and publishes the result.
func (s *state) update(fn func(v *View)) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.current.Load()
	fn(&next)
	s.current.Store(&next)
	return next
}
