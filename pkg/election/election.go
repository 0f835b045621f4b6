// Package election picks a leader from gossiped state: the member that has
// been running the longest wins.
//
// This is not consensus. Two partitioned groups can each elect a leader, and
// disagreement between peers is only resolved by later gossip rounds.
package election

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/fencer/internal/telemetry"
	"github.com/ryandielhenn/fencer/pkg/state"
)

// Outcome describes what one evaluation did.
type Outcome int

const (
	// Skipped: nothing has been elected yet and no peer state is known.
	Skipped Outcome = iota
	// Deferred: self is the nominee but some peer reports another leader.
	Deferred
	// Unchanged: the nominee already holds the leader slot.
	Unchanged
	// Elected: the leader slot was updated.
	Elected
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Deferred:
		return "deferred"
	case Unchanged:
		return "unchanged"
	case Elected:
		return "elected"
	default:
		return "unknown"
	}
}

// Store is the part of state.Store the election reads and writes.
type Store interface {
	Self() state.Address
	StartTime() float64
	Members() []state.Address
	States() map[state.Address]state.MemberState
	Leader() state.Address
	SetLeader(state.Address) (state.Address, bool)
}

// Engine evaluates the leader after every gossip round.
type Engine struct {
	store      Store
	hook       Hook
	dispatcher *Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithHook registers the callback run on every leader change.
func WithHook(h Hook) Option {
	return func(e *Engine) { e.hook = h }
}

// New creates an Engine. Without WithHook leader changes are only logged.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.dispatcher = NewDispatcher(e.hook, e.log)
	return e
}

// Nominate returns the address with the smallest start time. Self holds the
// slot until a strictly older node is found.
func Nominate(self state.Address, selfStart float64, states map[state.Address]state.MemberState) state.Address {
	nominee, best := self, selfStart
	for addr, st := range states {
		if st.StartTime < best {
			nominee, best = addr, st.StartTime
		}
	}
	return nominee
}

// Evaluate runs one election against the current snapshot map.
func (e *Engine) Evaluate(_ context.Context) Outcome {
	self := e.store.Self()
	states := e.store.States()
	current := e.store.Leader()

	if current == "" && len(states) <= 1 {
		return Skipped
	}

	nominee := Nominate(self, e.store.StartTime(), states)

	if nominee == self && len(e.store.Members()) > 1 {
		for addr, st := range states {
			if addr == self || st.Leader == nominee {
				continue
			}
			e.log.Info("skipping this election cycle until other members confirm this node can be leader",
				zap.Stringer("peer", addr), zap.Stringer("peer_leader", st.Leader))
			telemetry.ElectionsDeferred.Inc()
			return Deferred
		}
	}

	if current == nominee {
		return Unchanged
	}

	prev, changed := e.store.SetLeader(nominee)
	if !changed {
		return Unchanged
	}
	e.log.Info("new leader elected", zap.Stringer("leader", nominee), zap.Stringer("previous", prev))
	telemetry.LeaderChanges.Inc()
	if nominee == self {
		telemetry.IsLeader.Set(1)
	} else {
		telemetry.IsLeader.Set(0)
	}

	e.dispatcher.Dispatch(Change{Self: self, Previous: prev, Leader: nominee, At: e.now()})
	return Elected
}
