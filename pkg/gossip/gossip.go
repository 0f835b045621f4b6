package gossip

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/fencer/internal/telemetry"
	"github.com/ryandielhenn/fencer/pkg/election"
	"github.com/ryandielhenn/fencer/pkg/state"
)

const DefaultInterval = 5 * time.Second

// Store is the part of state.Store the gossip loop mutates.
type Store interface {
	Self() state.Address
	Members() []state.Address
	HasMember(state.Address) bool
	AddMember(state.Address) bool
	RemoveMember(state.Address) bool
	ApplyPeerState(state.Address, state.MemberState)
}

type Config struct {
	// Seeds are pulled every round, even once they are members.
	Seeds SeedSource
	// Interval is the sleep between the end of one round and the next.
	Interval time.Duration
	Logger   *zap.Logger
}

// Engine runs the anti-entropy loop.
type Engine struct {
	store    Store
	peers    Transport
	elector  Elector
	seeds    SeedSource
	interval time.Duration
	log      *zap.Logger
}

func New(store Store, peers Transport, elector Elector, cfg Config) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{
		store:    store,
		peers:    peers,
		elector:  elector,
		seeds:    cfg.Seeds,
		interval: cfg.Interval,
		log:      cfg.Logger,
	}
}

// Run executes rounds until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	for {
		e.RunRound(ctx)

		t := time.NewTimer(e.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// RunRound pulls from every target in parallel, waits for all of them, then
// evaluates the election. One unreachable peer only affects its own entry.
func (e *Engine) RunRound(ctx context.Context) election.Outcome {
	start := time.Now()
	members := e.store.Members()
	targets := e.targets(ctx, members)
	e.log.Debug("updating member list with peers", zap.Int("targets", len(targets)))

	var wg sync.WaitGroup
	for _, addr := range targets {
		wg.Add(1)
		go func(addr state.Address) {
			defer wg.Done()
			e.exchange(ctx, addr)
		}(addr)
	}
	wg.Wait()

	outcome := e.elector.Evaluate(ctx)

	telemetry.Members.Set(float64(len(e.store.Members())))
	telemetry.GossipRounds.Inc()
	telemetry.GossipRoundDuration.Observe(time.Since(start).Seconds())
	return outcome
}

// exchange pulls addr's state, records it and admits every member it lists.
func (e *Engine) exchange(ctx context.Context, addr state.Address) {
	st, err := e.peers.Pull(ctx, addr)
	if err != nil {
		telemetry.PullsTotal.WithLabelValues("error").Inc()
		if ctx.Err() != nil {
			return
		}
		e.log.Debug("pull failed", zap.Stringer("addr", addr), zap.Error(err))
		e.markFailed(addr)
		return
	}
	telemetry.PullsTotal.WithLabelValues("ok").Inc()

	e.store.ApplyPeerState(addr, st)
	for _, m := range st.Members {
		e.Admit(ctx, m)
	}
}
