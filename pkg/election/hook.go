package election

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/fencer/internal/telemetry"
	"github.com/ryandielhenn/fencer/pkg/state"
)

// Change is emitted once per transition of the leader slot.
type Change struct {
	Self     state.Address
	Previous state.Address
	Leader   state.Address
	At       time.Time
}

// IsSelf reports whether this node became the leader.
func (c Change) IsSelf() bool { return c.Leader == c.Self }

// Hook reacts to a leader change. It runs detached from the election: nobody
// waits for it, and a returned error is logged and dropped.
type Hook func(ctx context.Context, c Change) error

// Dispatcher starts one goroutine per change.
type Dispatcher struct {
	hook Hook
	log  *zap.Logger
}

func NewDispatcher(h Hook, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{hook: h, log: log}
}

// Dispatch runs the hook in the background and returns immediately.
func (d *Dispatcher) Dispatch(c Change) {
	if d.hook == nil {
		return
	}
	go d.run(c)
}

func (d *Dispatcher) run(c Change) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.HookFailures.Inc()
			d.log.Error("leader change hook panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := d.hook(context.Background(), c); err != nil {
		telemetry.HookFailures.Inc()
		d.log.Warn("leader change hook failed", zap.Stringer("leader", c.Leader), zap.Error(err))
	}
}

// Chain runs hooks in order and stops at the first error.
func Chain(hooks ...Hook) Hook {
	return func(ctx context.Context, c Change) error {
		for _, h := range hooks {
			if h == nil {
				continue
			}
			if err := h(ctx, c); err != nil {
				return err
			}
		}
		return nil
	}
}
