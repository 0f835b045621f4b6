package gossip

import (
	"context"

	"go.uber.org/zap"

	"github.com/ryandielhenn/fencer/pkg/state"
)

// Admit adds addr to the member list if it answers a probe. Known members
// and the local address are accepted without a probe. A failed probe prunes
// whatever state is still recorded for addr.
func (e *Engine) Admit(ctx context.Context, addr state.Address) bool {
	if addr == "" {
		return false
	}
	if addr == e.store.Self() || e.store.HasMember(addr) {
		return true
	}
	if err := e.peers.Probe(ctx, addr); err != nil {
		e.log.Debug("probe failed", zap.Stringer("addr", addr), zap.Error(err))
		e.markFailed(addr)
		return false
	}
	e.store.AddMember(addr)
	return true
}

// targets returns every seed plus every member other than self. Seeds that
// are already members appear once.
func (e *Engine) targets(ctx context.Context, members []state.Address) []state.Address {
	self := e.store.Self()
	seen := map[state.Address]struct{}{self: {}}
	var out []state.Address

	add := func(a state.Address) {
		if _, ok := seen[a]; ok || a == "" {
			return
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	if e.seeds != nil {
		for _, a := range e.seeds.Seeds(ctx) {
			add(a)
		}
	}
	for _, a := range members {
		add(a)
	}
	return out
}
