package gossip

import (
	"github.com/ryandielhenn/fencer/pkg/state"
)

// Failure detection is binary: one failed pull or probe and the peer is gone.
// There is no suspicion phase and no backoff; a pruned peer is contacted
// again next round if it is a seed or some member still lists it.
func (e *Engine) markFailed(addr state.Address) {
	if addr == e.store.Self() {
		return
	}
	e.store.RemoveMember(addr)
}
