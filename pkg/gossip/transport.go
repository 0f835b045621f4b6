package gossip

import (
	"context"

	"github.com/ryandielhenn/fencer/pkg/election"
	"github.com/ryandielhenn/fencer/pkg/state"
)

// Transport performs the outbound calls of a round. peer.Client is the
// production implementation.
type Transport interface {
	Probe(ctx context.Context, addr state.Address) error
	Pull(ctx context.Context, addr state.Address) (state.MemberState, error)
}

// Elector is evaluated once per round after every pull has been merged.
type Elector interface {
	Evaluate(ctx context.Context) election.Outcome
}
