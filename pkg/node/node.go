package node

import (
	"context"

	"go.uber.org/zap"

	"github.com/ryandielhenn/fencer/pkg/state"
)

// Admitter decides whether an address announced by a caller may join.
// gossip.Engine probes the address before adding it.
type Admitter interface {
	Admit(ctx context.Context, addr state.Address) bool
}

// Node serves the local state store over HTTP.
type Node struct {
	store *state.Store
	admit Admitter
	log   *zap.Logger
}

func NewNode(store *state.Store, admit Admitter, log *zap.Logger) *Node {
	if log == nil {
		log = zap.NewNop()
	}
	return &Node{
		store: store,
		admit: admit,
		log:   log,
	}
}

func (n *Node) Addr() state.Address {
	return n.store.Self()
}
