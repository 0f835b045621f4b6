// Package gossip implements pull-based membership for fencer.
//
// Every round the Engine pulls state from each configured seed and each known
// member in parallel. A pull also announces this node to the peer, so one
// request both reads their view and tells them about us. Members listed in a
// pulled state are probed and admitted, which is how nodes that only know a
// seed end up knowing the whole cluster. Any peer that fails a pull is pruned
// from the member list and its state is forgotten; it comes back on its own
// through seeds or other members once it is reachable again.
//
// After the fan-out completes the election is evaluated, then the Engine
// sleeps for the configured interval.
//
// Typical usage:
//
//	e := gossip.New(store, peer.NewClient(self), election.New(store), gossip.Config{
//		Seeds:    gossip.StaticSeeds(seeds),
//		Interval: 5 * time.Second,
//	})
//	go e.Run(ctx)
package gossip
