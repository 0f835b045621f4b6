package gossip

import (
	"context"

	"github.com/ryandielhenn/fencer/pkg/state"
)

// SeedSource yields the addresses that are pulled every round whether or not
// they are currently members.
type SeedSource interface {
	Seeds(ctx context.Context) []state.Address
}

// StaticSeeds is a fixed seed list, usually from configuration.
type StaticSeeds []state.Address

func (s StaticSeeds) Seeds(context.Context) []state.Address {
	return append([]state.Address(nil), s...)
}

// MultiSource concatenates several sources, dropping duplicates.
type MultiSource []SeedSource

func (m MultiSource) Seeds(ctx context.Context) []state.Address {
	var out []state.Address
	seen := make(map[state.Address]struct{})
	for _, src := range m {
		if src == nil {
			continue
		}
		for _, a := range src.Seeds(ctx) {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}
