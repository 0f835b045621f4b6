package state

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store holds this node's view of the cluster: the member list, the last
// state pulled from every reachable member and the current leader.
//
// Each of the three resources has its own lock. Callers never receive
// references to internal slices or maps.
type Store struct {
	self      Address
	startTime float64
	log       *zap.Logger

	membersMu sync.RWMutex
	members   []Address

	statesMu sync.RWMutex
	states   map[Address]MemberState

	leaderMu sync.RWMutex
	leader   Address
}

// Option configures a Store.
type Option func(*Store)

// WithStartTime overrides the process start time reported to peers.
func WithStartTime(t time.Time) Option {
	return func(s *Store) { s.startTime = Timestamp(t) }
}

// WithLogger sets the logger used for membership changes.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore creates a store whose member list contains only self.
func NewStore(self Address, opts ...Option) *Store {
	s := &Store{
		self:      self,
		startTime: Timestamp(time.Now()),
		log:       zap.NewNop(),
		members:   []Address{self},
		states:    make(map[Address]MemberState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Self() Address { return s.self }

func (s *Store) StartTime() float64 { return s.startTime }

// SnapshotSelf builds this node's current state, records it under the local
// address and returns it.
func (s *Store) SnapshotSelf() MemberState {
	st := MemberState{
		Members:   s.Members(),
		Leader:    s.Leader(),
		StartTime: s.startTime,
	}

	s.statesMu.Lock()
	s.states[s.self] = st.Clone()
	s.statesMu.Unlock()
	return st
}

// AddMember adds addr to the member list. It reports whether addr was new.
func (s *Store) AddMember(addr Address) bool {
	if addr == "" {
		return false
	}
	s.membersMu.Lock()
	defer s.membersMu.Unlock()
	for _, m := range s.members {
		if m == addr {
			return false
		}
	}
	s.log.Info("adding member", zap.Stringer("addr", addr))
	s.members = append(s.members, addr)
	return true
}

// HasMember reports whether addr is currently a member.
func (s *Store) HasMember(addr Address) bool {
	s.membersMu.RLock()
	defer s.membersMu.RUnlock()
	for _, m := range s.members {
		if m == addr {
			return true
		}
	}
	return false
}

// RemoveMember drops addr from the member list and forgets its state. The
// local address is never removed. It reports whether anything was dropped.
func (s *Store) RemoveMember(addr Address) bool {
	if addr == s.self {
		return false
	}

	s.statesMu.Lock()
	_, hadState := s.states[addr]
	delete(s.states, addr)
	s.statesMu.Unlock()

	s.membersMu.Lock()
	hadMember := false
	for i, m := range s.members {
		if m == addr {
			s.members = append(s.members[:i], s.members[i+1:]...)
			hadMember = true
			break
		}
	}
	s.membersMu.Unlock()

	if hadState || hadMember {
		s.log.Info("removing member", zap.Stringer("addr", addr))
	}
	return hadState || hadMember
}

// Members returns a copy of the member list.
func (s *Store) Members() []Address {
	s.membersMu.RLock()
	defer s.membersMu.RUnlock()
	return append([]Address(nil), s.members...)
}

// ApplyPeerState replaces whatever was last recorded for addr.
func (s *Store) ApplyPeerState(addr Address, st MemberState) {
	s.statesMu.Lock()
	s.states[addr] = st.Clone()
	s.statesMu.Unlock()
}

// States returns a copy of every recorded snapshot, keyed by address.
func (s *Store) States() map[Address]MemberState {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()
	out := make(map[Address]MemberState, len(s.states))
	for addr, st := range s.states {
		out[addr] = st.Clone()
	}
	return out
}

// Leader returns the current leader, or "" if none has been elected.
func (s *Store) Leader() Address {
	s.leaderMu.RLock()
	defer s.leaderMu.RUnlock()
	return s.leader
}

// SetLeader overwrites the leader slot and returns the previous value along
// with whether it changed.
func (s *Store) SetLeader(addr Address) (prev Address, changed bool) {
	s.leaderMu.Lock()
	defer s.leaderMu.Unlock()
	prev = s.leader
	s.leader = addr
	return prev, prev != addr
}

// Diagnostics is the full dump served on /diag.
type Diagnostics struct {
	State        MemberState             `json:"state"`
	MemberStates map[Address]MemberState `json:"member_states"`
}

// Diag refreshes the local snapshot and returns it with every known state.
func (s *Store) Diag() Diagnostics {
	st := s.SnapshotSelf()
	return Diagnostics{State: st, MemberStates: s.States()}
}
