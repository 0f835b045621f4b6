package state

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// ErrMalformedLeader is returned when a peer reports a leader that is neither
// an address nor the "no leader" marker.
var ErrMalformedLeader = errors.New("leader must be an address or false")

// ErrMalformedState is returned for a state body that is null or lacks
// members or start_time.
var ErrMalformedState = errors.New("state must carry members and start_time")

// MemberState is a node's self-reported view at the time it was captured.
// A zero Leader means the node has not elected anyone yet.
type MemberState struct {
	Members   []Address
	Leader    Address
	StartTime float64
}

type wireState struct {
	Members   []Address       `json:"members"`
	Leader    json.RawMessage `json:"leader"`
	StartTime float64         `json:"start_time"`
}

// MarshalJSON encodes an absent leader as false.
func (s MemberState) MarshalJSON() ([]byte, error) {
	leader := json.RawMessage("false")
	if s.Leader != "" {
		b, err := json.Marshal(string(s.Leader))
		if err != nil {
			return nil, err
		}
		leader = b
	}
	members := s.Members
	if members == nil {
		members = []Address{}
	}
	return json.Marshal(wireState{Members: members, Leader: leader, StartTime: s.StartTime})
}

// incomingState has pointer fields so absent keys can be told apart from
// zero values.
type incomingState struct {
	Members   *[]Address      `json:"members"`
	Leader    json.RawMessage `json:"leader"`
	StartTime *float64        `json:"start_time"`
}

// UnmarshalJSON accepts false or null for "no leader" and a string otherwise.
// members and start_time are required.
func (s *MemberState) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		return errors.Wrap(ErrMalformedState, "got null")
	}
	var w incomingState
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch {
	case w.Members == nil || *w.Members == nil:
		return errors.Wrap(ErrMalformedState, "members missing")
	case w.StartTime == nil:
		return errors.Wrap(ErrMalformedState, "start_time missing")
	}
	leader, err := decodeLeader(w.Leader)
	if err != nil {
		return err
	}
	*s = MemberState{Members: *w.Members, Leader: leader, StartTime: *w.StartTime}
	return nil
}

func decodeLeader(raw json.RawMessage) (Address, error) {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "false" {
		return "", nil
	}
	var addr string
	if err := json.Unmarshal(raw, &addr); err != nil {
		return "", errors.Wrapf(ErrMalformedLeader, "got %s", raw)
	}
	return Address(addr), nil
}

// Clone returns a copy that shares no memory with s.
func (s MemberState) Clone() MemberState {
	out := s
	if s.Members != nil {
		out.Members = append([]Address(nil), s.Members...)
	}
	return out
}

// HasMember reports whether addr is listed in the snapshot's members.
func (s MemberState) HasMember(addr Address) bool {
	for _, m := range s.Members {
		if m == addr {
			return true
		}
	}
	return false
}

// Timestamp converts t to fractional seconds since the Unix epoch, the unit
// used for start_time on the wire.
func Timestamp(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}
