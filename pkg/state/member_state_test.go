package state

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberStateEncodesMissingLeaderAsFalse(t *testing.T) {
	b, err := json.Marshal(MemberState{StartTime: 12.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"members":[],"leader":false,"start_time":12.5}`, string(b))
}

func TestMemberStateEncodesLeaderAddress(t *testing.T) {
	b, err := json.Marshal(MemberState{Members: []Address{"a:1", "b:1"}, Leader: "a:1", StartTime: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"members":["a:1","b:1"],"leader":"a:1","start_time":3}`, string(b))
}

func TestMemberStateDecodesLeaderForms(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		want Address
	}{
		{"false", `{"members":["a:1"],"leader":false,"start_time":1}`, ""},
		{"null", `{"members":["a:1"],"leader":null,"start_time":1}`, ""},
		{"missing", `{"members":["a:1"],"start_time":1}`, ""},
		{"address", `{"members":["a:1"],"leader":"a:1","start_time":1}`, "a:1"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var st MemberState
			require.NoError(t, json.Unmarshal([]byte(tc.in), &st))
			assert.Equal(t, tc.want, st.Leader)
			assert.Equal(t, []Address{"a:1"}, st.Members)
		})
	}
}

func TestMemberStateRejectsMalformedLeader(t *testing.T) {
	var st MemberState
	err := json.Unmarshal([]byte(`{"members":[],"leader":42,"start_time":1}`), &st)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedLeader))
}

func TestMemberStateRejectsIncompleteBodies(t *testing.T) {
	for name, in := range map[string]string{
		"empty object":       `{}`,
		"null":               `null`,
		"missing start_time": `{"members":["x:1"]}`,
		"missing members":    `{"leader":false,"start_time":1}`,
		"null members":       `{"members":null,"start_time":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			var st MemberState
			err := json.Unmarshal([]byte(in), &st)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedState), "got %v", err)
		})
	}
}

func TestMemberStateDecodesZeroStartTime(t *testing.T) {
	var st MemberState
	require.NoError(t, json.Unmarshal([]byte(`{"members":[],"leader":false,"start_time":0}`), &st))
	assert.Equal(t, []Address{}, st.Members)
	assert.Zero(t, st.StartTime)
}

func TestNormalizeAddress(t *testing.T) {
	for in, want := range map[string]Address{
		"10.0.0.1:1337":        "10.0.0.1:1337",
		"http://10.0.0.1:1337": "10.0.0.1:1337",
		"https://node-a/":      "node-a:4000",
		" node-b ":             "node-b:4000",
		"":                     "",
	} {
		assert.Equal(t, want, NormalizeAddress(in, DefaultPort), "input %q", in)
	}
}

func TestParseAddressList(t *testing.T) {
	got := ParseAddressList("a:1, b ,,a:1,http://c:2", DefaultPort)
	assert.Equal(t, []Address{"a:1", "b:4000", "c:2"}, got)
}
