package peer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryandielhenn/fencer/pkg/state"
)

func serverAddr(ts *httptest.Server) state.Address {
	return state.Address(strings.TrimPrefix(ts.URL, "http://"))
}

func TestPullAnnouncesSelf(t *testing.T) {
	var gotPath string
	mux := http.NewServeMux()
	mux.HandleFunc("/state/", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"members":["peer:1","me:1"],"leader":"peer:1","start_time":10}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := NewClient("me:1")
	st, err := c.Pull(context.Background(), serverAddr(ts))
	require.NoError(t, err)

	assert.Equal(t, "/state/me:1", gotPath)
	assert.Equal(t, state.Address("peer:1"), st.Leader)
	assert.Equal(t, []state.Address{"peer:1", "me:1"}, st.Members)
	assert.Equal(t, 10.0, st.StartTime)
}

func TestPullNonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := NewClient("me:1").Pull(context.Background(), serverAddr(ts))
	var se *StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
}

func TestPullMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"members":"oops"`))
	}))
	defer ts.Close()

	_, err := NewClient("me:1").Pull(context.Background(), serverAddr(ts))
	require.Error(t, err)
}

func TestPullIncompleteBody(t *testing.T) {
	for _, body := range []string{`{}`, `null`, `{"members":["x:1"]}`} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		_, err := NewClient("me:1").Pull(context.Background(), serverAddr(ts))
		assert.ErrorIs(t, err, state.ErrMalformedState, "body %s", body)
		ts.Close()
	}
}

func TestPullSelfShortCircuits(t *testing.T) {
	_, err := NewClient("me:1").Pull(context.Background(), "me:1")
	assert.ErrorIs(t, err, ErrSelf)
	assert.ErrorIs(t, NewClient("me:1").Probe(context.Background(), "me:1"), ErrSelf)
}

func TestPullTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c := NewClient("me:1", WithPullTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := c.Pull(context.Background(), serverAddr(ts))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestProbe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	ts := httptest.NewServer(mux)

	c := NewClient("me:1", WithProbeTimeout(200*time.Millisecond))
	require.NoError(t, c.Probe(context.Background(), serverAddr(ts)))

	addr := serverAddr(ts)
	ts.Close()
	require.Error(t, c.Probe(context.Background(), addr))
}

func TestStateDoesNotAnnounce(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"members":[],"leader":false,"start_time":1}`))
	}))
	defer ts.Close()

	st, err := NewClient("me:1").State(context.Background(), serverAddr(ts))
	require.NoError(t, err)
	assert.Equal(t, "/state", gotPath)
	assert.Equal(t, state.Address(""), st.Leader)
}
