package node

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ryandielhenn/fencer/pkg/state"
)

// Ping is a proof of life. It does not look at cluster state.
func (n *Node) Ping(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// State returns this node's current state.
func (n *Node) State(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, n.store.SnapshotSelf())
}

// Join admits the address in the path, if it is reachable, then returns this
// node's state. An unreachable address leaves the member list untouched.
func (n *Node) Join(w http.ResponseWriter, req *http.Request) {
	raw := chi.URLParam(req, "addr")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	addr := state.NormalizeAddress(raw, state.DefaultPort)

	if addr != "" && n.admit != nil {
		if !n.admit.Admit(req.Context(), addr) {
			n.log.Debug("announced address not reachable", zap.Stringer("addr", addr))
		}
	}
	writeJSON(w, n.store.SnapshotSelf())
}

// Diag dumps the local state plus every state pulled from peers.
func (n *Node) Diag(w http.ResponseWriter, _ *http.Request) {
	data, err := json.MarshalIndent(n.store.Diag(), "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(append(data, '\n'))
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
