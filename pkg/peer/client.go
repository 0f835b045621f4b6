// Package peer performs the outbound calls a node makes against other nodes:
// liveness probes and state pulls. A Client holds no cluster state.
package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/ryandielhenn/fencer/pkg/state"
)

const (
	DefaultProbeTimeout = 1 * time.Second
	DefaultPullTimeout  = 3 * time.Second

	// Responses larger than this are treated as malformed.
	maxStateBytes = 1 << 20
)

// ErrSelf is returned when a node is asked to contact itself.
var ErrSelf = errors.New("refusing to contact self")

// StatusError reports a non-2xx response from a peer.
type StatusError struct {
	Addr state.Address
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("peer %s returned status %d", e.Addr, e.Code)
}

// Client talks to peers over HTTP.
type Client struct {
	self         state.Address
	http         *http.Client
	scheme       string
	probeTimeout time.Duration
	pullTimeout  time.Duration
}

// Option configures a Client.
type Option func(*Client)

func WithProbeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

func WithPullTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pullTimeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client. Timeouts are still
// applied per request through the context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient returns a client that announces self on every pull.
func NewClient(self state.Address, opts ...Option) *Client {
	c := &Client{
		self:         self,
		http:         &http.Client{},
		scheme:       "http",
		probeTimeout: DefaultProbeTimeout,
		pullTimeout:  DefaultPullTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe checks that addr answers /ping. Any error or non-2xx status means the
// peer is unreachable. There are no retries.
func (c *Client) Probe(ctx context.Context, addr state.Address) error {
	if addr == c.self {
		return ErrSelf
	}
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	resp, err := c.get(ctx, addr, "/ping")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxStateBytes))
	return nil
}

// Pull fetches addr's state and, with the same request, announces this node
// as a member to addr.
func (c *Client) Pull(ctx context.Context, addr state.Address) (state.MemberState, error) {
	if addr == c.self {
		return state.MemberState{}, ErrSelf
	}
	ctx, cancel := context.WithTimeout(ctx, c.pullTimeout)
	defer cancel()
	return c.fetchState(ctx, addr, "/state/"+c.self.String())
}

// State fetches addr's state without announcing this node.
func (c *Client) State(ctx context.Context, addr state.Address) (state.MemberState, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pullTimeout)
	defer cancel()
	return c.fetchState(ctx, addr, "/state")
}

func (c *Client) fetchState(ctx context.Context, addr state.Address, path string) (state.MemberState, error) {
	resp, err := c.get(ctx, addr, path)
	if err != nil {
		return state.MemberState{}, err
	}
	defer resp.Body.Close()

	var st state.MemberState
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxStateBytes)).Decode(&st); err != nil {
		return state.MemberState{}, errors.Wrapf(err, "decode state from %s", addr)
	}
	return st, nil
}

func (c *Client) get(ctx context.Context, addr state.Address, path string) (*http.Response, error) {
	target := url.URL{Scheme: c.scheme, Host: addr.String(), Path: path}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", addr)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s%s", addr, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxStateBytes))
		resp.Body.Close()
		return nil, &StatusError{Addr: addr, Code: resp.StatusCode}
	}
	return resp, nil
}
