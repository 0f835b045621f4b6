// Package registry publishes this node's address in etcd and reads the
// addresses other nodes published, as an extra seed source for gossip.
// Registration is tied to a lease, so a node that stops keeping it alive
// disappears from the registry after the TTL.
package registry

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/ryandielhenn/fencer/pkg/state"
)

const (
	DefaultPrefix = "/fencer/nodes/"
	DefaultTTL    = 10

	requestTimeout = 2 * time.Second
	retryBase      = 100 * time.Millisecond
	retryMax       = 5 * time.Second
)

func NewClient(endpoints []string) (*clientv3.Client, error) {
	return clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
}

// Registry reads and writes node keys under a prefix.
type Registry struct {
	kv     clientv3.KV
	lease  clientv3.Lease
	prefix string
	ttl    int64
	log    *zap.Logger
}

// New builds a Registry. *clientv3.Client satisfies both kv and lease.
func New(kv clientv3.KV, lease clientv3.Lease, prefix string, ttl int64, log *zap.Logger) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{kv: kv, lease: lease, prefix: prefix, ttl: ttl, log: log}
}

func (r *Registry) key(addr state.Address) string {
	return r.prefix + addr.String()
}

// Register writes addr under a fresh lease and keeps the lease alive until the
// returned func is called. If the lease is lost while running, for instance
// after an etcd outage longer than the TTL, the key is written again under a
// new lease. The returned func revokes the current lease.
func (r *Registry) Register(ctx context.Context, addr state.Address) (func(), error) {
	kaCtx, cancel := context.WithCancel(context.Background())
	id, ch, err := r.register(ctx, kaCtx, addr)
	if err != nil {
		cancel()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			for range ch {
			}
			if kaCtx.Err() != nil {
				return
			}
			r.log.Warn("lease keepalive stopped, registering again", zap.Int64("lease", int64(id)))

			for attempt := 0; ; attempt++ {
				select {
				case <-kaCtx.Done():
					return
				case <-time.After(retryDelay(attempt)):
				}
				rctx, rcancel := context.WithTimeout(kaCtx, requestTimeout)
				newID, newCh, err := r.register(rctx, kaCtx, addr)
				rcancel()
				if err == nil {
					id, ch = newID, newCh
					break
				}
				r.log.Debug("re-register failed", zap.Error(err))
			}
		}
	}()

	r.log.Info("registered in etcd", zap.String("key", r.key(addr)), zap.Int64("ttl", r.ttl))
	return func() {
		cancel()
		<-done
		r.revoke(id)
	}, nil
}

// register grants a lease, writes the key under it and starts the keepalive
// bound to kaCtx. A failed write revokes the lease it was granted.
func (r *Registry) register(ctx, kaCtx context.Context, addr state.Address) (clientv3.LeaseID, <-chan *clientv3.LeaseKeepAliveResponse, error) {
	lease, err := r.lease.Grant(ctx, r.ttl)
	if err != nil {
		return 0, nil, errors.Wrap(err, "grant lease")
	}
	if _, err := r.kv.Put(ctx, r.key(addr), addr.String(), clientv3.WithLease(lease.ID)); err != nil {
		r.revoke(lease.ID)
		return 0, nil, errors.Wrapf(err, "register %s", addr)
	}
	ch, err := r.lease.KeepAlive(kaCtx, lease.ID)
	if err != nil {
		r.revoke(lease.ID)
		return 0, nil, errors.Wrap(err, "keep lease alive")
	}
	return lease.ID, ch, nil
}

func (r *Registry) revoke(id clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if _, err := r.lease.Revoke(ctx, id); err != nil {
		r.log.Warn("revoke lease", zap.Int64("lease", int64(id)), zap.Error(err))
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt > 5 {
		return retryMax
	}
	if d := retryBase << attempt; d < retryMax {
		return d
	}
	return retryMax
}

// Peers lists every address registered under the prefix.
func (r *Registry) Peers(ctx context.Context) ([]state.Address, error) {
	resp, err := r.kv.Get(ctx, r.prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, errors.Wrap(err, "list peers")
	}
	return addressesFromKVs(r.prefix, resp.Kvs), nil
}

// Seeds makes the registry a gossip seed source. Lookup errors yield no seeds
// for the round.
func (r *Registry) Seeds(ctx context.Context) []state.Address {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	peers, err := r.Peers(ctx)
	if err != nil {
		r.log.Debug("registry lookup failed", zap.Error(err))
		return nil
	}
	return peers
}

// addressesFromKVs prefers the stored value and falls back to the key suffix.
func addressesFromKVs(prefix string, kvs []*mvccpb.KeyValue) []state.Address {
	out := make([]state.Address, 0, len(kvs))
	for _, kv := range kvs {
		raw := string(kv.Value)
		if raw == "" {
			raw = strings.TrimPrefix(string(kv.Key), prefix)
		}
		if a := state.NormalizeAddress(raw, state.DefaultPort); a != "" {
			out = append(out, a)
		}
	}
	return out
}
