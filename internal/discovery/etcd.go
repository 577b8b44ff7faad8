// Package discovery provides optional etcd-backed seed bootstrap. The
// mesh converges through gossip alone; etcd only shortens the cold
// start by telling a fresh agent who is already out there. Nothing in
// the steady-state protocol depends on it.
package discovery

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const prefix = "/meshagent/agents/"

// NewClient connects to the etcd cluster used for seed bootstrap.
func NewClient(endpoints []string) (*clientv3.Client, error) {
	return clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
}

// Register advertises addr under a leased key so the registration
// disappears on its own when the process dies. The returned cancel stops
// the keepalive; callers should also revoke the lease on clean exit.
func Register(ctx context.Context, cli *clientv3.Client, addr string, ttl int64) (clientv3.LeaseID, context.CancelFunc, error) {
	lease, err := cli.Grant(ctx, ttl)
	if err != nil {
		return 0, nil, fmt.Errorf("discovery: grant lease: %w", err)
	}
	if _, err := cli.Put(ctx, prefix+addr, addr, clientv3.WithLease(lease.ID)); err != nil {
		return 0, nil, fmt.Errorf("discovery: register %s: %w", addr, err)
	}

	kaCtx, cancel := context.WithCancel(context.Background())
	ch, err := cli.KeepAlive(kaCtx, lease.ID)
	if err != nil {
		cancel()
		return 0, nil, fmt.Errorf("discovery: keepalive: %w", err)
	}
	go func() {
		for range ch {
			// Drain keepalive acks until the channel closes.
		}
	}()

	return lease.ID, cancel, nil
}

// Seeds returns every currently registered agent address.
func Seeds(ctx context.Context, cli *clientv3.Client) ([]string, error) {
	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("discovery: fetch seeds: %w", err)
	}
	addrs := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		addrs = append(addrs, string(kv.Value))
	}
	return addrs, nil
}

// Watch invokes fn with the address of every agent that registers after
// the initial fetch, until ctx is cancelled. Deregistrations are
// ignored; the gossip protocol prunes dead peers itself.
func Watch(ctx context.Context, cli *clientv3.Client, fn func(addr string)) {
	go func() {
		for resp := range cli.Watch(ctx, prefix, clientv3.WithPrefix()) {
			for _, ev := range resp.Events {
				if ev.Type == clientv3.EventTypePut {
					fn(string(ev.Kv.Value))
				}
			}
		}
	}()
}
