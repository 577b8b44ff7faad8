package agent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"meshagent/internal/directory"
	"meshagent/internal/inbox"
	"meshagent/internal/telemetry"
	"meshagent/internal/transport"
	"meshagent/internal/wire"
)

// Agent is one member of the mesh. It composes the peer directory, the
// inbox, the inbound listener and the liveness prober. The directory and
// the inbox are the only shared state; each guards itself, and no lock
// is ever held across network I/O.
type Agent struct {
	self     string
	wait     time.Duration
	interval time.Duration
	log      *zap.Logger

	dir   *directory.Directory
	inbox *inbox.Inbox

	mu  sync.Mutex
	srv *transport.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// Handle joins one of the background tasks spawned by Activate.
type Handle struct {
	done chan struct{}
}

// Wait blocks until the task has exited.
func (h *Handle) Wait() {
	<-h.done
}

// Self returns the agent's own address.
func (a *Agent) Self() string {
	return a.self
}

// AddPeer records another agent's address. Adding the agent's own
// address or an already known peer is a no-op.
func (a *Agent) AddPeer(addr string) {
	a.dir.Add(addr)
	telemetry.KnownPeers.WithLabelValues(a.self).Set(float64(a.dir.Size()))
}

// PeerCount returns the directory size, the agent itself included.
func (a *Agent) PeerCount() int {
	return a.dir.Size()
}

// Send delivers payload to a single peer and blocks until the peer acks.
// A connect failure surfaces to the caller; there is no retry.
func (a *Agent) Send(ctx context.Context, addr, payload string) error {
	return transport.Send(ctx, addr, wire.Data(payload))
}

// Kill orders the agent listening on addr to leave the mesh. Sending it
// to the agent's own address is the cooperative way to stop it.
func (a *Agent) Kill(ctx context.Context, addr string) error {
	return transport.Send(ctx, addr, wire.Kill())
}

// Broadcast fans payload out to every known peer except the agent
// itself. Delivery is best effort: a peer that cannot be reached is
// logged and skipped, and the remainder still receive the message.
func (a *Agent) Broadcast(ctx context.Context, payload string) {
	msg := wire.Data(payload)
	for _, peer := range a.dir.Snapshot() {
		if peer == a.self {
			continue
		}
		if err := transport.Send(ctx, peer, msg); err != nil {
			a.log.Warn("broadcast delivery failed",
				zap.String("peer", peer), zap.Error(err))
			telemetry.BroadcastSends.WithLabelValues(a.self, "failed").Inc()
			continue
		}
		telemetry.BroadcastSends.WithLabelValues(a.self, "ok").Inc()
	}
}

// Retrieve drains the inbox: every payload received since the previous
// call, in arrival order, each delivered exactly once.
func (a *Agent) Retrieve() []string {
	msgs := a.inbox.Drain()
	telemetry.InboxDepth.WithLabelValues(a.self).Set(0)
	return msgs
}

// Activate binds the agent's own address and spawns the listener and
// prober tasks. A bind failure aborts activation. Callers wanting a
// clean stop send Kill to the agent's own address and then Wait on both
// handles.
func (a *Agent) Activate() (listener, prober *Handle, err error) {
	srv, err := transport.Bind(a.self, a.log)
	if err != nil {
		return nil, nil, err
	}
	a.mu.Lock()
	a.srv = srv
	a.mu.Unlock()

	listener = &Handle{done: make(chan struct{})}
	prober = &Handle{done: make(chan struct{})}

	go func() {
		defer close(listener.done)
		a.listen(srv)
	}()
	go func() {
		defer close(prober.done)
		a.probeLoop()
	}()
	return listener, prober, nil
}

// Shutdown hard-stops the local agent: the listening socket closes and
// the prober exits at its next wakeup, whatever the directory holds.
// Peers are not notified; their probing prunes this agent. The
// cooperative alternative is Kill against the agent's own address.
func (a *Agent) Shutdown() {
	a.cancel()
	a.mu.Lock()
	srv := a.srv
	a.mu.Unlock()
	if srv != nil {
		srv.Close()
	}
}
