// Package it provides an in-process integration harness: a mesh of real
// agents on loopback ports, talking over real sockets.
package it

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"meshagent/internal/agent"
)

// Member is one running agent plus the handles joining its tasks.
type Member struct {
	Agent    *agent.Agent
	Listener *agent.Handle
	Prober   *agent.Handle
}

// Cluster is a test mesh of agents started in-process.
type Cluster struct {
	mu       sync.Mutex
	wait     time.Duration
	interval time.Duration
	members  []*Member
}

// NewCluster creates a harness whose agents probe with the given
// timings. Tests use short windows so convergence happens in well under
// a second.
func NewCluster(wait, interval time.Duration) *Cluster {
	return &Cluster{wait: wait, interval: interval}
}

// FreeAddr reserves a free loopback port and returns it as a tcp:// URI.
// The port is released before returning, so the caller binds it next.
func FreeAddr() (string, error) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("it: reserve port: %w", err)
	}
	addr := "tcp://" + lis.Addr().String()
	if err := lis.Close(); err != nil {
		return "", fmt.Errorf("it: release port: %w", err)
	}
	return addr, nil
}

// Start builds and activates one agent on a free loopback port, seeded
// with the given peer addresses.
func (c *Cluster) Start(seeds ...string) (*Member, error) {
	addr, err := FreeAddr()
	if err != nil {
		return nil, err
	}

	a := agent.New(addr).
		WaitWindow(c.wait).
		ProbeInterval(c.interval).
		Logger(zap.NewNop()).
		Build()
	for _, seed := range seeds {
		a.AddPeer(seed)
	}

	listener, prober, err := a.Activate()
	if err != nil {
		return nil, fmt.Errorf("it: activate %s: %w", addr, err)
	}

	m := &Member{Agent: a, Listener: listener, Prober: prober}
	c.mu.Lock()
	c.members = append(c.members, m)
	c.mu.Unlock()
	return m, nil
}

// StopAll kills every member cooperatively and joins its tasks. Members
// already stopped are shut down hard as a fallback so a failed test
// cannot leak goroutines.
func (c *Cluster) StopAll() {
	c.mu.Lock()
	members := c.members
	c.members = nil
	c.mu.Unlock()

	for _, m := range members {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := m.Agent.Kill(ctx, m.Agent.Self()); err != nil {
			m.Agent.Shutdown()
		}
		cancel()
	}
	for _, m := range members {
		m.Listener.Wait()
		m.Prober.Wait()
	}
}

// Stop kills a single member cooperatively and joins its tasks.
func (c *Cluster) Stop(m *Member) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Agent.Kill(ctx, m.Agent.Self()); err != nil {
		return err
	}
	m.Listener.Wait()
	m.Prober.Wait()

	c.mu.Lock()
	for i, other := range c.members {
		if other == m {
			c.members = append(c.members[:i], c.members[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	return nil
}
