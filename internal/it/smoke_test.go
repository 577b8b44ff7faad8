package it

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testWait     = 50 * time.Millisecond
	testInterval = 100 * time.Millisecond

	convergeTimeout = 10 * time.Second
	pollTick        = 25 * time.Millisecond
)

func TestTwoAgentScenario(t *testing.T) {
	c := NewCluster(testWait, testInterval)
	defer c.StopAll()

	a, err := c.Start()
	require.NoError(t, err)
	b, err := c.Start(a.Agent.Self())
	require.NoError(t, err)

	// B knows A; one probe round later A has merged B's view and both
	// directories hold both addresses.
	require.Eventually(t, func() bool {
		return a.Agent.PeerCount() == 2 && b.Agent.PeerCount() == 2
	}, convergeTimeout, pollTick, "directories never converged")

	// Direct send: only the target receives, and only once.
	require.NoError(t, a.Agent.Send(context.Background(), b.Agent.Self(), "hi"))
	var got []string
	require.Eventually(t, func() bool {
		got = append(got, b.Agent.Retrieve()...)
		return len(got) > 0
	}, convergeTimeout, pollTick, "message never arrived")
	require.Equal(t, []string{"hi"}, got)
	require.Empty(t, a.Agent.Retrieve(), "the sender's inbox stays empty")

	// Broadcast: every peer except the sender receives the payload.
	a.Agent.Broadcast(context.Background(), "yo")
	got = got[:0]
	require.Eventually(t, func() bool {
		got = append(got, b.Agent.Retrieve()...)
		return len(got) > 0
	}, convergeTimeout, pollTick, "broadcast never arrived")
	require.Equal(t, []string{"yo"}, got)
	require.Empty(t, a.Agent.Retrieve(), "broadcast must not loop back to the sender")
}

func TestThreeAgentConvergenceThroughCommonPeer(t *testing.T) {
	c := NewCluster(testWait, testInterval)
	defer c.StopAll()

	hub, err := c.Start()
	require.NoError(t, err)
	b, err := c.Start(hub.Agent.Self())
	require.NoError(t, err)
	d, err := c.Start(hub.Agent.Self())
	require.NoError(t, err)

	// B and D only know the hub, but the hub's pings carry its full
	// view, so everyone learns everyone.
	require.Eventually(t, func() bool {
		return hub.Agent.PeerCount() == 3 &&
			b.Agent.PeerCount() == 3 &&
			d.Agent.PeerCount() == 3
	}, convergeTimeout, pollTick, "mesh never fully converged")

	require.True(t, b.Agent.PeerCount() == 3 && d.Agent.PeerCount() == 3)
}

func TestDeadPeerIsPruned(t *testing.T) {
	c := NewCluster(testWait, testInterval)
	defer c.StopAll()

	a, err := c.Start()
	require.NoError(t, err)
	b, err := c.Start(a.Agent.Self())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return a.Agent.PeerCount() == 2 && b.Agent.PeerCount() == 2
	}, convergeTimeout, pollTick)

	// Kill B: its directory empties and both its tasks exit.
	require.NoError(t, c.Stop(b))
	require.Equal(t, 0, b.Agent.PeerCount())

	// A prunes B within roughly one probe interval plus the wait window.
	require.Eventually(t, func() bool {
		return a.Agent.PeerCount() == 1
	}, convergeTimeout, pollTick, "dead peer was never pruned")
	require.True(t, a.Agent.PeerCount() == 1)
}
