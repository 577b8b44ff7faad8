package agent

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testAddr reserves a free loopback port and returns it as a tcp:// URI.
func testAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := "tcp://" + lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

// waitHandle fails the test if the task does not exit in time.
func waitHandle(t *testing.T, h *Handle, name string) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		h.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("%s did not exit", name)
	}
}

func TestAddPeer(t *testing.T) {
	a := New("tcp://127.0.0.1:8000").Build()

	a.AddPeer("tcp://127.0.0.1:8001")
	require.Equal(t, 2, a.PeerCount())

	// Self and duplicates are rejected.
	a.AddPeer("tcp://127.0.0.1:8000")
	a.AddPeer("tcp://127.0.0.1:8001")
	require.Equal(t, 2, a.PeerCount())
}

func TestDispatch_PingMergesDirectory(t *testing.T) {
	a := New("tcp://127.0.0.1:8000").Build()

	keep := a.dispatch("P@tcp://127.0.0.1:8001,tcp://127.0.0.1:8000,tcp://127.0.0.1:8002")
	require.True(t, keep)
	require.Equal(t, 3, a.PeerCount(), "self must not be double counted")
}

func TestDispatch_EmptyPingMergesNothing(t *testing.T) {
	a := New("tcp://127.0.0.1:8000").Build()

	require.True(t, a.dispatch("P@"))
	require.Equal(t, 1, a.PeerCount())
}

func TestDispatch_DataLandsInInbox(t *testing.T) {
	a := New("tcp://127.0.0.1:8000").Build()

	require.True(t, a.dispatch("M@hello"))
	require.True(t, a.dispatch("M@again"))
	require.Equal(t, []string{"hello", "again"}, a.Retrieve())
	require.Empty(t, a.Retrieve(), "a second drain must come back empty")
}

func TestDispatch_KillClearsAndStops(t *testing.T) {
	a := New("tcp://127.0.0.1:8000").Build()
	a.AddPeer("tcp://127.0.0.1:8001")

	keep := a.dispatch("K@0")
	require.False(t, keep, "kill must stop the listener")
	require.Equal(t, 0, a.PeerCount())
}

func TestDispatch_DecodeFailureIsTolerated(t *testing.T) {
	a := New("tcp://127.0.0.1:8000").Build()

	require.True(t, a.dispatch("not a protocol message"))
	require.True(t, a.dispatch("X@unknown"))
	require.Equal(t, 1, a.PeerCount())
	require.Empty(t, a.Retrieve())
}

func TestProbeRound_SelfOnlyKeepsRunning(t *testing.T) {
	a := New("tcp://127.0.0.1:8000").Build()

	require.False(t, a.probeRound(), "an agent alone in the mesh keeps probing")
	require.Equal(t, 1, a.PeerCount())
}

func TestProbeRound_EmptyDirectoryStopsProber(t *testing.T) {
	a := New("tcp://127.0.0.1:8000").Build()
	a.dir.Clear()

	require.True(t, a.probeRound())
}

func TestProbeRound_PrunesUnreachablePeer(t *testing.T) {
	a := New("tcp://127.0.0.1:8000").
		WaitWindow(100 * time.Millisecond).
		Build()
	dead := testAddr(t) // reserved then released: nothing listens there
	a.AddPeer(dead)

	require.False(t, a.probeRound())
	require.Equal(t, 1, a.PeerCount())
	require.False(t, a.dir.Contains(dead))
	require.True(t, a.dir.Contains(a.Self()), "probing never removes self")
}

func TestActivate_BindFailureAborts(t *testing.T) {
	a1 := New(testAddr(t)).ProbeInterval(100 * time.Millisecond).Build()
	listener, prober, err := a1.Activate()
	require.NoError(t, err)

	// Same address again: the bind must fail before any task is spawned.
	a2 := New(a1.Self()).Build()
	_, _, err = a2.Activate()
	require.Error(t, err)

	require.NoError(t, a1.Kill(context.Background(), a1.Self()))
	waitHandle(t, listener, "listener")
	waitHandle(t, prober, "prober")
}

func TestActivate_CooperativeKill(t *testing.T) {
	a := New(testAddr(t)).
		WaitWindow(50 * time.Millisecond).
		ProbeInterval(100 * time.Millisecond).
		Build()

	listener, prober, err := a.Activate()
	require.NoError(t, err)

	require.NoError(t, a.Kill(context.Background(), a.Self()))
	waitHandle(t, listener, "listener")
	waitHandle(t, prober, "prober")
	require.Equal(t, 0, a.PeerCount())
}

func TestShutdown_HardStop(t *testing.T) {
	a := New(testAddr(t)).
		WaitWindow(50 * time.Millisecond).
		ProbeInterval(100 * time.Millisecond).
		Build()

	listener, prober, err := a.Activate()
	require.NoError(t, err)

	a.Shutdown()
	waitHandle(t, listener, "listener")
	waitHandle(t, prober, "prober")

	// Shutdown is local only: the directory is not cleared.
	require.Equal(t, 1, a.PeerCount())
}

func TestSend_ConnectFailureSurfaces(t *testing.T) {
	a := New("tcp://127.0.0.1:8000").Build()

	err := a.Send(context.Background(), testAddr(t), "hello")
	require.Error(t, err)
}
