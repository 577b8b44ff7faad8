package agent

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"meshagent/internal/telemetry"
	"meshagent/internal/transport"
	"meshagent/internal/wire"
)

// probeLoop runs liveness sweeps on the configured cadence until the
// directory empties or the agent shuts down.
func (a *Agent) probeLoop() {
	a.log.Info("prober up",
		zap.String("self", a.self), zap.Duration("interval", a.interval))
	defer a.log.Info("prober down", zap.String("self", a.self))

	for {
		if a.probeRound() {
			return
		}
		select {
		case <-a.ctx.Done():
			return
		case <-time.After(a.interval):
		}
	}
}

// probeRound pings every known peer with the agent's full membership
// view and prunes the ones that fail to ack inside the wait window. The
// snapshot is taken up front and the lock released before any network
// I/O; the round joins all probes, so a slow peer delays it by at most
// the wait window. Reports true once the directory is empty and the
// prober should exit.
func (a *Agent) probeRound() bool {
	snapshot := a.dir.Snapshot()
	ping := wire.Ping(snapshot)

	var wg sync.WaitGroup
	unresponsive := make(chan string, len(snapshot))
	for _, peer := range snapshot {
		if peer == a.self {
			continue
		}
		wg.Add(1)
		go func(peer string) {
			defer wg.Done()
			if !transport.Probe(a.ctx, peer, ping, a.wait) {
				unresponsive <- peer
			}
		}(peer)
	}
	wg.Wait()
	close(unresponsive)

	var removals []string
	for peer := range unresponsive {
		removals = append(removals, peer)
	}
	if len(removals) > 0 {
		a.dir.RemoveAll(removals)
		a.log.Info("pruned unresponsive peers", zap.Strings("peers", removals))
		telemetry.PeersPruned.WithLabelValues(a.self).Add(float64(len(removals)))
	}

	telemetry.ProbeRounds.WithLabelValues(a.self).Inc()
	telemetry.KnownPeers.WithLabelValues(a.self).Set(float64(a.dir.Size()))
	return a.dir.Size() == 0
}
