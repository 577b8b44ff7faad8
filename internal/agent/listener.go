package agent

import (
	"go.uber.org/zap"

	"meshagent/internal/telemetry"
	"meshagent/internal/transport"
	"meshagent/internal/wire"
)

// listen serves inbound request/reply exchanges until a kill order or
// Shutdown stops the server.
func (a *Agent) listen(srv *transport.Server) {
	a.log.Info("listener up", zap.String("self", a.self))
	srv.Serve(a.dispatch)
	a.log.Info("listener down", zap.String("self", a.self))
}

// dispatch routes one acked inbound frame. A frame that fails to decode
// is logged and skipped rather than taking the listener down: one bad
// exchange must not cost the agent its place in the mesh.
func (a *Agent) dispatch(raw string) bool {
	msg, err := wire.Decode(raw)
	if err != nil {
		a.log.Error("undecodable inbound message",
			zap.String("raw", raw), zap.Error(err))
		telemetry.DecodeErrors.WithLabelValues(a.self).Inc()
		return true
	}

	switch msg.Kind {
	case wire.KindPing:
		a.dir.Merge(msg.Peers())
		telemetry.PingsReceived.WithLabelValues(a.self).Inc()
		telemetry.KnownPeers.WithLabelValues(a.self).Set(float64(a.dir.Size()))
	case wire.KindData:
		a.inbox.Push(msg.Payload)
		telemetry.MessagesReceived.WithLabelValues(a.self).Inc()
		telemetry.InboxDepth.WithLabelValues(a.self).Set(float64(a.inbox.Len()))
	case wire.KindKill:
		a.dir.Clear()
		telemetry.KnownPeers.WithLabelValues(a.self).Set(0)
		a.log.Info("kill received, leaving mesh", zap.String("self", a.self))
		return false
	}
	return true
}
