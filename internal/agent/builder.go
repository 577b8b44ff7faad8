package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"meshagent/internal/directory"
	"meshagent/internal/inbox"
)

// Defaults for the two protocol timings: how long a probe waits for a
// peer's ack, and how long the prober pauses between sweeps.
const (
	DefaultWaitWindow    = 100 * time.Millisecond
	DefaultProbeInterval = 2 * time.Second
)

// Builder assembles an agent. The resulting configuration is immutable
// once Build returns.
type Builder struct {
	self     string
	wait     time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// New starts a builder for an agent reachable at self, a tcp://host:port
// URI.
func New(self string) *Builder {
	return &Builder{
		self:     self,
		wait:     DefaultWaitWindow,
		interval: DefaultProbeInterval,
		logger:   zap.NewNop(),
	}
}

// WaitWindow sets how long a probe waits for a peer to ack.
func (b *Builder) WaitWindow(d time.Duration) *Builder {
	b.wait = d
	return b
}

// ProbeInterval sets the pause between liveness sweeps.
func (b *Builder) ProbeInterval(d time.Duration) *Builder {
	b.interval = d
	return b
}

// Logger sets the agent's structured logger. The default is a no-op
// logger, so the library is silent unless the caller opts in.
func (b *Builder) Logger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// Build constructs the agent. Its directory starts with the agent's own
// address as the only member.
func (b *Builder) Build() *Agent {
	ctx, cancel := context.WithCancel(context.Background())
	return &Agent{
		self:     b.self,
		wait:     b.wait,
		interval: b.interval,
		log:      b.logger,
		dir:      directory.New(b.self),
		inbox:    inbox.New(),
		ctx:      ctx,
		cancel:   cancel,
	}
}
