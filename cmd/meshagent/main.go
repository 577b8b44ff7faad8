// Command meshagent runs a single mesh agent: it joins the given peers,
// probes the mesh, and either broadcasts a payload or prints whatever it
// receives. Intended as a demo driver around the agent library.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"meshagent/internal/agent"
	"meshagent/internal/config"
	"meshagent/internal/discovery"
	"meshagent/internal/telemetry"
)

func main() {
	var (
		self      = flag.String("self", "", "this agent's address (tcp://host:port), required")
		peersFlag = flag.String("peers", "", "comma-separated seed peer addresses")
		say       = flag.String("say", "", "payload to broadcast once a peer is known, then exit")
		wait      = flag.Duration("wait", agent.DefaultWaitWindow, "probe ack wait window")
		interval  = flag.Duration("interval", agent.DefaultProbeInterval, "pause between probe rounds")
		metrics   = flag.String("metrics", "", "optional host:port serving /metrics")
		etcdEps   = flag.String("etcd", "", "optional comma-separated etcd endpoints for seed bootstrap")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *self == "" {
		logger.Fatal("missing -self address")
	}
	if err := config.ValidateAddr(*self); err != nil {
		logger.Fatal("bad -self address", zap.Error(err))
	}
	peers, err := config.ParsePeerList(*peersFlag)
	if err != nil {
		logger.Fatal("bad -peers list", zap.Error(err))
	}

	a := agent.New(*self).
		WaitWindow(*wait).
		ProbeInterval(*interval).
		Logger(logger).
		Build()
	for _, peer := range peers {
		a.AddPeer(peer)
	}

	ctx := context.Background()

	if *etcdEps != "" {
		cli, err := discovery.NewClient(strings.Split(*etcdEps, ","))
		if err != nil {
			logger.Fatal("etcd client", zap.Error(err))
		}
		defer cli.Close()

		seeds, err := discovery.Seeds(ctx, cli)
		if err != nil {
			logger.Fatal("etcd seed fetch", zap.Error(err))
		}
		for _, seed := range seeds {
			a.AddPeer(seed)
		}
		logger.Info("bootstrapped from etcd", zap.Int("seeds", len(seeds)))

		leaseID, stopKeepAlive, err := discovery.Register(ctx, cli, *self, 10)
		if err != nil {
			logger.Fatal("etcd register", zap.Error(err))
		}
		defer func() {
			stopKeepAlive()
			_, _ = cli.Revoke(context.Background(), leaseID)
		}()
		discovery.Watch(ctx, cli, a.AddPeer)
	}

	listener, prober, err := a.Activate()
	if err != nil {
		logger.Fatal("activation failed", zap.Error(err))
	}
	logger.Info("agent up",
		zap.String("self", *self), zap.Int("seed_peers", a.PeerCount()-1))

	if *metrics != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", telemetry.MetricsHandler())
			if err := http.ListenAndServe(*metrics, mux); err != nil {
				logger.Warn("metrics endpoint down", zap.Error(err))
			}
		}()
	}

	if *say != "" {
		runBroadcaster(a, *say, *interval, logger)
	} else {
		runReceiver(a, *interval, logger)
	}

	// Cooperative stop: kill our own listener, then join both tasks.
	killCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Kill(killCtx, a.Self()); err != nil {
		logger.Warn("self kill failed, shutting down hard", zap.Error(err))
		a.Shutdown()
	}
	listener.Wait()
	prober.Wait()
	logger.Info("agent down", zap.String("self", *self))
}

// runBroadcaster waits until at least one peer is known, broadcasts the
// payload once, and returns.
func runBroadcaster(a *agent.Agent, payload string, interval time.Duration, logger *zap.Logger) {
	for i := 0; i < 10; i++ {
		if a.PeerCount() > 1 {
			a.Broadcast(context.Background(), payload)
			logger.Info("broadcast sent", zap.Int("peers", a.PeerCount()-1))
			return
		}
		time.Sleep(interval)
	}
	logger.Warn("no peers found, nothing broadcast")
}

// runReceiver drains and logs received payloads until SIGINT/SIGTERM.
func runReceiver(a *agent.Agent, interval time.Duration, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, msg := range a.Retrieve() {
				logger.Info("message received", zap.String("payload", msg))
			}
		}
	}
}
