// Package agent implements a member of a decentralized mesh: a peer
// directory that converges through periodic gossip, a liveness prober
// that prunes unresponsive peers, and best-effort relay of application
// messages.
//
// An agent is built through a fluent builder and activated once:
//
//	a := agent.New("tcp://127.0.0.1:8000").ProbeInterval(time.Second).Build()
//	listener, prober, err := a.Activate()
//
// Activation spawns two tasks. The listener serves inbound request/reply
// exchanges and mutates the directory or inbox; the prober periodically
// pings every known peer with the agent's full membership view and
// removes the ones that fail to answer. There is no coordinator: each
// round, surviving peers merge the prober's view into their own, and
// probing prunes whatever went away. Sending a kill message to the
// agent's own address clears the directory, stops the listener, and lets
// the prober exit on its next round.
package agent
