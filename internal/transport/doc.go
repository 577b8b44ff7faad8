// Package transport provides the point-to-point request/reply primitive
// agents talk over: short-lived TCP connections carrying one
// length-prefixed frame each way, answered by a single ack byte.
//
// Two client calls cover the protocol's two wait semantics. Send blocks
// until the peer acks and surfaces connect failures to the caller. Probe
// bounds the whole exchange by a wait window and reinterprets every
// failure as a missing ack, the liveness signal the prober feeds on.
package transport
