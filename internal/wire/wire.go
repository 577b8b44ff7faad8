// Package wire defines the flat-string protocol spoken between agents.
//
// Every message is an ASCII string of the form "<tag>@<payload>" where the
// tag is a single byte: P for a membership ping, M for an application
// message, K for a kill order. The payload of a ping is a comma-joined list
// of peer addresses; the payload of a kill is a fixed placeholder.
package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the message kind carried on the wire.
type Kind byte

const (
	// KindPing carries the sender's full membership view.
	KindPing Kind = 'P'
	// KindData carries an opaque application payload.
	KindData Kind = 'M'
	// KindKill tells the receiver to leave the mesh.
	KindKill Kind = 'K'
)

// killPayload is the placeholder every kill message carries.
const killPayload = "0"

var (
	// ErrMalformed indicates an inbound string without the '@' delimiter.
	ErrMalformed = errors.New("wire: malformed message, missing '@' delimiter")
	// ErrUnknownTag indicates a tag outside P/M/K.
	ErrUnknownTag = errors.New("wire: unknown message tag")
)

// Message is a single protocol message.
type Message struct {
	Kind    Kind
	Payload string
}

// Ping builds a membership ping carrying peers. An empty peer list encodes
// to an empty payload.
func Ping(peers []string) Message {
	return Message{Kind: KindPing, Payload: strings.Join(peers, ",")}
}

// Data builds an application message carrying payload verbatim.
func Data(payload string) Message {
	return Message{Kind: KindData, Payload: payload}
}

// Kill builds a kill order.
func Kill() Message {
	return Message{Kind: KindKill, Payload: killPayload}
}

// Encode renders m in the "<tag>@<payload>" form. Encoding is total; every
// Message value has a wire representation.
func (m Message) Encode() string {
	return string(m.Kind) + "@" + m.Payload
}

// Decode parses a raw inbound string. The split happens on the first '@'
// only, so application payloads may themselves contain '@'.
func Decode(raw string) (Message, error) {
	tag, payload, ok := strings.Cut(raw, "@")
	if !ok {
		return Message{}, ErrMalformed
	}
	switch tag {
	case "P":
		return Message{Kind: KindPing, Payload: payload}, nil
	case "M":
		return Message{Kind: KindData, Payload: payload}, nil
	case "K":
		// The payload of a kill is insignificant; normalize it.
		return Message{Kind: KindKill, Payload: killPayload}, nil
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
}

// Peers returns the addresses carried by a ping payload.
func (m Message) Peers() []string {
	if m.Payload == "" {
		return nil
	}
	return strings.Split(m.Payload, ",")
}
