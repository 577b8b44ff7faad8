package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"meshagent/internal/wire"
)

// ackByte is what a server replies once it has read a request frame. The
// value is insignificant; presence is the signal.
const ackByte = byte('0')

// maxFrameSize caps a single inbound frame.
const maxFrameSize = 1 << 20

// HostPort extracts the dialable host:port from a tcp://host:port URI.
func HostPort(addr string) (string, error) {
	rest, ok := strings.CutPrefix(addr, "tcp://")
	if !ok {
		return "", fmt.Errorf("transport: unsupported address %q, want tcp://host:port", addr)
	}
	if _, _, err := net.SplitHostPort(rest); err != nil {
		return "", fmt.Errorf("transport: invalid address %q: %w", addr, err)
	}
	return rest, nil
}

// Send delivers msg to the agent listening on addr and blocks until the
// ack byte arrives. Connect, write and read failures are surfaced to the
// caller; there is no retry.
func Send(ctx context.Context, addr string, msg wire.Message) error {
	hostport, err := HostPort(addr)
	if err != nil {
		return err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return fmt.Errorf("transport: connect %s: %w", addr, err)
	}
	defer conn.Close()

	if err := writeFrame(conn, msg.Encode()); err != nil {
		return fmt.Errorf("transport: send to %s: %w", addr, err)
	}
	var ack [1]byte
	if _, err := io.ReadFull(conn, ack[:]); err != nil {
		return fmt.Errorf("transport: await ack from %s: %w", addr, err)
	}
	return nil
}

// Probe delivers msg to addr and waits at most wait for the ack byte. A
// missing ack is not an error, it is the liveness signal: a refused
// connection, a write failure or an ack that does not arrive inside the
// window all report false.
func Probe(ctx context.Context, addr string, msg wire.Message, wait time.Duration) bool {
	hostport, err := HostPort(addr)
	if err != nil {
		return false
	}

	d := net.Dialer{Timeout: wait}
	conn, err := d.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return false
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(wait))
	if err := writeFrame(conn, msg.Encode()); err != nil {
		return false
	}
	var ack [1]byte
	_, err = io.ReadFull(conn, ack[:])
	return err == nil
}

// Handler consumes one raw inbound frame, already acked. Returning false
// stops the server.
type Handler func(raw string) bool

// Server owns an agent's bound socket and its accept loop.
type Server struct {
	addr string
	lis  net.Listener
	log  *zap.Logger
}

// Bind opens the listening socket for addr. A bind failure is fatal to
// agent activation, so it surfaces here rather than from Serve.
func Bind(addr string, logger *zap.Logger) (*Server, error) {
	hostport, err := HostPort(addr)
	if err != nil {
		return nil, err
	}
	lis, err := net.Listen("tcp", hostport)
	if err != nil {
		return nil, fmt.Errorf("transport: bind %s: %w", addr, err)
	}
	return &Server{addr: addr, lis: lis, log: logger}, nil
}

// Addr returns the bound address as a tcp:// URI. Useful when binding
// with port 0.
func (s *Server) Addr() string {
	return "tcp://" + s.lis.Addr().String()
}

// Serve accepts request/reply exchanges until the handler stops it or the
// socket closes. Each exchange is acked as soon as its frame is read;
// processing happens after the ack is on the wire, because the ack proves
// receipt, not processing.
func (s *Server) Serve(handler Handler) {
	defer s.lis.Close()
	for {
		conn, err := s.lis.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Warn("accept failed", zap.String("addr", s.addr), zap.Error(err))
			}
			return
		}

		raw, err := readFrame(conn)
		if err != nil {
			s.log.Warn("dropping unreadable request",
				zap.String("addr", s.addr), zap.Error(err))
			conn.Close()
			continue
		}
		if _, err := conn.Write([]byte{ackByte}); err != nil {
			s.log.Warn("ack write failed",
				zap.String("addr", s.addr), zap.Error(err))
		}
		conn.Close()

		if !handler(raw) {
			return
		}
	}
}

// Close tears down the listening socket, unblocking Serve.
func (s *Server) Close() error {
	return s.lis.Close()
}

func writeFrame(w io.Writer, body string) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, body)
	return err
}

func readFrame(r io.Reader) (string, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxFrameSize {
		return "", fmt.Errorf("frame of %d bytes exceeds %d byte limit", n, maxFrameSize)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return "", err
	}
	return string(body), nil
}
