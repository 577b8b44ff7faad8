// Package config parses the demo driver's startup settings.
package config

import (
	"fmt"
	"strings"

	"meshagent/internal/transport"
)

// ParsePeerList parses a comma-separated list of agent addresses, e.g.
// "tcp://127.0.0.1:8001,tcp://127.0.0.1:8002". Every entry must be a
// valid tcp://host:port URI; whitespace around entries is tolerated and
// empty entries are skipped.
func ParsePeerList(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}

	parts := strings.Split(s, ",")
	peers := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := ValidateAddr(part); err != nil {
			return nil, fmt.Errorf("peer %q: %w", part, err)
		}
		peers = append(peers, part)
	}
	return peers, nil
}

// ValidateAddr checks the tcp://host:port shape shared by every agent
// address.
func ValidateAddr(addr string) error {
	_, err := transport.HostPort(addr)
	return err
}
