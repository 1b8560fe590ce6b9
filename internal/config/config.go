// Package config holds the node configuration assembled from the command
// line and validates bootstrap peer addresses before anything dials them.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Config holds the node configuration.
type Config struct {
	LocalIP      string        // address the listener binds and advertises
	Port         int           // 0 picks an ephemeral port
	Seeds        []string      // bootstrap peer addresses, ip:port
	MaxPeers     int           // overlay degree cap
	PingInterval time.Duration // liveness probe period
	PollInterval time.Duration // clipboard poll period
	MaxHops      uint8         // hop budget on flooded updates
}

// Default returns the configuration defaults for everything the command
// line leaves unset.
func Default() Config {
	return Config{
		LocalIP:      "127.0.0.1",
		MaxPeers:     8,
		PingInterval: 5 * time.Second,
		PollInterval: 200 * time.Millisecond,
		MaxHops:      8,
	}
}

// Validate rejects configurations that cannot produce a working node.
func (c *Config) Validate() error {
	if net.ParseIP(c.LocalIP) == nil {
		return fmt.Errorf("invalid local IP %q", c.LocalIP)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.MaxPeers < 1 {
		return fmt.Errorf("max peers must be at least 1, got %d", c.MaxPeers)
	}
	return nil
}

// ParseSeeds validates a list of bootstrap peer addresses in ip:port form.
// Blank entries are skipped and duplicates collapsed.
func ParseSeeds(args []string) ([]string, error) {
	seeds := make([]string, 0, len(args))
	seen := make(map[string]struct{})

	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}

		host, port, err := net.SplitHostPort(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid bootstrap peer %q (expected ip:port): %w", arg, err)
		}
		if net.ParseIP(host) == nil {
			return nil, fmt.Errorf("invalid bootstrap peer %q: host is not an IP address", arg)
		}
		if port == "" {
			return nil, fmt.Errorf("invalid bootstrap peer %q: missing port", arg)
		}

		addr := net.JoinHostPort(host, port)
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		seeds = append(seeds, addr)
	}

	return seeds, nil
}
