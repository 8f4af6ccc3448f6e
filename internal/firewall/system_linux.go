//go:build linux

package firewall

import (
	"fmt"
	"log/slog"

	"github.com/coreos/go-iptables/iptables"
)

// NewSystemEngine returns an Engine wired to the real iptables and
// ip6tables tools and the kernel routing tables.
func NewSystemEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	v4, err := iptables.NewWithProtocol(iptables.ProtocolIPv4)
	if err != nil {
		return nil, fmt.Errorf("firewall: init iptables: %w", err)
	}
	v6, err := iptables.NewWithProtocol(iptables.ProtocolIPv6)
	if err != nil {
		return nil, fmt.Errorf("firewall: init ip6tables: %w", err)
	}
	return NewEngine(v4, v6, NewNetlinkInfo(), cfg, logger), nil
}
