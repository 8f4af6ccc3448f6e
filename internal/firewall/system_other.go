//go:build !linux

package firewall

import (
	"fmt"
	"log/slog"
	"runtime"
)

// NewSystemEngine is unsupported off Linux: there is no iptables/ip6tables
// pair to drive and no rtnetlink to query.
func NewSystemEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	return nil, fmt.Errorf("firewall: packet filter management is not supported on %s", runtime.GOOS)
}
