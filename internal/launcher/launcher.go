// Package launcher starts and stops the privileged OpenVPN client process.
// Starting is a one-way transfer of control: the helper's process image is
// replaced by OpenVPN, so on success nothing after Start runs. Stopping
// finds the gateway-launched instance in the process table by its marker
// token and signals it to terminate.
package launcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// MarkerToken is planted in the OpenVPN command line via --setenv. The
// terminator uses it to distinguish gateway-launched instances from any
// other OpenVPN process on the host.
const MarkerToken = "VPNGATE_OPENVPN"

// ErrBinaryNotFound is returned when no candidate binary path exists.
var ErrBinaryNotFound = errors.New("launcher: openvpn binary not found at any candidate path")

// Launcher assembles the final OpenVPN command line and replaces the current
// process image with it.
type Launcher struct {
	cfg    Config
	logger *slog.Logger

	// execve is swapped out in tests; the real one never returns on success.
	execve func(argv0 string, argv []string, envv []string) error
}

// New creates a Launcher.
func New(cfg Config, logger *slog.Logger) *Launcher {
	cfg.ApplyDefaults()
	return &Launcher{
		cfg:    cfg,
		logger: logger.With("component", "launcher"),
		execve: unix.Exec,
	}
}

// baseArgs returns the fixed, non-negotiable head of the OpenVPN command
// line. Callers cannot influence any of it; validated variable flags are
// appended after. The --setenv marker is what Terminator later matches on.
func (l *Launcher) baseArgs() []string {
	return []string{
		"--setenv", MarkerToken, "1",
		"--nobind",
		"--client",
		"--dev", "tun",
		"--tls-client",
		"--remap-usr1", "SIGTERM",
		"--persist-key",
		"--persist-local-ip",
		"--script-security", "1",
		"--user", l.cfg.User,
		"--group", l.cfg.Group,
	}
}

// ResolveBinary returns the first candidate path that exists as a regular
// file, or ErrBinaryNotFound.
func (l *Launcher) ResolveBinary() (string, error) {
	for _, p := range l.cfg.BinaryPaths {
		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", ErrBinaryNotFound
}

// Start replaces the current process image with the OpenVPN binary running
// the fixed base arguments followed by the validated flags. On success it
// does not return: the calling process, pid included, becomes OpenVPN, and
// open descriptors not marked close-on-exec are inherited by it. Any return
// is a failure. In test mode the command line is logged instead.
func (l *Launcher) Start(validatedFlags []string) error {
	binary, err := l.ResolveBinary()
	if err != nil {
		return err
	}

	argv := append([]string{binary}, l.baseArgs()...)
	argv = append(argv, validatedFlags...)

	if l.cfg.Test {
		l.logger.Info("test mode, not replacing process image", "argv", argv)
		return nil
	}

	l.logger.Info("replacing process image with openvpn", "binary", binary, "args", len(argv))
	if err := l.execve(binary, argv, os.Environ()); err != nil {
		return fmt.Errorf("launcher: exec %s: %w", binary, err)
	}
	return nil
}
