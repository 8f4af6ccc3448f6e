// Package dnsreg dispatches DNS nameserver registration and restoration to
// the resolver-update collaborator tool. The tool is launched as a detached
// background unit: its lifetime is independent of the gateway invocation,
// which exits long before resolver reconfiguration completes. Exclusivity is
// advisory, via a pid marker file: at most one resolver update targets the
// system resolver configuration at a time.
package dnsreg

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/driftlock/vpngate/internal/fsutil"
)

// ErrAlreadyRunning is returned when a resolver update is already in flight
// for the same marker file. The caller must not start a second one.
var ErrAlreadyRunning = errors.New("dnsreg: a resolver update is already running")

// Registrar launches the resolver-update tool detached from the gateway.
type Registrar struct {
	cfg    Config
	logger *slog.Logger

	// start and alive are swapped out in tests.
	start func(*exec.Cmd) error
	alive func(pid int) bool
}

// NewRegistrar creates a Registrar.
func NewRegistrar(cfg Config, logger *slog.Logger) *Registrar {
	cfg.ApplyDefaults()
	return &Registrar{
		cfg:    cfg,
		logger: logger.With("component", "dnsreg"),
		start:  (*exec.Cmd).Start,
		alive: func(pid int) bool {
			return unix.Kill(pid, 0) == nil
		},
	}
}

// Register points the system resolver at the given nameserver.
func (r *Registrar) Register(nameserver string) error {
	return r.dispatch("register", nameserver)
}

// Restore returns the system resolver to its pre-VPN configuration.
func (r *Registrar) Restore() error {
	return r.dispatch("restore")
}

// dispatch spawns the tool detached and records its pid in the marker file.
// The tool's own exit status is deliberately not collected: resolver updates
// are fire-and-forget, and only a failure to start is reported.
func (r *Registrar) dispatch(args ...string) error {
	if err := r.checkMarker(); err != nil {
		return err
	}

	cmd := exec.Command(r.cfg.Tool, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := r.start(cmd); err != nil {
		return fmt.Errorf("dnsreg: start %s: %w", r.cfg.Tool, err)
	}

	pid := cmd.Process.Pid
	if err := fsutil.WriteFileAtomic(r.cfg.MarkerFile, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		// The update is already running detached; a marker write failure
		// only weakens exclusivity, it does not undo the dispatch.
		r.logger.Warn("failed to write resolver update marker", "error", err, "pid", pid)
	}
	if err := cmd.Process.Release(); err != nil {
		r.logger.Warn("failed to release detached process handle", "error", err, "pid", pid)
	}

	r.logger.Info("dispatched resolver update", "tool", r.cfg.Tool, "args", strings.Join(args, " "), "pid", pid)
	return nil
}

// checkMarker enforces the advisory exclusivity rule: if the marker file
// names a pid that is still alive, a resolver update is in flight and this
// attempt refuses to start. A stale marker (dead or unparseable pid) is
// ignored and will be overwritten by the new dispatch.
func (r *Registrar) checkMarker() error {
	data, err := os.ReadFile(r.cfg.MarkerFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("dnsreg: read marker %s: %w", r.cfg.MarkerFile, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		r.logger.Warn("ignoring unparseable resolver update marker", "marker", r.cfg.MarkerFile)
		return nil
	}
	if r.alive(pid) {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}
	return nil
}
