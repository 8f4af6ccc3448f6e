package launcher

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// ProcessRecord is a read-only snapshot of one live process: its pid and
// command-line tokens at scan time. Used only for matching.
type ProcessRecord struct {
	PID     int
	Cmdline []string
}

// Terminator finds the gateway-launched OpenVPN instance in the process
// table and signals it to stop.
type Terminator struct {
	cfg    Config
	logger *slog.Logger

	// listProcs and kill are swapped out in tests.
	listProcs func() ([]ProcessRecord, error)
	kill      func(pid int, sig unix.Signal) error
}

// NewTerminator creates a Terminator.
func NewTerminator(cfg Config, logger *slog.Logger) *Terminator {
	cfg.ApplyDefaults()
	return &Terminator{
		cfg:       cfg,
		logger:    logger.With("component", "launcher"),
		listProcs: snapshotProcs,
		kill: func(pid int, sig unix.Signal) error {
			return unix.Kill(pid, sig)
		},
	}
}

// snapshotProcs reads the live process table via procfs. Processes that
// disappear between the directory scan and the cmdline read are skipped.
func snapshotProcs() ([]ProcessRecord, error) {
	procs, err := procfs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("launcher: scan process table: %w", err)
	}

	records := make([]ProcessRecord, 0, len(procs))
	for _, p := range procs {
		cmdline, err := p.CmdLine()
		if err != nil {
			continue
		}
		records = append(records, ProcessRecord{PID: p.PID, Cmdline: cmdline})
	}
	return records, nil
}

// Stop signals the first process whose command line starts with the
// resolved OpenVPN binary path and carries the gateway marker token.
// No matching process is not an error: there is nothing to stop.
func (t *Terminator) Stop() error {
	l := Launcher{cfg: t.cfg, logger: t.logger}
	binary, err := l.ResolveBinary()
	if err != nil {
		return err
	}

	records, err := t.listProcs()
	if err != nil {
		return err
	}

	for _, r := range records {
		if !matches(r, binary) {
			continue
		}
		t.logger.Info("stopping openvpn", "pid", r.PID)
		if err := t.kill(r.PID, unix.SIGTERM); err != nil {
			return fmt.Errorf("launcher: signal pid %d: %w", r.PID, err)
		}
		return nil
	}

	t.logger.Info("no gateway-launched openvpn process found")
	return nil
}

// matches reports whether the record is a gateway-launched instance of the
// binary: argv[0] must be the binary path and the marker token must appear
// among the arguments. The marker check keeps unrelated OpenVPN instances
// of the same binary out of reach.
func matches(r ProcessRecord, binary string) bool {
	if len(r.Cmdline) == 0 || r.Cmdline[0] != binary {
		return false
	}
	return slices.Contains(r.Cmdline[1:], MarkerToken)
}
