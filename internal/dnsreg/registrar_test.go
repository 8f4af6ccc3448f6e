package dnsreg

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRegistrar returns a Registrar whose start function records the
// command instead of spawning, and whose liveness probe is fixed.
func newTestRegistrar(t *testing.T, alive bool) (*Registrar, *exec.Cmd) {
	t.Helper()

	cfg := Config{
		Tool:       "/usr/local/sbin/vpngate-resolvconf",
		MarkerFile: filepath.Join(t.TempDir(), "resolvconf.pid"),
	}
	r := NewRegistrar(cfg, testLogger())

	captured := &exec.Cmd{}
	r.start = func(cmd *exec.Cmd) error {
		*captured = *cmd
		// Stand in for the spawned child so dispatch can record its pid.
		p, err := os.FindProcess(os.Getpid())
		if err != nil {
			return err
		}
		cmd.Process = p
		return nil
	}
	r.alive = func(int) bool { return alive }
	return r, captured
}

func TestRegister_DispatchesDetached(t *testing.T) {
	r, captured := newTestRegistrar(t, false)

	if err := r.Register("10.42.0.1"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	want := []string{r.cfg.Tool, "register", "10.42.0.1"}
	if !slices.Equal(captured.Args, want) {
		t.Errorf("command args = %v, want %v", captured.Args, want)
	}
	if captured.SysProcAttr == nil || !captured.SysProcAttr.Setsid {
		t.Error("resolver update not detached into its own session")
	}
	if captured.Stdin != nil || captured.Stdout != nil || captured.Stderr != nil {
		t.Error("detached unit inherited the gateway's stdio")
	}
}

func TestRegister_WritesPidMarker(t *testing.T) {
	r, _ := newTestRegistrar(t, false)

	if err := r.Register("10.42.0.1"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	data, err := os.ReadFile(r.cfg.MarkerFile)
	if err != nil {
		t.Fatalf("marker file not written: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("marker contents %q are not a pid", data)
	}
	if pid != os.Getpid() {
		t.Errorf("marker pid = %d, want %d", pid, os.Getpid())
	}
}

func TestRegister_RefusesWhileUpdateInFlight(t *testing.T) {
	r, captured := newTestRegistrar(t, true)
	if err := os.WriteFile(r.cfg.MarkerFile, []byte("4242\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := r.Register("10.42.0.1")
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Register() error = %v, want ErrAlreadyRunning", err)
	}
	if captured.Path != "" {
		t.Error("a second resolver update was dispatched despite the live marker")
	}
}

func TestRegister_StaleMarkerIgnored(t *testing.T) {
	r, _ := newTestRegistrar(t, false)
	if err := os.WriteFile(r.cfg.MarkerFile, []byte("4242\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := r.Register("10.42.0.1"); err != nil {
		t.Fatalf("Register() refused on a stale marker: %v", err)
	}
}

func TestRegister_UnparseableMarkerIgnored(t *testing.T) {
	r, _ := newTestRegistrar(t, true)
	if err := os.WriteFile(r.cfg.MarkerFile, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := r.Register("10.42.0.1"); err != nil {
		t.Fatalf("Register() refused on an unparseable marker: %v", err)
	}
}

func TestRegister_StartFailureReported(t *testing.T) {
	r, _ := newTestRegistrar(t, false)
	r.start = func(*exec.Cmd) error {
		return errors.New("no such file or directory")
	}

	if err := r.Register("10.42.0.1"); err == nil {
		t.Fatal("Register() swallowed a spawn failure")
	}
}

func TestRestore_DispatchesRestore(t *testing.T) {
	r, captured := newTestRegistrar(t, false)

	if err := r.Restore(); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	want := []string{r.cfg.Tool, "restore"}
	if !slices.Equal(captured.Args, want) {
		t.Errorf("command args = %v, want %v", captured.Args, want)
	}
}
