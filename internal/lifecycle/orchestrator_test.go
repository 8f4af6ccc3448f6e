package lifecycle

import (
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testNameserver = "10.42.0.1"

func TestStart_Success(t *testing.T) {
	eng := &mockEngine{}
	dns := &mockRegistrar{}
	orch := New(eng, dns, testNameserver, testLogger())

	if err := orch.Start([]string{"203.0.113.7"}, false); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if orch.State() != Active {
		t.Errorf("State() = %s, want active", orch.State())
	}
	if !slices.Equal(eng.calls, []string{"install"}) {
		t.Errorf("engine calls = %v, want [install]", eng.calls)
	}
	if !slices.Equal(dns.calls, []string{"register"}) {
		t.Errorf("registrar calls = %v, want [register]", dns.calls)
	}
	if !slices.Equal(dns.nameservers, []string{testNameserver}) {
		t.Errorf("registered nameservers = %v, want [%s]", dns.nameservers, testNameserver)
	}
}

func TestStart_DNSFailureRollsBack(t *testing.T) {
	eng := &mockEngine{}
	dns := &mockRegistrar{registerErr: errors.New("resolver update refused")}
	orch := New(eng, dns, testNameserver, testLogger())

	err := orch.Start([]string{"203.0.113.7"}, false)
	if err == nil {
		t.Fatal("Start() succeeded despite DNS registration failure")
	}
	if orch.State() != Stopped {
		t.Errorf("State() = %s, want stopped after rollback", orch.State())
	}
	if !slices.Contains(eng.calls, "teardown") {
		t.Errorf("engine calls = %v, rollback never tore the policy down", eng.calls)
	}
	if !slices.Contains(dns.calls, "restore") {
		t.Errorf("registrar calls = %v, rollback never restored the resolver", dns.calls)
	}

	installed, _ := eng.PolicyInstalled()
	if installed {
		t.Error("policy still installed after rollback")
	}
}

func TestStart_DNSFailureInRestartModeSkipsRollback(t *testing.T) {
	eng := &mockEngine{}
	dns := &mockRegistrar{registerErr: errors.New("resolver update refused")}
	orch := New(eng, dns, testNameserver, testLogger())

	err := orch.Start([]string{"203.0.113.7"}, true)
	if err == nil {
		t.Fatal("Start() succeeded despite DNS registration failure")
	}
	if slices.Contains(eng.calls, "teardown") {
		t.Errorf("engine calls = %v, restart mode must not tear down", eng.calls)
	}
	if slices.Contains(dns.calls, "restore") {
		t.Errorf("registrar calls = %v, restart mode must not restore", dns.calls)
	}

	installed, _ := eng.PolicyInstalled()
	if !installed {
		t.Error("existing policy lost during restart-mode failure")
	}
}

func TestStart_InstallFailureRollsBack(t *testing.T) {
	eng := &mockEngine{installErr: errors.New("iptables exited 4")}
	dns := &mockRegistrar{}
	orch := New(eng, dns, testNameserver, testLogger())

	err := orch.Start([]string{"203.0.113.7"}, false)
	if err == nil {
		t.Fatal("Start() succeeded despite install failure")
	}
	if orch.State() != Stopped {
		t.Errorf("State() = %s, want stopped", orch.State())
	}
	// Teardown is idempotent, so rolling back a failed install still runs it.
	if !slices.Contains(eng.calls, "teardown") {
		t.Errorf("engine calls = %v, want teardown in rollback", eng.calls)
	}
}

func TestStart_RollbackErrorsDoNotMaskCause(t *testing.T) {
	cause := errors.New("resolver update refused")
	eng := &mockEngine{teardownErr: errors.New("teardown also failed")}
	dns := &mockRegistrar{registerErr: cause, restoreErr: errors.New("restore also failed")}
	orch := New(eng, dns, testNameserver, testLogger())

	err := orch.Start([]string{"203.0.113.7"}, false)
	if !errors.Is(err, cause) {
		t.Errorf("Start() error = %v, want the activation cause %v", err, cause)
	}
}

func TestStop_Success(t *testing.T) {
	eng := &mockEngine{installed: true}
	dns := &mockRegistrar{}
	orch := New(eng, dns, testNameserver, testLogger())

	if err := orch.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if orch.State() != Stopped {
		t.Errorf("State() = %s, want stopped", orch.State())
	}
	if !slices.Equal(dns.calls, []string{"restore"}) {
		t.Errorf("registrar calls = %v, want [restore]", dns.calls)
	}
	if !slices.Equal(eng.calls, []string{"teardown"}) {
		t.Errorf("engine calls = %v, want [teardown]", eng.calls)
	}
}

func TestStop_TeardownFailureReportedOnce(t *testing.T) {
	eng := &mockEngine{installed: true, teardownErr: errors.New("ip6tables exited 1")}
	dns := &mockRegistrar{}
	orch := New(eng, dns, testNameserver, testLogger())

	if err := orch.Stop(); err == nil {
		t.Fatal("Stop() swallowed a teardown failure")
	}
	// Exactly one teardown attempt: stopping never re-rolls-back.
	count := 0
	for _, c := range eng.calls {
		if c == "teardown" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("teardown attempted %d times, want 1", count)
	}
}

func TestInstalled(t *testing.T) {
	eng := &mockEngine{installed: true}
	orch := New(eng, &mockRegistrar{}, testNameserver, testLogger())

	installed, err := orch.Installed()
	if err != nil {
		t.Fatalf("Installed() error: %v", err)
	}
	if !installed {
		t.Error("Installed() = false, want true")
	}
}
