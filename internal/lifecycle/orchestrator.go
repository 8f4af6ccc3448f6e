// Package lifecycle sequences firewall activation with DNS registration and
// defines the rollback behavior when activation fails partway. A single
// orchestrator handles one command invocation on one goroutine; the external
// caller is expected to serialize invocations, so correctness across
// invocations rests on the firewall engine's idempotency, not on locking.
package lifecycle

import (
	"fmt"
	"log/slog"
)

// State is the orchestrator's position in the activation lifecycle.
type State int

const (
	// Idle is the initial state: nothing installed by this invocation.
	Idle State = iota
	// ChainInstalled means the firewall policy is in place.
	ChainInstalled
	// DNSRegistered means the resolver update has been dispatched.
	DNSRegistered
	// Active is the terminal success state of Start.
	Active
	// RollingBack means a failed activation is being unwound.
	RollingBack
	// Stopped is the terminal state after Stop or a completed rollback.
	Stopped
)

// String returns the state name used in diagnostics.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ChainInstalled:
		return "chain-installed"
	case DNSRegistered:
		return "dns-registered"
	case Active:
		return "active"
	case RollingBack:
		return "rolling-back"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PolicyEngine is the firewall engine surface the orchestrator drives.
type PolicyEngine interface {
	InstallPolicy(gateways []string) error
	TeardownPolicy() error
	PolicyInstalled() (bool, error)
}

// DNSRegistrar is the resolver-registration collaborator.
type DNSRegistrar interface {
	Register(nameserver string) error
	Restore() error
}

// Orchestrator sequences policy installation, DNS registration, and the
// rollback path between them.
type Orchestrator struct {
	engine     PolicyEngine
	dns        DNSRegistrar
	nameserver string
	logger     *slog.Logger
	state      State
}

// New creates an Orchestrator in the Idle state.
func New(engine PolicyEngine, dns DNSRegistrar, nameserver string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		engine:     engine,
		dns:        dns,
		nameserver: nameserver,
		logger:     logger.With("component", "lifecycle"),
		state:      Idle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return o.state }

// Start installs the firewall policy and registers the provider nameserver.
// On failure with restart=false the partial activation is rolled back: the
// resolver is restored and the policy torn down, then the original error is
// reported. With restart=true rollback is skipped, leaving any existing
// chain intact so a retrying caller does not lose connectivity mid-restart.
func (o *Orchestrator) Start(gateways []string, restart bool) error {
	o.state = Idle

	if err := o.engine.InstallPolicy(gateways); err != nil {
		return o.fail(err, restart)
	}
	o.state = ChainInstalled

	if err := o.dns.Register(o.nameserver); err != nil {
		return o.fail(err, restart)
	}
	o.state = DNSRegistered

	o.state = Active
	o.logger.Info("firewall active", "gateways", len(gateways))
	return nil
}

// fail handles a mid-activation error: roll back unless this is a restart.
// Rollback errors are logged, not returned; the activation error is what
// the caller needs to see.
func (o *Orchestrator) fail(cause error, restart bool) error {
	if restart {
		o.logger.Warn("activation failed during restart, leaving existing state intact",
			"state", o.state.String(), "error", cause)
		return fmt.Errorf("lifecycle: start: %w", cause)
	}

	o.state = RollingBack
	o.logger.Warn("activation failed, rolling back", "error", cause)

	if err := o.dns.Restore(); err != nil {
		o.logger.Error("rollback: resolver restore failed", "error", err)
	}
	if err := o.engine.TeardownPolicy(); err != nil {
		o.logger.Error("rollback: policy teardown failed", "error", err)
	}
	o.state = Stopped

	return fmt.Errorf("lifecycle: start: %w", cause)
}

// Stop restores the resolver and tears down the firewall policy. A teardown
// failure is reported as-is; there is nothing further to roll back.
func (o *Orchestrator) Stop() error {
	if err := o.dns.Restore(); err != nil {
		return fmt.Errorf("lifecycle: stop: %w", err)
	}
	if err := o.engine.TeardownPolicy(); err != nil {
		return fmt.Errorf("lifecycle: stop: %w", err)
	}
	o.state = Stopped
	o.logger.Info("firewall stopped")
	return nil
}

// Installed reports whether the firewall policy is in place.
func (o *Orchestrator) Installed() (bool, error) {
	return o.engine.PolicyInstalled()
}
