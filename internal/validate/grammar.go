package validate

import (
	"fmt"
	"log/slog"
	"strings"
)

// flagPrefix marks a token as a flag name. Everything else is a parameter.
const flagPrefix = "--"

// FlagSpec describes one allowlisted flag: its name and the ordered parameter
// kinds it takes. Arity is exact; a flag with no entries takes no parameters.
type FlagSpec struct {
	Name   string
	Params []ParamKind
}

// Allowlist is the closed set of flags that may be forwarded to the
// privileged OpenVPN exec, keyed by flag name.
type Allowlist map[string][]ParamKind

// DefaultAllowlist returns the OpenVPN client flag grammar. The variable
// flags a frontend may pass are limited to remote selection, cipher choice,
// management channel setup, and credential file paths; everything else the
// client needs is part of the launcher's fixed base argv.
func DefaultAllowlist() Allowlist {
	return Allowlist{
		"--remote":                 {Address, PortNumber, Protocol},
		"--tls-cipher":             {CipherName},
		"--cipher":                 {CipherName},
		"--auth":                   {CipherName},
		"--management":             {ExistingDirParent, MgmtTarget},
		"--management-client-user": {Username},
		"--cert":                   {ExistingFile},
		"--key":                    {ExistingFile},
		"--ca":                     {ExistingFile},
		"--fragment":               {PortNumber},
		"--auth-retry":             {FixedLiteral},
	}
}

// ValidationError reports why an input sequence was rejected. The whole
// input is rejected as a unit: a partial flag list is never returned.
type ValidationError struct {
	Flag   string // offending flag name, if any
	Reason string
}

// Error returns the formatted error string.
func (e *ValidationError) Error() string {
	if e.Flag == "" {
		return fmt.Sprintf("validate: %s", e.Reason)
	}
	return fmt.Sprintf("validate: flag %s: %s", e.Flag, e.Reason)
}

// flagGroup is a flag token plus the non-flag tokens that followed it.
type flagGroup struct {
	name   string
	params []string
}

// Engine validates untrusted flag sequences against an allowlist.
type Engine struct {
	allow  Allowlist
	logger *slog.Logger
}

// NewEngine creates an Engine over the given allowlist.
func NewEngine(allow Allowlist, logger *slog.Logger) *Engine {
	return &Engine{
		allow:  allow,
		logger: logger.With("component", "validate"),
	}
}

// ValidateFlags partitions args into flag groups and validates each group
// against the allowlist. It returns the flat, order-preserving token list
// that is safe to append to a privileged command line.
//
// Unknown flags are dropped with a warning, whole group included: the flag
// set may drift between frontend and helper versions, and an unknown flag
// carries no privileged meaning here. A known flag with wrong arity or a
// parameter failing its kind predicate rejects the entire input instead —
// malformed input to a flag we do forward is exactly what this layer exists
// to stop.
func (e *Engine) ValidateFlags(args []string) ([]string, error) {
	groups := partition(args, e.logger)

	out := make([]string, 0, len(args))
	for _, g := range groups {
		kinds, ok := e.allow[g.name]
		if !ok {
			e.logger.Warn("dropping unknown flag", "flag", g.name, "params", len(g.params))
			continue
		}
		if len(g.params) != len(kinds) {
			return nil, &ValidationError{
				Flag:   g.name,
				Reason: fmt.Sprintf("expected %d parameters, got %d", len(kinds), len(g.params)),
			}
		}
		for i, tok := range g.params {
			if !kinds[i].Valid(tok) {
				return nil, &ValidationError{
					Flag:   g.name,
					Reason: fmt.Sprintf("parameter %d is not a valid %s", i+1, kinds[i]),
				}
			}
		}
		out = append(out, g.name)
		out = append(out, g.params...)
	}
	return out, nil
}

// partition groups args into maximal flag groups. Each group starts at a
// flag-prefixed token and claims every following token up to the next flag
// or end of input. Tokens before the first flag belong to no group and are
// discarded with a warning.
func partition(args []string, logger *slog.Logger) []flagGroup {
	var groups []flagGroup
	i := 0

	for i < len(args) && !strings.HasPrefix(args[i], flagPrefix) {
		logger.Warn("discarding leading non-flag token", "token", args[i])
		i++
	}

	for i < len(args) {
		g := flagGroup{name: args[i]}
		i++
		for i < len(args) && !strings.HasPrefix(args[i], flagPrefix) {
			g.params = append(g.params, args[i])
			i++
		}
		groups = append(groups, g)
	}
	return groups
}
