// Package validate implements the allowlist grammar that stands between
// untrusted caller input and the privileged OpenVPN exec. Every token that
// could reach a privileged command line passes through a ParamKind predicate;
// anything the grammar cannot positively account for is never forwarded.
package validate

import (
	"net/netip"
	"os"
	"path/filepath"
	"regexp"
)

// ParamKind identifies the validation predicate for one flag parameter
// position. The set is closed: adding a kind means adding a case to Valid,
// and the default case rejects so an unknown kind can never accept a token.
type ParamKind int

const (
	// Address accepts a syntactically valid IPv4 dotted-quad address.
	Address ParamKind = iota
	// PortNumber accepts a non-empty all-digit token.
	PortNumber
	// Protocol accepts exactly "tcp" or "udp".
	Protocol
	// CipherName accepts uppercase letters, digits, and hyphens.
	CipherName
	// MgmtTarget accepts the literal "unix" (management socket family).
	MgmtTarget
	// Username accepts POSIX portable username syntax.
	Username
	// ExistingFile accepts a path naming an existing regular file.
	ExistingFile
	// ExistingDirParent accepts a path whose parent directory exists.
	// Used for paths the target binary will create, such as the
	// management socket.
	ExistingDirParent
	// FixedLiteral accepts the literal "nointeract" (the auth-retry mode).
	FixedLiteral
)

var (
	portRe   = regexp.MustCompile(`^[0-9]+$`)
	cipherRe = regexp.MustCompile(`^[A-Z0-9-]+$`)
	userRe   = regexp.MustCompile(`^[a-z_][a-z0-9._-]*\$?$`)
)

// maxUsernameLen bounds Username tokens per POSIX LOGIN_NAME_MAX conventions.
const maxUsernameLen = 32

// String returns the kind name used in diagnostics.
func (k ParamKind) String() string {
	switch k {
	case Address:
		return "address"
	case PortNumber:
		return "port"
	case Protocol:
		return "protocol"
	case CipherName:
		return "cipher"
	case MgmtTarget:
		return "management-target"
	case Username:
		return "username"
	case ExistingFile:
		return "existing-file"
	case ExistingDirParent:
		return "existing-dir-parent"
	case FixedLiteral:
		return "fixed-literal"
	default:
		return "unknown"
	}
}

// Valid reports whether tok satisfies the kind's predicate. Malformed input
// is the expected case: Valid never panics, and the only side effect is a
// read-only stat for the filesystem kinds.
func (k ParamKind) Valid(tok string) bool {
	switch k {
	case Address:
		return validAddress(tok)
	case PortNumber:
		return portRe.MatchString(tok)
	case Protocol:
		return tok == "tcp" || tok == "udp"
	case CipherName:
		return cipherRe.MatchString(tok)
	case MgmtTarget:
		return tok == "unix"
	case Username:
		return len(tok) <= maxUsernameLen && userRe.MatchString(tok)
	case ExistingFile:
		info, err := os.Stat(tok)
		return err == nil && info.Mode().IsRegular()
	case ExistingDirParent:
		if tok == "" {
			return false
		}
		info, err := os.Stat(filepath.Dir(tok))
		return err == nil && info.IsDir()
	case FixedLiteral:
		return tok == "nointeract"
	default:
		return false
	}
}

// validAddress accepts only strict IPv4 dotted-quad syntax. netip.ParseAddr
// rejects whitespace, extra octets, and out-of-range components; the Is4
// check additionally excludes IPv6 forms, including IPv4-mapped ones.
func validAddress(tok string) bool {
	addr, err := netip.ParseAddr(tok)
	return err == nil && addr.Is4()
}
