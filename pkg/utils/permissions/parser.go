// Package permissions provides utilities for parsing and applying the
// owner/group/mode triples layout commands attach to created files.
package permissions

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// Default permission constants for entries created without an explicit mode
const (
	DefaultFilePerms = 0o644
	DefaultDirPerms  = 0o755
)

var modePattern = regexp.MustCompile(`^([r-][w-][x-]){3}$`)

// PermissionSet is the optional owner, group and symbolic mode applied to a
// filesystem entry. Empty fields are left untouched.
type PermissionSet struct {
	Owner string `yaml:"owner,omitempty"`
	Group string `yaml:"group,omitempty"`
	Mode  string `yaml:"mode,omitempty"`
}

// IsEmpty reports whether applying the set would change nothing.
func (p PermissionSet) IsEmpty() bool {
	return p.Owner == "" && p.Group == "" && p.Mode == ""
}

// Octal returns the mode as a four digit octal string such as "0755".
// An empty mode yields an empty string.
func (p PermissionSet) Octal() string {
	if p.Mode == "" {
		return ""
	}
	perm, err := ParseSymbolic(p.Mode)
	if err != nil {
		return ""
	}
	return FormatOctal(perm)
}

// FileMode returns the mode as os.FileMode. ok is false when no valid mode is set.
func (p PermissionSet) FileMode() (mode os.FileMode, ok bool) {
	if p.Mode == "" {
		return 0, false
	}
	perm, err := ParseSymbolic(p.Mode)
	if err != nil {
		return 0, false
	}
	return os.FileMode(perm), true
}

// ValidMode checks a symbolic mode such as "rwxr-xr-x".
func ValidMode(s string) bool {
	return modePattern.MatchString(s)
}

// ParseSymbolic parses a nine character rwx triplet. Each position that is
// not '-' sets its permission bit; setuid, setgid and sticky bits are not
// representable.
func ParseSymbolic(s string) (uint16, error) {
	if !ValidMode(s) {
		return 0, fmt.Errorf("invalid symbolic mode %q, want ([r-][w-][x-]){3}", s)
	}
	var perm uint16
	for i := 0; i < 9; i++ {
		perm <<= 1
		if s[i] != '-' {
			perm |= 1
		}
	}
	return perm, nil
}

// FormatSymbolic renders the lower nine permission bits as an rwx triplet.
func FormatSymbolic(perm uint16) string {
	const letters = "rwxrwxrwx"
	out := []byte("---------")
	for i := 0; i < 9; i++ {
		if perm&(1<<uint(8-i)) != 0 {
			out[i] = letters[i]
		}
	}
	return string(out)
}

// ParseOctalString parses an octal permission string into a uint16
// Handles formats like "755", "0755", "0o755"
func ParseOctalString(s string) (uint16, error) {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'o' || s[1] == 'O') {
		s = s[2:]
	}
	val, err := strconv.ParseUint(s, 8, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid permission string %q: %w", s, err)
	}
	return uint16(val), nil
}

// FormatOctal formats a permission value as a four digit octal string
func FormatOctal(perm uint16) string {
	return fmt.Sprintf("%04o", perm&0o777)
}
