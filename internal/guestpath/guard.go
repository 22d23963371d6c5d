// Package guestpath guards guest directories that must never be removed or
// moved away.
package guestpath

import (
	"fmt"
	"path"
	"strings"
)

// DefaultProtected lists the guest paths guarded when no list is configured.
var DefaultProtected = []string{
	"/",
	"/bin",
	"/boot",
	"/etc",
	"/lib",
	"/usr",
	"/var",
	"C:/",
	"C:/Windows",
	"C:/Program Files",
}

// BlockedError reports an operation that would take a protected path with it.
type BlockedError struct {
	Path      string
	Protected string
}

func (e *BlockedError) Error() string {
	if samePath(Clean(e.Path), e.Protected) {
		return fmt.Sprintf("guest path blocked: %s is a protected path", e.Protected)
	}
	return fmt.Sprintf("guest path blocked: %s contains protected path %s", e.Path, e.Protected)
}

// Guard checks guest paths against a list of protected paths
type Guard struct {
	protected []string // cleaned
}

// NewGuard creates a Guard for the given protected paths. Empty entries are
// skipped.
func NewGuard(protected []string) *Guard {
	cleaned := make([]string, 0, len(protected))
	for _, p := range protected {
		if strings.TrimSpace(p) == "" {
			continue
		}
		cleaned = append(cleaned, Clean(p))
	}
	return &Guard{protected: cleaned}
}

// Check returns a *BlockedError when removing or moving p would remove a
// protected path, that is when p equals one or is one of its ancestors.
// Paths below a protected path are fine.
func (g *Guard) Check(p string) error {
	if p == "" {
		return nil
	}
	target := Clean(p)
	for _, protected := range g.protected {
		if isUnderOrEqual(protected, target) {
			return &BlockedError{Path: p, Protected: protected}
		}
	}
	return nil
}

// Protected returns the cleaned protected paths.
func (g *Guard) Protected() []string {
	return append([]string(nil), g.protected...)
}

// Clean normalizes a guest path of either flavour. Backslashes become
// slashes and a Windows drive letter is upper-cased so "c:\temp" and
// "C:/temp" compare equal.
func Clean(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if hasDrive(p) {
		p = strings.ToUpper(p[:1]) + p[1:]
		rest := path.Clean("/" + p[2:])
		return p[:2] + rest
	}
	return path.Clean(p)
}

func hasDrive(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func samePath(a, b string) bool {
	if hasDrive(a) && hasDrive(b) {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// isUnderOrEqual returns true if testPath is under or equal to basePath.
//   - "/etc" is under "/etc" (equal)
//   - "/etc/ssh" is under "/etc"
//   - "/etcd" is NOT under "/etc"
//
// Windows drive paths compare case-insensitively.
func isUnderOrEqual(testPath, basePath string) bool {
	if samePath(testPath, basePath) {
		return true
	}
	if hasDrive(testPath) && hasDrive(basePath) {
		testPath, basePath = strings.ToLower(testPath), strings.ToLower(basePath)
	}

	baseWithSep := basePath
	if !strings.HasSuffix(baseWithSep, "/") {
		baseWithSep += "/"
	}

	return strings.HasPrefix(testPath, baseWithSep)
}
