// Package pathconv maps paths written in the convention of a remote host's
// operating system family onto the syntax the SFTP subsystem expects.
package pathconv

import (
	"fmt"
	"strings"
)

// Family is the operating system family of a remote host.
type Family int

const (
	Unix Family = iota
	Windows
	ZOS
)

func (f Family) String() string {
	switch f {
	case Unix:
		return "unix"
	case Windows:
		return "windows"
	case ZOS:
		return "zos"
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// Separator returns the path separator used by the family.
func (f Family) Separator() string {
	if f == Windows {
		return `\`
	}
	return "/"
}

// ParseFamily accepts the names produced by Family.String, case-insensitively.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unix", "linux":
		return Unix, nil
	case "windows":
		return Windows, nil
	case "zos", "z/os":
		return ZOS, nil
	}
	return Unix, fmt.Errorf("unknown operating system family: %q", s)
}

// Translate returns the path the SFTP server on a host of the given family
// expects for p. Only Windows hosts are affected: "C:" becomes "/C" and
// "C:\foo\bar" becomes "/C/foo/bar". Everything else passes through.
func Translate(p string, family Family) string {
	if family != Windows {
		return p
	}
	switch {
	case len(p) == 2 && p[1] == ':':
		return "/" + p[:1]
	case len(p) > 2 && p[1] == ':' && p[2] == '\\':
		return "/" + strings.ReplaceAll(strings.ReplaceAll(p, `\`, "/"), ":", "")
	}
	return p
}

// Join appends name to dir using the family separator.
func Join(dir, name string, family Family) string {
	sep := family.Separator()
	if strings.HasSuffix(dir, sep) {
		return dir + name
	}
	return dir + sep + name
}

// Parent returns the parent of p. The second result is false when p is a
// root: "/" on Unix and z/OS, a bare drive or drive root on Windows, or a
// path without any separator.
func Parent(p string, family Family) (string, bool) {
	sep := family.Separator()
	p = trimTrailing(p, family)
	if isRoot(p, family) {
		return "", false
	}

	i := strings.LastIndex(p, sep)
	switch {
	case i < 0:
		return "", false
	case i == 0:
		return sep, true
	case family == Windows && i == 2 && p[1] == ':':
		return p[:3], true
	}
	return p[:i], true
}

// Within reports whether p is dir or lies below it.
func Within(p, dir string, family Family) bool {
	dir = trimTrailing(dir, family)
	for cur := trimTrailing(p, family); ; {
		if cur == dir {
			return true
		}
		parent, ok := Parent(cur, family)
		if !ok {
			return false
		}
		cur = parent
	}
}

// Base returns the last element of p.
func Base(p string, family Family) string {
	p = trimTrailing(p, family)
	if isRoot(p, family) {
		return p
	}
	if i := strings.LastIndex(p, family.Separator()); i >= 0 {
		return p[i+1:]
	}
	return p
}

func isRoot(p string, family Family) bool {
	if family == Windows {
		return (len(p) == 2 && p[1] == ':') || (len(p) == 3 && p[1] == ':' && p[2] == '\\')
	}
	return p == "/" || p == ""
}

func trimTrailing(p string, family Family) string {
	sep := family.Separator()
	for len(p) > 1 && strings.HasSuffix(p, sep) && !isRoot(p, family) {
		p = strings.TrimSuffix(p, sep)
	}
	return p
}
