// Package infra implements infrastructure concerns (process, filesystem, network).
package infra

import "strings"

// ToPosix maps a native Windows path to the POSIX-style form expected by a
// Unix-emulation shell: backslashes become slashes and a leading drive
// letter maps to a lowercase root segment ("C:\a b\c" -> "/c/a b/c").
// Pure and total: inputs without a drive-letter prefix are only
// separator-translated, and already-POSIX input comes back unchanged.
func ToPosix(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")

	if len(p) >= 2 && p[1] == ':' && isDriveLetter(p[0]) {
		drive := strings.ToLower(string(p[0]))
		rest := p[2:]
		if rest != "" && !strings.HasPrefix(rest, "/") {
			rest = "/" + rest
		}
		p = "/" + drive + rest
	}

	return p
}

// ToPosixArgs translates every element of an argument list.
func ToPosixArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = ToPosix(a)
	}
	return out
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
