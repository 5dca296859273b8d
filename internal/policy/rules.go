// Package policy implements the bash-command validation firewall.
// Rules are data, not code: two ordered tables evaluated by a small
// engine in validator.go, so the blocklist can grow without touching
// the evaluation logic.
package policy

import "regexp"

// Rule is one entry in the blocklist. Detect matching a command denies it
// unless the optional Unless exemption also matches.
type Rule struct {
	Name   string
	Detect *regexp.Regexp
	Unless *regexp.Regexp
	Reason string
}

// CrashRules target command shapes that crash the emulated shell outright.
// Matcher-only: there is no safe variant of these.
var CrashRules = []Rule{
	{
		Name:   "nested-quotes",
		Detect: regexp.MustCompile(`'[^']*'\s*"[^"]*"\s*'[^']*'`),
		Reason: "nested quotes: mixing quote styles inside a quoted span breaks shell parsing",
	},
	{
		Name:   "shell-expansion",
		Detect: regexp.MustCompile("\\$\\(|`|\r|\n"),
		Reason: "shell expansion metacharacters: subshell syntax, backticks, or embedded newlines are not supported",
	},
	{
		Name:   "unc-path",
		Detect: regexp.MustCompile(`(?:^|\s|")\\\\[\w.$-]`),
		Reason: "UNC path: network share paths are not reachable from the emulated shell",
	},
}

// HangRules target commands that hang the session by walking unbounded
// trees. Each pairs a Detect pattern with an Unless exemption encoding
// "dangerous in general, but safe when scoped".
var HangRules = []Rule{
	{
		Name:   "dir-recursive",
		Detect: regexp.MustCompile(`(?i)\bdir\b[^|;&]*\s/s\b`),
		Unless: regexp.MustCompile(`\*\.\w+`),
		Reason: "dir /s without a file-extension filter recurses the whole tree and hangs",
	},
	{
		Name:   "find-unbounded",
		Detect: regexp.MustCompile(`(?i)\bfind\s+(?:"?[A-Za-z]:[\\/]Users|"?/home/|"?/Users/|~|\$HOME|%USERPROFILE%)`),
		Unless: regexp.MustCompile(`(?i)-maxdepth\s+\d`),
		Reason: "recursive find over a user directory without -maxdepth hangs",
	},
	{
		Name:   "tree-unbounded",
		Detect: regexp.MustCompile(`(?i)\btree\b[^|;&]*(?:[A-Za-z]:[\\/]Users|/home/|/Users/|~|\$HOME|%USERPROFILE%)`),
		Unless: regexp.MustCompile(`(?i)-L\s+\d`),
		Reason: "tree over a user directory without a depth flag hangs",
	},
	{
		Name:   "git-log-unbounded",
		Detect: regexp.MustCompile(`(?i)\bgit\s+log\b[^|;&]*--(?:all|follow|reflog)\b`),
		Unless: regexp.MustCompile(`(?i)-n\s*\d+|--max-count(?:[= ])\d+`),
		Reason: "git log spanning full history without a result-count limit hangs",
	},
}

// pathPattern extracts path-like substrings for the length check:
// drive-letter-rooted or POSIX-rooted, space-delimited.
var pathPattern = regexp.MustCompile(`(?:[A-Za-z]:[\\/]|/)[^\s"']+`)
