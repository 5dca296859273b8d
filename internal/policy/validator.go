package policy

import (
	"fmt"
	"strings"

	"github.com/codeglyph/agentshim/internal/domain"
)

// Validator evaluates shell commands against the crash and hang rule
// tables. First matching rule wins; rule sets target disjoint patterns
// so ordering only affects the reason surfaced.
type Validator struct {
	maxPathLength int
	crashRules    []Rule
	hangRules     []Rule
}

// NewValidator creates a validator with the built-in rule tables.
// maxPathLength <= 0 falls back to the default 260.
func NewValidator(maxPathLength int) *Validator {
	if maxPathLength <= 0 {
		maxPathLength = domain.DefaultConfig().MaxPathLength
	}
	return &Validator{
		maxPathLength: maxPathLength,
		crashRules:    CrashRules,
		hangRules:     HangRules,
	}
}

// Validate returns whether the command may be passed to the shell.
// Evaluation order: quote balance, crash rules, path length, hang rules.
func (v *Validator) Validate(command string) domain.Verdict {
	if command == "" {
		return domain.Allow()
	}

	if strings.Count(command, "'")%2 != 0 {
		return domain.Deny("unbalanced quotes: odd number of single quotes")
	}

	for _, rule := range v.crashRules {
		if rule.Detect.MatchString(command) {
			return domain.Deny(rule.Reason)
		}
	}

	for _, p := range pathPattern.FindAllString(command, -1) {
		if len(p) > v.maxPathLength {
			head := p
			if len(head) > 40 {
				head = head[:40]
			}
			return domain.Deny(fmt.Sprintf("path exceeds %d characters: %s...", v.maxPathLength, head))
		}
	}

	for _, rule := range v.hangRules {
		if rule.Detect.MatchString(command) && !rule.Unless.MatchString(command) {
			return domain.Deny(rule.Reason)
		}
	}

	return domain.Allow()
}

// Ensure Validator implements domain.CommandValidator.
var _ domain.CommandValidator = (*Validator)(nil)
