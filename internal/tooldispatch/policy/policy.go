// Package policy implements the execpolicy pattern matcher (spec §4.4's
// "untrusted" approval policy consults the execpolicy... to classify as
// allow/ask/deny"), grounded on the teacher's tool allow/deny pattern
// matching generalized from tool names to shell command lines, and
// supplemented with codex-rs/execpolicy/src/arg_matcher.rs's
// positional-argument matching for the precise path.
package policy

import "strings"

// Verdict is the execpolicy classification of a command.
type Verdict string

const (
	VerdictAllow Verdict = "allow"
	VerdictAsk   Verdict = "ask"
	VerdictDeny  Verdict = "deny"
)

// Rule is one execpolicy rule: a program name or glob pattern, an optional
// set of required leading arguments (the arg-matcher's positional match),
// and the verdict to apply when it matches.
type Rule struct {
	Program string   // exact program name, or "*" for any
	Args    []string // required leading args; empty matches any args
	Verdict Verdict
}

// Policy is an ordered list of Rules evaluated first-match-wins, plus a
// fallback verdict.
type Policy struct {
	Rules    []Rule
	Fallback Verdict
}

// DefaultPolicy denies `rm -rf /`, allows a fixed set of read-only
// commands, and asks for anything else, mirroring a conservative
// untrusted-mode default.
func DefaultPolicy() *Policy {
	return &Policy{
		Rules: []Rule{
			{Program: "rm", Args: []string{"-rf", "/"}, Verdict: VerdictDeny},
			{Program: "cat", Verdict: VerdictAllow},
			{Program: "ls", Verdict: VerdictAllow},
			{Program: "head", Verdict: VerdictAllow},
			{Program: "tail", Verdict: VerdictAllow},
			{Program: "grep", Verdict: VerdictAllow},
			{Program: "wc", Verdict: VerdictAllow},
			{Program: "sort", Verdict: VerdictAllow},
			{Program: "uniq", Verdict: VerdictAllow},
			{Program: "git", Args: []string{"status"}, Verdict: VerdictAllow},
			{Program: "git", Args: []string{"diff"}, Verdict: VerdictAllow},
			{Program: "git", Args: []string{"log"}, Verdict: VerdictAllow},
		},
		Fallback: VerdictAsk,
	}
}

// Classify parses command as a shell argv (fast-path: the first word is
// the program name) and returns the execpolicy verdict. The arg-matcher
// path requires every element of a matching rule's Args to be a literal
// prefix of the command's remaining argv, in order (positional match,
// grounded on arg_matcher.rs's ArgMatcher trait); a rule with no Args
// matches on program name alone.
func (p *Policy) Classify(command []string) Verdict {
	if len(command) == 0 {
		return p.Fallback
	}
	program := command[0]
	rest := command[1:]

	for _, rule := range p.Rules {
		if rule.Program != "*" && rule.Program != program {
			continue
		}
		if matchesArgs(rule.Args, rest) {
			return rule.Verdict
		}
	}
	return p.Fallback
}

// matchesArgs reports whether want is a literal positional prefix of got.
func matchesArgs(want, got []string) bool {
	if len(want) == 0 {
		return true
	}
	if len(want) > len(got) {
		return false
	}
	for i, w := range want {
		if got[i] != w {
			return false
		}
	}
	return true
}

// NormalizeTool lower-cases and trims a tool or program name for pattern
// matching, grounded on the teacher's policy.NormalizeTool.
func NormalizeTool(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
