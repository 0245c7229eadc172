// Package classify decides whether a command line belongs to the supervised
// process class.
package classify

import (
	"fmt"
	"regexp"
)

// DefaultPatterns match common test-harness invocations.
var DefaultPatterns = []string{
	`\bjest\b`,
	`\bmocha\b`,
	`\bvitest\b`,
	`\bplaywright\b`,
	`\bcypress\b`,
	`\bpytest\b`,
	`\bphpunit\b`,
	`\bgo test\b`,
	`node .*test`,
}

// Classifier holds an ordered list of command signatures compiled once at
// construction. Matching is case-insensitive and allocation-free.
type Classifier struct {
	patterns []*regexp.Regexp
}

// New compiles the provided signatures. An empty list falls back to
// DefaultPatterns.
func New(patterns []string) (*Classifier, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile target pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return &Classifier{patterns: compiled}, nil
}

// IsTarget reports whether the command line matches any configured signature.
func (c *Classifier) IsTarget(commandLine string) bool {
	if c == nil || commandLine == "" {
		return false
	}
	for _, re := range c.patterns {
		if re.MatchString(commandLine) {
			return true
		}
	}
	return false
}
