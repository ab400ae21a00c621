package reconcile

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Matcher derives the comparison key of a record name. Two names match
// when their keys are equal.
type Matcher interface {
	Key(name string) string
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(name string) string

// Key implements Matcher
func (f MatcherFunc) Key(name string) string { return f(name) }

// ExactMatcher compares names byte for byte (case-sensitive).
type ExactMatcher struct{}

// Key implements Matcher
func (ExactMatcher) Key(name string) string { return name }

// FoldMatcher ignores case and surrounding whitespace.
type FoldMatcher struct{}

// Key implements Matcher
func (FoldMatcher) Key(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Match strategies accepted by NewMatcher
const (
	MatchExact = "exact"
	MatchFold  = "fold"
	MatchLua   = "lua"
)

// NewMatcher builds the matcher named by strategy. script is only used
// by the lua strategy.
func NewMatcher(strategy, script string) (Matcher, error) {
	switch strategy {
	case "", MatchExact:
		return ExactMatcher{}, nil
	case MatchFold:
		return FoldMatcher{}, nil
	case MatchLua:
		return NewLuaMatcher(script)
	default:
		return nil, fmt.Errorf("unknown match strategy %q", strategy)
	}
}
