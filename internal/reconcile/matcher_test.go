package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchers(t *testing.T) {
	tests := []struct {
		name    string
		matcher Matcher
		a, b    string
		equal   bool
	}{
		{name: "exact_same", matcher: ExactMatcher{}, a: "Infra", b: "Infra", equal: true},
		{name: "exact_case", matcher: ExactMatcher{}, a: "Infra", b: "infra", equal: false},
		{name: "exact_space", matcher: ExactMatcher{}, a: "Infra", b: "Infra ", equal: false},
		{name: "fold_case", matcher: FoldMatcher{}, a: "Infra", b: "INFRA", equal: true},
		{name: "fold_space", matcher: FoldMatcher{}, a: " Infra", b: "infra ", equal: true},
		{name: "fold_sharp_s", matcher: FoldMatcher{}, a: "Straße", b: "STRASSE", equal: true},
		{name: "fold_different", matcher: FoldMatcher{}, a: "Infra", b: "Edge", equal: false},
		{name: "func", matcher: MatcherFunc(func(s string) string { return s[:1] }), a: "Infra", b: "Intranet", equal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.matcher.Key(tt.a) == tt.matcher.Key(tt.b)
			assert.Equal(t, tt.equal, got)
		})
	}
}

func TestLuaMatcher(t *testing.T) {
	m, err := NewLuaMatcher(`
function key(name)
  local trimmed = string.gsub(name, "%s*%[.-%]%s*", "")
  return string.lower(trimmed)
end
`)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, "infra", m.Key("Infra"))
	assert.Equal(t, "infra", m.Key("[EU] Infra"))
	assert.Equal(t, m.Key("INFRA [legacy]"), m.Key("infra"))
}

func TestLuaMatcher_InvalidScripts(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{name: "empty", script: ""},
		{name: "syntax", script: "function key(name"},
		{name: "missing_function", script: "x = 1"},
		{name: "not_a_function", script: "key = 'nope'"},
		{name: "returns_table", script: "function key(name) return {} end"},
		{name: "raises", script: "function key(name) error('boom') end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLuaMatcher(tt.script)
			assert.Error(t, err)
		})
	}
}

func TestLuaMatcher_RuntimeFailureFallsBack(t *testing.T) {
	m, err := NewLuaMatcher(`
function key(name)
  if name == "bad" then error("nope") end
  return string.upper(name)
end
`)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, "GOOD", m.Key("good"))
	assert.Equal(t, "bad", m.Key("bad"))
}

func TestNewMatcher(t *testing.T) {
	m, err := NewMatcher("", "")
	require.NoError(t, err)
	assert.IsType(t, ExactMatcher{}, m)

	m, err = NewMatcher(MatchFold, "")
	require.NoError(t, err)
	assert.IsType(t, FoldMatcher{}, m)

	m, err = NewMatcher(MatchLua, "function key(n) return n end")
	require.NoError(t, err)
	assert.IsType(t, &LuaMatcher{}, m)
	m.(*LuaMatcher).Close()

	_, err = NewMatcher("fuzzy", "")
	assert.Error(t, err)
}
