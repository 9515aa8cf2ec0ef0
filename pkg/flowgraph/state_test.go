package flowgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_Accessors(t *testing.T) {
	s := State{
		"name":   "paper",
		"flag":   true,
		"n":      3,
		"n64":    int64(4),
		"f":      5.0,
		"frac":   5.5,
		"list":   []string{"a", "b"},
		"anys":   []any{"x", "y"},
		"mixed":  []any{"x", 1},
		"number": 1,
	}

	assert.Equal(t, "paper", s.String("name"))
	assert.Equal(t, "", s.String("n"))
	assert.True(t, s.Bool("flag"))
	assert.False(t, s.Bool("missing"))
	assert.Equal(t, 3, s.Int("n"))
	assert.Equal(t, 4, s.Int("n64"))
	assert.Equal(t, 5, s.Int("f"))
	assert.Equal(t, 0, s.Int("frac"))
	assert.Equal(t, []string{"a", "b"}, s.Strings("list"))
	assert.Equal(t, []string{"x", "y"}, s.Strings("anys"))
	assert.Nil(t, s.Strings("mixed"))
	assert.Nil(t, s.Strings("missing"))
	assert.True(t, s.Has("name"))
	assert.False(t, s.Has("missing"))
	assert.Equal(t, 1, Get[int](s, "number"))
	assert.Equal(t, "", Get[string](s, "number"))
}

func TestState_StringsReturnsCopy(t *testing.T) {
	s := State{"list": []string{"a"}}
	got := s.Strings("list")
	got[0] = "changed"
	assert.Equal(t, []string{"a"}, s["list"])
}

func TestState_Clone(t *testing.T) {
	s := State{"a": 1}
	c := s.Clone()
	c["a"] = 2
	c["b"] = 3
	assert.Equal(t, State{"a": 1}, s)

	var nilState State
	assert.NotNil(t, nilState.Clone())
}
