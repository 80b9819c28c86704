package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_Switches(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabled_Rollout(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,over=250%")

	assert.True(t, m.Enabled("always", 1))
	assert.True(t, m.Enabled("always", 0))
	assert.True(t, m.Enabled("over", 7))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("canary", 0), "anonymous callers are outside partial rollouts")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42))
	}

	enabled := 0
	for id := uint(1); id <= 1000; id++ {
		if m.Enabled("canary", id) {
			enabled++
		}
	}
	assert.InDelta(t, 250, enabled, 100)
}

func TestNewManager_SkipsMalformedPairs(t *testing.T) {
	m := NewManager(" bad ,X = on, y = 20% ,z=off,=on,w=maybe,v=abc% ")

	assert.Equal(t, []string{"x", "y", "z"}, m.Names())
	assert.True(t, m.Enabled("X", 0))
	assert.False(t, m.Enabled("w", 1))
}

func TestSnapshot(t *testing.T) {
	m := NewManager(StrictCommentValidation + "=on,new_editor=off")

	assert.Equal(t, map[string]bool{
		StrictCommentValidation: true,
		"new_editor":            false,
	}, m.Snapshot(3))
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(StrictCommentValidation, 1))
	assert.Empty(t, m.Snapshot(1))
}
