package engine

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestActionScope(t *testing.T) {
	for _, action := range []string{"brightness", "volume", "aspect", "orient", "lock", "sidebar", "play", "pause", "seek", "speed", "subtitle"} {
		assert.Equal(t, ScopeGlobal, ActionScope(action), action)
	}
	for _, action := range []string{"kick", "clear"} {
		assert.Equal(t, ScopeCritical, ActionScope(action), action)
	}
	for _, action := range []string{"logout", "copy", "fullscreen"} {
		assert.Equal(t, ScopeLocal, ActionScope(action), action)
	}
	assert.Equal(t, ScopeUnknown, ActionScope("reboot"))
}

func TestClampLevels(t *testing.T) {
	cmd := Command{Action: "volume", Value: 1.8}
	cmd.ClampLevels()
	assert.Equal(t, 1.0, cmd.Value)

	cmd = Command{Action: "brightness", Value: -0.3}
	cmd.ClampLevels()
	assert.Equal(t, 0.0, cmd.Value)

	cmd = Command{Action: "volume", Value: 0.5}
	cmd.ClampLevels()
	assert.Equal(t, 0.5, cmd.Value)

	// Non-level actions keep their value untouched.
	cmd = Command{Action: "aspect", Value: "Fill"}
	cmd.ClampLevels()
	assert.Equal(t, "Fill", cmd.Value)
}

func TestCommandFilterDropsStaleEntries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	f := NewCommandFilter("Alice", clock)

	entry := CommandEntry{
		Command:    Command{Action: "pause"},
		SenderName: "Bob",
		Timestamp:  clock.Now().UnixMilli(),
	}
	assert.True(t, f.ShouldApply(entry))

	clock.Advance(CommandStaleAfter + time.Second)
	assert.False(t, f.ShouldApply(entry), "entries older than the staleness window must be dropped")
}

func TestCommandFilterDropsOwnName(t *testing.T) {
	clock := clockwork.NewFakeClock()
	f := NewCommandFilter("Alice", clock)

	entry := CommandEntry{
		Command:    Command{Action: "play"},
		SenderName: "Alice",
		Timestamp:  clock.Now().UnixMilli(),
	}
	assert.False(t, f.ShouldApply(entry), "own name must be filtered as a self-echo")

	// A filter without a local name only applies the staleness window.
	backlog := NewCommandFilter("", clock)
	assert.True(t, backlog.ShouldApply(entry))
}

func TestOfflineTransitions(t *testing.T) {
	prev := map[string]bool{"a": true, "b": true, "c": false}
	next := map[string]bool{"a": true, "b": false, "c": false}

	assert.Equal(t, []string{"b"}, OfflineTransitions(prev, next))
	assert.Empty(t, OfflineTransitions(next, next))

	// A uid missing from the new snapshot counts as offline.
	assert.Equal(t, []string{"a", "b"}, OfflineTransitions(map[string]bool{"a": true, "b": true}, map[string]bool{}))
}
