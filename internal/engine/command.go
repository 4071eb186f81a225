package engine

import (
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"
)

// CommandStaleAfter is how old a received command entry may be before it is
// silently dropped. Keeps a reconnecting client from replaying a backlog.
const CommandStaleAfter = 10 * time.Second

type Scope int

const (
	ScopeUnknown Scope = iota
	// ScopeGlobal commands are applied locally and broadcast so every peer
	// applies the same change.
	ScopeGlobal
	// ScopeCritical commands mutate shared room/chat state and require host
	// authority. They are never broadcast as command entries.
	ScopeCritical
	// ScopeLocal commands only affect the invoking client.
	ScopeLocal
)

var (
	globalActions = map[string]struct{}{
		"brightness": {},
		"volume":     {},
		"aspect":     {},
		"orient":     {},
		"lock":       {},
		"sidebar":    {},
		"play":       {},
		"pause":      {},
		"seek":       {},
		"speed":      {},
		"subtitle":   {},
	}
	criticalActions = map[string]struct{}{
		"kick":  {},
		"clear": {},
	}
	localActions = map[string]struct{}{
		"logout":     {},
		"copy":       {},
		"fullscreen": {},
	}
)

func ActionScope(action string) Scope {
	if _, ok := globalActions[action]; ok {
		return ScopeGlobal
	}
	if _, ok := criticalActions[action]; ok {
		return ScopeCritical
	}
	if _, ok := localActions[action]; ok {
		return ScopeLocal
	}

	return ScopeUnknown
}

// Command is a single control action. Value holds the action-specific
// parameter and may decode to a number, string or bool.
type Command struct {
	Action string   `json:"action"`
	Value  any      `json:"value,omitempty"`
	Time   *float64 `json:"time,omitempty"`
	Delta  *float64 `json:"delta,omitempty"`
	Index  *int     `json:"index,omitempty"`
	Uid    string   `json:"uid,omitempty"`
}

func (c Command) FloatValue() (float64, bool) {
	switch v := c.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ClampLevels clamps volume and brightness parameters to [0,1]. Out-of-range
// input is not an error.
func (c *Command) ClampLevels() {
	if c.Action != "volume" && c.Action != "brightness" {
		return
	}

	v, ok := c.FloatValue()
	if !ok {
		return
	}

	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	c.Value = v
}

// CommandEntry is an append-only fan-out log entry.
type CommandEntry struct {
	Command    Command `json:"command"`
	SenderName string  `json:"sender_name"`
	SenderUid  string  `json:"sender_uid"`
	Timestamp  int64   `json:"timestamp"`
}

// CommandFilter decides whether a received command entry should be applied
// locally. Entries older than the staleness window are dropped, as are
// entries carrying the local user's own display name.
type CommandFilter struct {
	localName string
	clock     clockwork.Clock
}

func NewCommandFilter(localName string, clock clockwork.Clock) *CommandFilter {
	return &CommandFilter{
		localName: localName,
		clock:     clock,
	}
}

func (f CommandFilter) ShouldApply(entry CommandEntry) bool {
	if f.clock.Now().UnixMilli()-entry.Timestamp >= CommandStaleAfter.Milliseconds() {
		return false
	}

	if f.localName != "" && entry.SenderName == f.localName {
		return false
	}

	return true
}
