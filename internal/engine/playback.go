package engine

import "time"

type Status string

const (
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
)

// PlaybackState is the full playback record published on every local
// transition. It is always overwritten as a whole, never merged.
type PlaybackState struct {
	Status           Status  `json:"status"`
	Position         float64 `json:"position"`
	Speed            float64 `json:"speed"`
	TriggerSessionId string  `json:"trigger_session_id"`
	OriginTimestamp  int64   `json:"origin_timestamp"`
	Action           string  `json:"action,omitempty"`
	SenderName       string  `json:"sender_name,omitempty"`
	SenderUid        string  `json:"sender_uid,omitempty"`
}

// TargetPosition converts an absolute playback event into the position the
// local player should be at when the event is applied at the given wall-clock
// time. A playing state keeps advancing while the message is in flight, so a
// "play at 10s" received 300ms later lands at ~10.3s.
func TargetPosition(state PlaybackState, now time.Time) float64 {
	if state.Status != StatusPlaying {
		return state.Position
	}

	elapsed := float64(now.UnixMilli()-state.OriginTimestamp) / 1000

	return state.Position + elapsed
}
