package room

import (
	"github.com/watchlock/server/internal/engine"
	"github.com/watchlock/server/internal/repository/room"
)

type Participant struct {
	Uid      string `json:"uid"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Kicked   bool   `json:"kicked"`
	FileHash string `json:"file_hash,omitempty"`
	Online   bool   `json:"online"`
}

type Message struct {
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Uid       string `json:"uid"`
	Timestamp int64  `json:"timestamp"`
}

// RoomState is the full snapshot sent to a connecting client. Playback is
// served skew-adjusted so a late joiner lands near the room's live position.
type RoomState struct {
	Id           string               `json:"id"`
	Name         string               `json:"name"`
	Host         string               `json:"host"`
	HostFileHash string               `json:"host_file_hash,omitempty"`
	Participants []Participant        `json:"participants"`
	Playback     engine.PlaybackState `json:"playback"`
	Messages     []Message            `json:"messages"`
	Presence     map[string]bool      `json:"presence"`
}

func toRepoPlayback(state engine.PlaybackState) room.Playback {
	return room.Playback{
		Status:           string(state.Status),
		Position:         state.Position,
		Speed:            state.Speed,
		TriggerSessionId: state.TriggerSessionId,
		OriginTimestamp:  state.OriginTimestamp,
		Action:           state.Action,
		SenderName:       state.SenderName,
		SenderUid:        state.SenderUid,
	}
}

func fromRepoPlayback(playback room.Playback) engine.PlaybackState {
	return engine.PlaybackState{
		Status:           engine.Status(playback.Status),
		Position:         playback.Position,
		Speed:            playback.Speed,
		TriggerSessionId: playback.TriggerSessionId,
		OriginTimestamp:  playback.OriginTimestamp,
		Action:           playback.Action,
		SenderName:       playback.SenderName,
		SenderUid:        playback.SenderUid,
	}
}

func fromRepoMessage(message room.Message) Message {
	return Message{
		Text:      message.Text,
		Sender:    message.Sender,
		Uid:       message.Uid,
		Timestamp: message.Timestamp,
	}
}
