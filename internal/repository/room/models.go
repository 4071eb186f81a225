package room

type Room struct {
	Host      string `redis:"host"`
	Name      string `redis:"name"`
	CreatedAt int64  `redis:"created_at"`
}

type Participant struct {
	Name     string `redis:"name"`
	Active   bool   `redis:"active"`
	Kicked   bool   `redis:"kicked"`
	FileHash string `redis:"file_hash"`
}

// Playback is the room's shared playback record. It is overwritten as a
// whole on every publish, never merged field by field.
type Playback struct {
	Status           string  `redis:"status"`
	Position         float64 `redis:"position"`
	Speed            float64 `redis:"speed"`
	TriggerSessionId string  `redis:"trigger_session_id"`
	OriginTimestamp  int64   `redis:"origin_timestamp"`
	Action           string  `redis:"action"`
	SenderName       string  `redis:"sender_name"`
	SenderUid        string  `redis:"sender_uid"`
}

type Message struct {
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Uid       string `json:"uid"`
	Timestamp int64  `json:"timestamp"`
}

type Typing struct {
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}
