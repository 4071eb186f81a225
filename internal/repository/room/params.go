package room

type SetRoomParams struct {
	RoomId    string
	Host      string
	Name      string
	CreatedAt int64
}

type SetParticipantParams struct {
	RoomId   string
	Uid      string
	Name     string
	Active   bool
	Kicked   bool
	FileHash string
	JoinedAt int64
}

type GetParticipantParams struct {
	RoomId string
	Uid    string
}

type UpdateParticipantActiveParams struct {
	RoomId string
	Uid    string
	Active bool
}

type UpdateParticipantKickedParams struct {
	RoomId string
	Uid    string
	Kicked bool
}

type UpdateParticipantFileHashParams struct {
	RoomId   string
	Uid      string
	FileHash string
}

type RemoveParticipantParams struct {
	RoomId string
	Uid    string
}

type SetPlaybackParams struct {
	RoomId   string
	Playback Playback
}

type AddMessageParams struct {
	RoomId  string
	Message Message
}

type AddCommandParams struct {
	RoomId    string
	Entry     []byte
	Timestamp int64
}

type GetCommandsSinceParams struct {
	RoomId string
	Since  int64
}

type SetTypingParams struct {
	RoomId    string
	Uid       string
	Name      string
	Timestamp int64
}

type RemoveTypingParams struct {
	RoomId string
	Uid    string
}

type SetPresenceParams struct {
	RoomId string
	Uid    string
	Online bool
}
