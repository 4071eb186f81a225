package room

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomAlreadyExists   = errors.New("room already exists")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrPlaybackNotFound    = errors.New("playback not found")
)
