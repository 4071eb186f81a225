package room

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/engine"
	"github.com/watchlock/server/internal/repository/room"
)

type PublishPlaybackParams struct {
	SenderUid string
	RoomId    string
	Playback  engine.PlaybackState
}

type PublishPlaybackResponse struct {
	Playback engine.PlaybackState
	Conns    []*websocket.Conn
}

// PublishPlayback overwrites the room's playback record with the sender's
// transition and returns it for fan-out to every connection in the room,
// the publisher included. Receivers drop their own echoes by session id.
func (s service) PublishPlayback(ctx context.Context, params *PublishPlaybackParams) (PublishPlaybackResponse, error) {
	if _, err := s.ensureActive(ctx, params.RoomId, params.SenderUid); err != nil {
		return PublishPlaybackResponse{}, err
	}

	playback := params.Playback
	playback.Position = math.Max(0, playback.Position)
	if playback.Speed <= 0 {
		playback.Speed = 1
	}
	if playback.OriginTimestamp == 0 {
		playback.OriginTimestamp = s.clock.Now().UnixMilli()
	}
	playback.SenderUid = params.SenderUid

	if err := s.roomRepo.SetPlayback(ctx, &room.SetPlaybackParams{
		RoomId:   params.RoomId,
		Playback: toRepoPlayback(playback),
	}); err != nil {
		return PublishPlaybackResponse{}, fmt.Errorf("failed to set playback: %w", err)
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return PublishPlaybackResponse{}, err
	}

	return PublishPlaybackResponse{
		Playback: playback,
		Conns:    conns,
	}, nil
}

// getAdjustedPlayback reads the stored playback record and advances the
// position to where the room should be at this instant, so a late joiner
// lands in sync instead of at the last transition point.
func (s service) getAdjustedPlayback(ctx context.Context, roomId string) (engine.PlaybackState, error) {
	repoPlayback, err := s.roomRepo.GetPlayback(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrPlaybackNotFound) {
			return engine.PlaybackState{}, err
		}
		return engine.PlaybackState{}, fmt.Errorf("failed to get playback: %w", err)
	}

	now := s.clock.Now()
	playback := fromRepoPlayback(repoPlayback)
	playback.Position = engine.TargetPosition(playback, now)
	playback.OriginTimestamp = now.UnixMilli()

	return playback, nil
}
