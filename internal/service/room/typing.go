package room

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/repository/room"
)

type SetTypingParams struct {
	SenderUid string
	RoomId    string
	Typing    bool
}

type SetTypingResponse struct {
	Typers []string
	Conns  []*websocket.Conn
}

// SetTyping records or clears the sender's typing marker and returns the
// names still considered typing. Markers older than typingExpiry are
// ignored on read, so an abandoned marker ages out on its own.
func (s service) SetTyping(ctx context.Context, params *SetTypingParams) (SetTypingResponse, error) {
	participant, err := s.ensureActive(ctx, params.RoomId, params.SenderUid)
	if err != nil {
		return SetTypingResponse{}, err
	}

	if params.Typing {
		if err := s.roomRepo.SetTyping(ctx, &room.SetTypingParams{
			RoomId:    params.RoomId,
			Uid:       params.SenderUid,
			Name:      participant.Name,
			Timestamp: s.clock.Now().UnixMilli(),
		}); err != nil {
			return SetTypingResponse{}, fmt.Errorf("failed to set typing: %w", err)
		}
	} else {
		if err := s.roomRepo.RemoveTyping(ctx, &room.RemoveTypingParams{
			RoomId: params.RoomId,
			Uid:    params.SenderUid,
		}); err != nil {
			return SetTypingResponse{}, fmt.Errorf("failed to remove typing: %w", err)
		}
	}

	typers, err := s.getTypers(ctx, params.RoomId)
	if err != nil {
		return SetTypingResponse{}, err
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return SetTypingResponse{}, err
	}

	return SetTypingResponse{
		Typers: typers,
		Conns:  conns,
	}, nil
}

func (s service) getTypers(ctx context.Context, roomId string) ([]string, error) {
	entries, err := s.roomRepo.GetTyping(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to get typing: %w", err)
	}

	cutoff := s.clock.Now().Add(-typingExpiry).UnixMilli()
	typers := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Timestamp >= cutoff {
			typers = append(typers, entry.Name)
		}
	}

	return typers, nil
}
