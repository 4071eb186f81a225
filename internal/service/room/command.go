package room

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/engine"
	"github.com/watchlock/server/internal/repository/room"
)

type DispatchCommandParams struct {
	SenderUid string
	RoomId    string
	Command   engine.Command
}

type DispatchCommandResponse struct {
	// Entry is nil unless the command is fanned out on the bus. Critical
	// commands never are: their effect reaches everyone through the room
	// state or chat broadcasts instead.
	Entry       *engine.CommandEntry
	KickedConn  *websocket.Conn
	ChatCleared bool
	Conns       []*websocket.Conn
}

// DispatchCommand routes one remote-control command by scope. Global
// commands are stored and fanned out to everyone; critical commands run
// their side effect directly (kick, clear); local-only commands are a
// no-op on the server side.
func (s service) DispatchCommand(ctx context.Context, params *DispatchCommandParams) (DispatchCommandResponse, error) {
	if _, err := s.ensureActive(ctx, params.RoomId, params.SenderUid); err != nil {
		return DispatchCommandResponse{}, err
	}

	switch engine.ActionScope(params.Command.Action) {
	case engine.ScopeLocal:
		return DispatchCommandResponse{}, nil
	case engine.ScopeCritical:
		return s.dispatchCritical(ctx, params)
	case engine.ScopeGlobal:
		return s.dispatchGlobal(ctx, params)
	default:
		return DispatchCommandResponse{}, ErrUnknownAction
	}
}

func (s service) dispatchCritical(ctx context.Context, params *DispatchCommandParams) (DispatchCommandResponse, error) {
	switch params.Command.Action {
	case "kick":
		resp, err := s.KickParticipant(ctx, &KickParticipantParams{
			SenderUid: params.SenderUid,
			RoomId:    params.RoomId,
			TargetUid: params.Command.Uid,
		})
		if err != nil {
			return DispatchCommandResponse{}, err
		}

		return DispatchCommandResponse{
			KickedConn: resp.KickedConn,
			Conns:      resp.Conns,
		}, nil
	case "clear":
		resp, err := s.ClearChat(ctx, &ClearChatParams{
			SenderUid: params.SenderUid,
			RoomId:    params.RoomId,
		})
		if err != nil {
			return DispatchCommandResponse{}, err
		}

		return DispatchCommandResponse{
			ChatCleared: true,
			Conns:       resp.Conns,
		}, nil
	default:
		return DispatchCommandResponse{}, ErrUnknownAction
	}
}

func (s service) dispatchGlobal(ctx context.Context, params *DispatchCommandParams) (DispatchCommandResponse, error) {
	params.Command.ClampLevels()

	entry, err := s.storeCommand(ctx, params)
	if err != nil {
		return DispatchCommandResponse{}, err
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return DispatchCommandResponse{}, err
	}

	return DispatchCommandResponse{
		Entry: entry,
		Conns: conns,
	}, nil
}

func (s service) storeCommand(ctx context.Context, params *DispatchCommandParams) (*engine.CommandEntry, error) {
	participant, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId: params.RoomId,
		Uid:    params.SenderUid,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	entry := engine.CommandEntry{
		Command:    params.Command,
		SenderName: participant.Name,
		SenderUid:  params.SenderUid,
		Timestamp:  s.clock.Now().UnixMilli(),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command entry: %w", err)
	}

	if err := s.roomRepo.AddCommand(ctx, &room.AddCommandParams{
		RoomId:    params.RoomId,
		Entry:     raw,
		Timestamp: entry.Timestamp,
	}); err != nil {
		return nil, fmt.Errorf("failed to add command: %w", err)
	}

	return &entry, nil
}

type MovieModeParams struct {
	SenderUid string
	RoomId    string
}

type MovieModeResponse struct {
	Entries []engine.CommandEntry
	Conns   []*websocket.Conn
}

// movieSequence is the fixed set of control commands the /movie chat
// command expands into: everyone's player goes fullscreen-ready at the
// start of the video with neutral levels.
func movieSequence() []engine.Command {
	one := 1.0
	zero := 0.0
	return []engine.Command{
		{Action: "volume", Value: one},
		{Action: "brightness", Value: one},
		{Action: "aspect", Value: "Fill"},
		{Action: "orient", Value: "landscape"},
		{Action: "seek", Time: &zero},
		{Action: "pause"},
		{Action: "fullscreen"},
		{Action: "speed", Value: one},
	}
}

// MovieMode expands the /movie chat command: it clears the chat and fans
// out the preset command sequence. The chat clear keeps its host check, so
// only the host can trigger movie mode. Local-only commands in the
// sequence, fullscreen among them, are fanned out too; each client applies
// them to itself on receipt.
func (s service) MovieMode(ctx context.Context, params *MovieModeParams) (MovieModeResponse, error) {
	if _, err := s.ClearChat(ctx, &ClearChatParams{
		SenderUid: params.SenderUid,
		RoomId:    params.RoomId,
	}); err != nil {
		return MovieModeResponse{}, err
	}

	entries := make([]engine.CommandEntry, 0, len(movieSequence()))
	for _, cmd := range movieSequence() {
		entry, err := s.storeCommand(ctx, &DispatchCommandParams{
			SenderUid: params.SenderUid,
			RoomId:    params.RoomId,
			Command:   cmd,
		})
		if err != nil {
			return MovieModeResponse{}, err
		}
		entries = append(entries, *entry)
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return MovieModeResponse{}, err
	}

	return MovieModeResponse{
		Entries: entries,
		Conns:   conns,
	}, nil
}

// RecentCommands returns the stored entries that are still fresh enough to
// replay to a client that just connected. The staleness cutoff is the same
// one clients apply on receipt; the name filter is left open here because
// the caller, not the room, knows whose echoes to drop.
func (s service) RecentCommands(ctx context.Context, roomId string) ([]engine.CommandEntry, error) {
	now := s.clock.Now()
	since := now.Add(-engine.CommandStaleAfter).UnixMilli()

	raws, err := s.roomRepo.GetCommandsSince(ctx, &room.GetCommandsSinceParams{
		RoomId: roomId,
		Since:  since,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get commands: %w", err)
	}

	filter := engine.NewCommandFilter("", s.clock)
	entries := make([]engine.CommandEntry, 0, len(raws))
	for _, raw := range raws {
		var entry engine.CommandEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			s.logger.WarnContext(ctx, "failed to unmarshal command entry", "error", err)
			continue
		}
		if filter.ShouldApply(entry) {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
