package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/engine"
	"github.com/watchlock/server/internal/repository/room"
)

type CreateRoomParams struct {
	RoomName string
	Username string
}

type CreateRoomResponse struct {
	RoomId      string
	Uid         string
	SessionId   string
	RejoinToken string
}

// CreateRoom creates the room record with the caller as host, already
// active, and an initial paused playback record at position 0.
func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	roomId := s.generator.GenerateRandomString(roomCodeLength)
	uid := uuid.NewString()
	sessionId := s.generator.GenerateRandomString(sessionIdLength)
	now := s.clock.Now().UnixMilli()

	if err := s.roomRepo.SetRoom(ctx, &room.SetRoomParams{
		RoomId:    roomId,
		Host:      uid,
		Name:      params.RoomName,
		CreatedAt: now,
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to set room: %w", err)
	}

	if err := s.roomRepo.SetParticipant(ctx, &room.SetParticipantParams{
		RoomId:   roomId,
		Uid:      uid,
		Name:     params.Username,
		Active:   true,
		Kicked:   false,
		JoinedAt: now,
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to set participant: %w", err)
	}

	if err := s.roomRepo.SetPlayback(ctx, &room.SetPlaybackParams{
		RoomId: roomId,
		Playback: toRepoPlayback(engine.PlaybackState{
			Status:           engine.StatusPaused,
			Position:         0,
			Speed:            1,
			TriggerSessionId: sessionId,
			OriginTimestamp:  now,
		}),
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to set playback: %w", err)
	}

	rejoinToken, err := s.generateRejoinToken(uid, roomId)
	if err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to generate rejoin token: %w", err)
	}

	s.logger.InfoContext(ctx, "room created", "room_id", roomId, "host", uid)

	return CreateRoomResponse{
		RoomId:      roomId,
		Uid:         uid,
		SessionId:   sessionId,
		RejoinToken: rejoinToken,
	}, nil
}

type JoinRoomParams struct {
	RoomId      string
	Username    string
	RejoinToken string
}

type JoinRoomResponse struct {
	Uid         string
	SessionId   string
	RejoinToken string
	Conns       []*websocket.Conn
}

// JoinRoom adds or re-merges a pending participant. Rejoining with the same
// identity is idempotent, except that a kicked identity is refused for good.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	roomId := NormalizeRoomCode(params.RoomId)
	if err := validateRoomCode(roomId); err != nil {
		return JoinRoomResponse{}, err
	}

	exists, err := s.roomRepo.RoomExists(ctx, roomId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to check if room exists: %w", err)
	}
	if !exists {
		return JoinRoomResponse{}, ErrRoomNotFound
	}

	uid := uuid.NewString()
	if params.RejoinToken != "" {
		if claims, err := s.parseRejoinToken(params.RejoinToken); err == nil && claims.RoomId == roomId {
			uid = claims.Uid
		}
	}

	existing, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId: roomId,
		Uid:    uid,
	})
	isRejoin := err == nil
	if isRejoin && existing.Kicked {
		return JoinRoomResponse{}, ErrParticipantKicked
	}
	if err != nil && !errors.Is(err, room.ErrParticipantNotFound) {
		return JoinRoomResponse{}, fmt.Errorf("failed to get participant: %w", err)
	}

	if !isRejoin {
		uids, err := s.roomRepo.GetParticipantUids(ctx, roomId)
		if err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to get participant uids: %w", err)
		}
		if s.membersLimit > 0 && len(uids) >= s.membersLimit {
			return JoinRoomResponse{}, ErrRoomIsFull
		}
	}

	// A rejoin keeps its admission state; a fresh join starts pending.
	if err := s.roomRepo.SetParticipant(ctx, &room.SetParticipantParams{
		RoomId:   roomId,
		Uid:      uid,
		Name:     params.Username,
		Active:   existing.Active,
		Kicked:   false,
		FileHash: existing.FileHash,
		JoinedAt: s.clock.Now().UnixMilli(),
	}); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to set participant: %w", err)
	}

	rejoinToken, err := s.generateRejoinToken(uid, roomId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to generate rejoin token: %w", err)
	}

	sessionId := s.generator.GenerateRandomString(sessionIdLength)

	conns, err := s.getConnsByRoomId(ctx, roomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	s.logger.InfoContext(ctx, "join requested", "room_id", roomId, "uid", uid)

	return JoinRoomResponse{
		Uid:         uid,
		SessionId:   sessionId,
		RejoinToken: rejoinToken,
		Conns:       conns,
	}, nil
}

// GetRoomState builds the full snapshot for a connecting client, with the
// playback position advanced to where the room should be right now.
func (s service) GetRoomState(ctx context.Context, roomId string) (RoomState, error) {
	r, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return RoomState{}, ErrRoomNotFound
		}
		return RoomState{}, fmt.Errorf("failed to get room: %w", err)
	}

	participants, err := s.getParticipants(ctx, roomId)
	if err != nil {
		return RoomState{}, err
	}

	playback, err := s.getAdjustedPlayback(ctx, roomId)
	if err != nil && !errors.Is(err, room.ErrPlaybackNotFound) {
		return RoomState{}, err
	}

	repoMessages, err := s.roomRepo.GetMessages(ctx, roomId)
	if err != nil {
		return RoomState{}, err
	}
	messages := make([]Message, 0, len(repoMessages))
	for _, message := range repoMessages {
		messages = append(messages, fromRepoMessage(message))
	}

	presence, err := s.roomRepo.GetPresence(ctx, roomId)
	if err != nil {
		return RoomState{}, err
	}

	var hostFileHash string
	for _, participant := range participants {
		if participant.Uid == r.Host {
			hostFileHash = participant.FileHash
			break
		}
	}

	return RoomState{
		Id:           roomId,
		Name:         r.Name,
		Host:         r.Host,
		HostFileHash: hostFileHash,
		Participants: participants,
		Playback:     playback,
		Messages:     messages,
		Presence:     presence,
	}, nil
}

func (s service) getParticipants(ctx context.Context, roomId string) ([]Participant, error) {
	uids, err := s.roomRepo.GetParticipantUids(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant uids: %w", err)
	}

	presence, err := s.roomRepo.GetPresence(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	participants := make([]Participant, 0, len(uids))
	for _, uid := range uids {
		participant, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
			RoomId: roomId,
			Uid:    uid,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get participant: %w", err)
		}

		participants = append(participants, Participant{
			Uid:      uid,
			Name:     participant.Name,
			Active:   participant.Active,
			Kicked:   participant.Kicked,
			FileHash: participant.FileHash,
			Online:   presence[uid],
		})
	}

	return participants, nil
}

type ConnectParticipantParams struct {
	Conn   *websocket.Conn
	RoomId string
	Uid    string
}

type ConnectParticipantResponse struct {
	Presence map[string]bool
	Conns    []*websocket.Conn
}

func (s service) ConnectParticipant(ctx context.Context, params *ConnectParticipantParams) (ConnectParticipantResponse, error) {
	if err := s.connRepo.Add(params.Conn, params.Uid); err != nil {
		return ConnectParticipantResponse{}, fmt.Errorf("failed to add connection: %w", err)
	}

	if err := s.roomRepo.SetPresence(ctx, &room.SetPresenceParams{
		RoomId: params.RoomId,
		Uid:    params.Uid,
		Online: true,
	}); err != nil {
		return ConnectParticipantResponse{}, fmt.Errorf("failed to set presence: %w", err)
	}

	presence, err := s.roomRepo.GetPresence(ctx, params.RoomId)
	if err != nil {
		return ConnectParticipantResponse{}, err
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return ConnectParticipantResponse{}, err
	}

	return ConnectParticipantResponse{
		Presence: presence,
		Conns:    conns,
	}, nil
}

type DisconnectParticipantParams struct {
	RoomId string
	Uid    string
}

type DisconnectParticipantResponse struct {
	Presence    map[string]bool
	OfflineUids []string
	Conns       []*websocket.Conn
}

// DisconnectParticipant is the write-false-on-disconnect half of the
// presence channel. The participant record itself stays so the client can
// rejoin with its token; only an explicit leave removes it.
func (s service) DisconnectParticipant(ctx context.Context, params *DisconnectParticipantParams) (DisconnectParticipantResponse, error) {
	prev, err := s.roomRepo.GetPresence(ctx, params.RoomId)
	if err != nil {
		return DisconnectParticipantResponse{}, err
	}

	if _, err := s.connRepo.RemoveByUid(params.Uid); err != nil {
		s.logger.DebugContext(ctx, "failed to remove connection", "error", err)
	}

	if err := s.roomRepo.SetPresence(ctx, &room.SetPresenceParams{
		RoomId: params.RoomId,
		Uid:    params.Uid,
		Online: false,
	}); err != nil {
		// Best-effort. Presence loss never blocks playback or chat.
		s.logger.WarnContext(ctx, "failed to set presence offline", "error", err)
	}

	next, err := s.roomRepo.GetPresence(ctx, params.RoomId)
	if err != nil {
		return DisconnectParticipantResponse{}, err
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return DisconnectParticipantResponse{}, err
	}

	return DisconnectParticipantResponse{
		Presence:    next,
		OfflineUids: engine.OfflineTransitions(prev, next),
		Conns:       conns,
	}, nil
}

type LeaveRoomParams struct {
	RoomId string
	Uid    string
}

type LeaveRoomResponse struct {
	IsRoomDeleted bool
	Conns         []*websocket.Conn
}

// LeaveRoom removes the caller's own participant entry. Removal is
// best-effort; a failure is logged and the teardown continues. The room is
// deleted when the last participant leaves.
func (s service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) (LeaveRoomResponse, error) {
	if err := s.roomRepo.RemoveParticipant(ctx, &room.RemoveParticipantParams{
		RoomId: params.RoomId,
		Uid:    params.Uid,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to remove participant", "error", err)
	}

	if _, err := s.connRepo.RemoveByUid(params.Uid); err != nil {
		s.logger.DebugContext(ctx, "failed to remove connection", "error", err)
	}

	uids, err := s.roomRepo.GetParticipantUids(ctx, params.RoomId)
	if err != nil {
		return LeaveRoomResponse{}, fmt.Errorf("failed to get participant uids: %w", err)
	}

	if len(uids) == 0 {
		if err := s.roomRepo.RemoveRoom(ctx, params.RoomId); err != nil {
			return LeaveRoomResponse{}, fmt.Errorf("failed to remove room: %w", err)
		}

		s.logger.InfoContext(ctx, "room deleted", "room_id", params.RoomId)

		return LeaveRoomResponse{IsRoomDeleted: true}, nil
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return LeaveRoomResponse{}, err
	}

	return LeaveRoomResponse{Conns: conns}, nil
}
