package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/repository/room"
)

type AdmitParticipantParams struct {
	SenderUid string
	RoomId    string
	TargetUid string
}

type AdmitParticipantResponse struct {
	Participants []Participant
	// TargetConn is the admitted participant's connection, nil if they are
	// not currently connected. The caller sends them the room snapshot.
	TargetConn *websocket.Conn
	Conns      []*websocket.Conn
}

// AdmitParticipant flips a pending participant to active. Host only. A
// kicked identity can never be admitted back, even by the host.
func (s service) AdmitParticipant(ctx context.Context, params *AdmitParticipantParams) (AdmitParticipantResponse, error) {
	if err := s.checkIfHost(ctx, params.RoomId, params.SenderUid); err != nil {
		return AdmitParticipantResponse{}, err
	}

	target, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId: params.RoomId,
		Uid:    params.TargetUid,
	})
	if err != nil {
		if errors.Is(err, room.ErrParticipantNotFound) {
			return AdmitParticipantResponse{}, ErrParticipantNotFound
		}
		return AdmitParticipantResponse{}, fmt.Errorf("failed to get participant: %w", err)
	}
	if target.Kicked {
		return AdmitParticipantResponse{}, ErrParticipantKicked
	}

	if err := s.roomRepo.UpdateParticipantActive(ctx, &room.UpdateParticipantActiveParams{
		RoomId: params.RoomId,
		Uid:    params.TargetUid,
		Active: true,
	}); err != nil {
		return AdmitParticipantResponse{}, fmt.Errorf("failed to update participant active: %w", err)
	}

	s.logger.InfoContext(ctx, "participant admitted", "room_id", params.RoomId, "uid", params.TargetUid)

	resp, err := s.membershipResponse(ctx, params.RoomId)
	if err != nil {
		return AdmitParticipantResponse{}, err
	}
	resp.TargetConn, _ = s.connRepo.GetConn(params.TargetUid)

	return resp, nil
}

type DenyParticipantParams struct {
	SenderUid string
	RoomId    string
	TargetUid string
}

// DenyParticipant refuses a pending join request. Denial is terminal the
// same way a kick is: the identity is marked kicked so it cannot re-request.
func (s service) DenyParticipant(ctx context.Context, params *DenyParticipantParams) (KickParticipantResponse, error) {
	return s.KickParticipant(ctx, &KickParticipantParams{
		SenderUid: params.SenderUid,
		RoomId:    params.RoomId,
		TargetUid: params.TargetUid,
	})
}

type KickParticipantParams struct {
	SenderUid string
	RoomId    string
	TargetUid string
}

type KickParticipantResponse struct {
	Participants []Participant
	KickedConn   *websocket.Conn
	Conns        []*websocket.Conn
}

// KickParticipant marks the target kicked and inactive. The record is kept,
// not removed, so the kicked flag outlives the connection and a rejoin
// attempt with the same token is refused.
func (s service) KickParticipant(ctx context.Context, params *KickParticipantParams) (KickParticipantResponse, error) {
	if err := s.checkIfHost(ctx, params.RoomId, params.SenderUid); err != nil {
		return KickParticipantResponse{}, err
	}
	if params.TargetUid == params.SenderUid {
		return KickParticipantResponse{}, ErrUnauthorized
	}

	if _, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId: params.RoomId,
		Uid:    params.TargetUid,
	}); err != nil {
		if errors.Is(err, room.ErrParticipantNotFound) {
			return KickParticipantResponse{}, ErrParticipantNotFound
		}
		return KickParticipantResponse{}, fmt.Errorf("failed to get participant: %w", err)
	}

	if err := s.roomRepo.UpdateParticipantKicked(ctx, &room.UpdateParticipantKickedParams{
		RoomId: params.RoomId,
		Uid:    params.TargetUid,
		Kicked: true,
	}); err != nil {
		return KickParticipantResponse{}, fmt.Errorf("failed to update participant kicked: %w", err)
	}
	if err := s.roomRepo.UpdateParticipantActive(ctx, &room.UpdateParticipantActiveParams{
		RoomId: params.RoomId,
		Uid:    params.TargetUid,
		Active: false,
	}); err != nil {
		return KickParticipantResponse{}, fmt.Errorf("failed to update participant active: %w", err)
	}

	kickedConn, _ := s.connRepo.GetConn(params.TargetUid)

	s.logger.InfoContext(ctx, "participant kicked", "room_id", params.RoomId, "uid", params.TargetUid)

	resp, err := s.membershipResponse(ctx, params.RoomId)
	if err != nil {
		return KickParticipantResponse{}, err
	}

	return KickParticipantResponse{
		Participants: resp.Participants,
		KickedConn:   kickedConn,
		Conns:        resp.Conns,
	}, nil
}

type UpdateFileHashParams struct {
	SenderUid string
	RoomId    string
	FileHash  string
}

type UpdateFileHashResponse struct {
	Participants []Participant
	Conns        []*websocket.Conn
}

// UpdateFileHash records the hash of the video file the participant has
// loaded, so clients can tell whether everyone is watching the same file.
func (s service) UpdateFileHash(ctx context.Context, params *UpdateFileHashParams) (UpdateFileHashResponse, error) {
	if _, err := s.ensureActive(ctx, params.RoomId, params.SenderUid); err != nil {
		return UpdateFileHashResponse{}, err
	}

	if err := s.roomRepo.UpdateParticipantFileHash(ctx, &room.UpdateParticipantFileHashParams{
		RoomId:   params.RoomId,
		Uid:      params.SenderUid,
		FileHash: params.FileHash,
	}); err != nil {
		return UpdateFileHashResponse{}, fmt.Errorf("failed to update participant file hash: %w", err)
	}

	resp, err := s.membershipResponse(ctx, params.RoomId)
	if err != nil {
		return UpdateFileHashResponse{}, err
	}

	return UpdateFileHashResponse{
		Participants: resp.Participants,
		Conns:        resp.Conns,
	}, nil
}

func (s service) membershipResponse(ctx context.Context, roomId string) (AdmitParticipantResponse, error) {
	participants, err := s.getParticipants(ctx, roomId)
	if err != nil {
		return AdmitParticipantResponse{}, err
	}

	conns, err := s.getConnsByRoomId(ctx, roomId)
	if err != nil {
		return AdmitParticipantResponse{}, err
	}

	return AdmitParticipantResponse{
		Participants: participants,
		Conns:        conns,
	}, nil
}
