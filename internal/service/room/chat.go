package room

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/repository/room"
)

type SendChatParams struct {
	SenderUid string
	RoomId    string
	Text      string
}

type SendChatResponse struct {
	Message Message
	Conns   []*websocket.Conn
}

func (s service) SendChat(ctx context.Context, params *SendChatParams) (SendChatResponse, error) {
	participant, err := s.ensureActive(ctx, params.RoomId, params.SenderUid)
	if err != nil {
		return SendChatResponse{}, err
	}

	return s.addMessage(ctx, params.RoomId, params.Text, participant.Name, params.SenderUid)
}

// addMessage appends one chat message under the given identity. The
// assistant posts through here too, with its fixed uid and display name.
func (s service) addMessage(ctx context.Context, roomId, text, senderName, senderUid string) (SendChatResponse, error) {
	message := Message{
		Text:      text,
		Sender:    senderName,
		Uid:       senderUid,
		Timestamp: s.clock.Now().UnixMilli(),
	}

	if err := s.roomRepo.AddMessage(ctx, &room.AddMessageParams{
		RoomId: roomId,
		Message: room.Message{
			Text:      message.Text,
			Sender:    message.Sender,
			Uid:       message.Uid,
			Timestamp: message.Timestamp,
		},
	}); err != nil {
		return SendChatResponse{}, fmt.Errorf("failed to add message: %w", err)
	}

	conns, err := s.getConnsByRoomId(ctx, roomId)
	if err != nil {
		return SendChatResponse{}, err
	}

	return SendChatResponse{
		Message: message,
		Conns:   conns,
	}, nil
}

type ClearChatParams struct {
	SenderUid string
	RoomId    string
}

type ClearChatResponse struct {
	Conns []*websocket.Conn
}

// ClearChat wipes the room's message history. Host only.
func (s service) ClearChat(ctx context.Context, params *ClearChatParams) (ClearChatResponse, error) {
	if err := s.checkIfHost(ctx, params.RoomId, params.SenderUid); err != nil {
		return ClearChatResponse{}, err
	}

	if err := s.roomRepo.ClearMessages(ctx, params.RoomId); err != nil {
		return ClearChatResponse{}, fmt.Errorf("failed to clear messages: %w", err)
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return ClearChatResponse{}, err
	}

	return ClearChatResponse{Conns: conns}, nil
}
