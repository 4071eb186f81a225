package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/engine"
	"github.com/watchlock/server/internal/service/room"
)

type EmptyInput struct{}

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

func (c controller) handleUpdatePlayback(ctx context.Context, _ *websocket.Conn, input engine.PlaybackState) error {
	roomId := c.getRoomIdFromCtx(ctx)
	uid := c.getUidFromCtx(ctx)

	if input.TriggerSessionId == "" {
		input.TriggerSessionId = c.getSessionIdFromCtx(ctx)
	}

	publishResp, err := c.roomService.PublishPlayback(ctx, &room.PublishPlaybackParams{
		SenderUid: uid,
		RoomId:    roomId,
		Playback:  input,
	})
	if err != nil {
		return fmt.Errorf("failed to publish playback: %w", err)
	}

	// Everyone gets the update, publisher included; receivers drop their
	// own session's echo.
	if err := c.broadcast(ctx, publishResp.Conns, &Output{
		Type:    "PLAYBACK_UPDATED",
		Payload: publishResp.Playback,
	}); err != nil {
		return fmt.Errorf("failed to broadcast playback updated: %w", err)
	}

	return nil
}

type SendChatInput struct {
	Text string `json:"text" validate:"required,max=2000"`
}

func (c controller) handleSendChat(ctx context.Context, conn *websocket.Conn, input SendChatInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid input: %v", validationErrors)
	}

	roomId := c.getRoomIdFromCtx(ctx)
	uid := c.getUidFromCtx(ctx)

	text := strings.TrimSpace(input.Text)
	switch {
	case text == "/clear":
		return c.clearChat(ctx, roomId, uid)
	case text == "/movie":
		return c.movieMode(ctx, roomId, uid)
	case strings.HasPrefix(text, "/ai "):
		return c.askAssistantFromChat(ctx, roomId, uid, text)
	}

	sendChatResp, err := c.roomService.SendChat(ctx, &room.SendChatParams{
		SenderUid: uid,
		RoomId:    roomId,
		Text:      text,
	})
	if err != nil {
		return fmt.Errorf("failed to send chat: %w", err)
	}

	if err := c.broadcast(ctx, sendChatResp.Conns, &Output{
		Type:    "CHAT_MESSAGE",
		Payload: sendChatResp.Message,
	}); err != nil {
		return fmt.Errorf("failed to broadcast chat message: %w", err)
	}

	return nil
}

func (c controller) handleClearChat(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return c.clearChat(ctx, c.getRoomIdFromCtx(ctx), c.getUidFromCtx(ctx))
}

func (c controller) clearChat(ctx context.Context, roomId, uid string) error {
	clearChatResp, err := c.roomService.ClearChat(ctx, &room.ClearChatParams{
		SenderUid: uid,
		RoomId:    roomId,
	})
	if err != nil {
		return fmt.Errorf("failed to clear chat: %w", err)
	}

	if err := c.broadcast(ctx, clearChatResp.Conns, &Output{
		Type: "CHAT_CLEARED",
	}); err != nil {
		return fmt.Errorf("failed to broadcast chat cleared: %w", err)
	}

	return nil
}

func (c controller) movieMode(ctx context.Context, roomId, uid string) error {
	movieModeResp, err := c.roomService.MovieMode(ctx, &room.MovieModeParams{
		SenderUid: uid,
		RoomId:    roomId,
	})
	if err != nil {
		return fmt.Errorf("failed to enter movie mode: %w", err)
	}

	if err := c.broadcast(ctx, movieModeResp.Conns, &Output{
		Type: "CHAT_CLEARED",
	}); err != nil {
		return fmt.Errorf("failed to broadcast chat cleared: %w", err)
	}

	for _, entry := range movieModeResp.Entries {
		if err := c.broadcast(ctx, movieModeResp.Conns, &Output{
			Type: "COMMAND_RECEIVED",
			Payload: map[string]any{
				"entry": entry,
			},
		}); err != nil {
			return fmt.Errorf("failed to broadcast command: %w", err)
		}
	}

	return nil
}

func (c controller) askAssistantFromChat(ctx context.Context, roomId, uid, text string) error {
	// The /ai message itself goes to chat first, then the reply follows
	// under the assistant identity.
	sendChatResp, err := c.roomService.SendChat(ctx, &room.SendChatParams{
		SenderUid: uid,
		RoomId:    roomId,
		Text:      text,
	})
	if err != nil {
		return fmt.Errorf("failed to send chat: %w", err)
	}
	if err := c.broadcast(ctx, sendChatResp.Conns, &Output{
		Type:    "CHAT_MESSAGE",
		Payload: sendChatResp.Message,
	}); err != nil {
		return fmt.Errorf("failed to broadcast chat message: %w", err)
	}

	askResp, err := c.roomService.AskAssistant(ctx, &room.AskAssistantParams{
		SenderUid: uid,
		RoomId:    roomId,
		Prompt:    strings.TrimPrefix(text, "/ai "),
	})
	if err != nil {
		return fmt.Errorf("failed to ask assistant: %w", err)
	}

	for _, entry := range askResp.Entries {
		if err := c.broadcast(ctx, askResp.Conns, &Output{
			Type: "COMMAND_RECEIVED",
			Payload: map[string]any{
				"entry": entry,
			},
		}); err != nil {
			return fmt.Errorf("failed to broadcast command: %w", err)
		}
	}

	if askResp.ChatCleared {
		if err := c.broadcast(ctx, askResp.Conns, &Output{
			Type: "CHAT_CLEARED",
		}); err != nil {
			return fmt.Errorf("failed to broadcast chat cleared: %w", err)
		}
	}

	if askResp.KickedConn != nil {
		c.closeKicked(ctx, askResp.KickedConn)
		if err := c.broadcastRoomUpdated(ctx, askResp.Conns, roomId); err != nil {
			return fmt.Errorf("failed to broadcast room updated: %w", err)
		}
	}

	if err := c.broadcast(ctx, askResp.Conns, &Output{
		Type:    "CHAT_MESSAGE",
		Payload: askResp.Message,
	}); err != nil {
		return fmt.Errorf("failed to broadcast chat message: %w", err)
	}

	return nil
}

type SetTypingInput struct {
	Typing bool `json:"typing"`
}

func (c controller) handleSetTyping(ctx context.Context, _ *websocket.Conn, input SetTypingInput) error {
	setTypingResp, err := c.roomService.SetTyping(ctx, &room.SetTypingParams{
		SenderUid: c.getUidFromCtx(ctx),
		RoomId:    c.getRoomIdFromCtx(ctx),
		Typing:    input.Typing,
	})
	if err != nil {
		return fmt.Errorf("failed to set typing: %w", err)
	}

	if err := c.broadcast(ctx, setTypingResp.Conns, &Output{
		Type: "TYPING_UPDATED",
		Payload: map[string]any{
			"typers": setTypingResp.Typers,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast typing updated: %w", err)
	}

	return nil
}

func (c controller) handleDispatchCommand(ctx context.Context, _ *websocket.Conn, input engine.Command) error {
	dispatchResp, err := c.roomService.DispatchCommand(ctx, &room.DispatchCommandParams{
		SenderUid: c.getUidFromCtx(ctx),
		RoomId:    c.getRoomIdFromCtx(ctx),
		Command:   input,
	})
	if err != nil {
		return fmt.Errorf("failed to dispatch command: %w", err)
	}

	// Critical commands surface through the state they mutated; only
	// global commands ride the bus. Local-only commands never leave the
	// sender.
	if dispatchResp.KickedConn != nil {
		c.closeKicked(ctx, dispatchResp.KickedConn)
		if err := c.broadcastRoomUpdated(ctx, dispatchResp.Conns, c.getRoomIdFromCtx(ctx)); err != nil {
			return fmt.Errorf("failed to broadcast room updated: %w", err)
		}
	}

	if dispatchResp.ChatCleared {
		if err := c.broadcast(ctx, dispatchResp.Conns, &Output{
			Type: "CHAT_CLEARED",
		}); err != nil {
			return fmt.Errorf("failed to broadcast chat cleared: %w", err)
		}
	}

	if dispatchResp.Entry != nil {
		if err := c.broadcast(ctx, dispatchResp.Conns, &Output{
			Type: "COMMAND_RECEIVED",
			Payload: map[string]any{
				"entry": dispatchResp.Entry,
			},
		}); err != nil {
			return fmt.Errorf("failed to broadcast command: %w", err)
		}
	}

	return nil
}

type AdmitParticipantInput struct {
	Uid string `json:"uid" validate:"required"`
}

func (c controller) handleAdmitParticipant(ctx context.Context, _ *websocket.Conn, input AdmitParticipantInput) error {
	roomId := c.getRoomIdFromCtx(ctx)

	admitResp, err := c.roomService.AdmitParticipant(ctx, &room.AdmitParticipantParams{
		SenderUid: c.getUidFromCtx(ctx),
		RoomId:    roomId,
		TargetUid: input.Uid,
	})
	if err != nil {
		return fmt.Errorf("failed to admit participant: %w", err)
	}

	// The admitted client gets the full snapshot now that it may interact.
	if admitResp.TargetConn != nil {
		if err := c.sendJoinedRoom(ctx, admitResp.TargetConn, roomId, map[string]any{
			"room_id": roomId,
			"uid":     input.Uid,
		}); err != nil {
			c.logger.WarnContext(ctx, "failed to send joined room", "error", err)
		}
	}

	if err := c.broadcastRoomUpdated(ctx, admitResp.Conns, roomId); err != nil {
		return fmt.Errorf("failed to broadcast room updated: %w", err)
	}

	return nil
}

type DenyParticipantInput struct {
	Uid string `json:"uid" validate:"required"`
}

func (c controller) handleDenyParticipant(ctx context.Context, _ *websocket.Conn, input DenyParticipantInput) error {
	roomId := c.getRoomIdFromCtx(ctx)

	denyResp, err := c.roomService.DenyParticipant(ctx, &room.DenyParticipantParams{
		SenderUid: c.getUidFromCtx(ctx),
		RoomId:    roomId,
		TargetUid: input.Uid,
	})
	if err != nil {
		return fmt.Errorf("failed to deny participant: %w", err)
	}

	if denyResp.KickedConn != nil {
		c.closeKicked(ctx, denyResp.KickedConn)
	}

	if err := c.broadcastRoomUpdated(ctx, denyResp.Conns, roomId); err != nil {
		return fmt.Errorf("failed to broadcast room updated: %w", err)
	}

	return nil
}

type KickParticipantInput struct {
	Uid string `json:"uid" validate:"required"`
}

func (c controller) handleKickParticipant(ctx context.Context, _ *websocket.Conn, input KickParticipantInput) error {
	roomId := c.getRoomIdFromCtx(ctx)

	kickResp, err := c.roomService.KickParticipant(ctx, &room.KickParticipantParams{
		SenderUid: c.getUidFromCtx(ctx),
		RoomId:    roomId,
		TargetUid: input.Uid,
	})
	if err != nil {
		return fmt.Errorf("failed to kick participant: %w", err)
	}

	if kickResp.KickedConn != nil {
		c.closeKicked(ctx, kickResp.KickedConn)
	}

	if err := c.broadcastRoomUpdated(ctx, kickResp.Conns, roomId); err != nil {
		return fmt.Errorf("failed to broadcast room updated: %w", err)
	}

	return nil
}

func (c controller) closeKicked(ctx context.Context, conn *websocket.Conn) {
	if err := c.writeToConn(ctx, conn, &Output{Type: "KICKED"}); err != nil {
		c.logger.DebugContext(ctx, "failed to write kicked", "error", err)
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(4001, "kicked"))
}

type UpdateFileHashInput struct {
	FileHash string `json:"file_hash" validate:"required,max=128"`
}

func (c controller) handleUpdateFileHash(ctx context.Context, _ *websocket.Conn, input UpdateFileHashInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid input: %v", validationErrors)
	}

	roomId := c.getRoomIdFromCtx(ctx)

	updateResp, err := c.roomService.UpdateFileHash(ctx, &room.UpdateFileHashParams{
		SenderUid: c.getUidFromCtx(ctx),
		RoomId:    roomId,
		FileHash:  input.FileHash,
	})
	if err != nil {
		return fmt.Errorf("failed to update file hash: %w", err)
	}

	if err := c.broadcastRoomUpdated(ctx, updateResp.Conns, roomId); err != nil {
		return fmt.Errorf("failed to broadcast room updated: %w", err)
	}

	return nil
}

func (c controller) handleLeaveRoom(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	roomId := c.getRoomIdFromCtx(ctx)

	leaveResp, err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		RoomId: roomId,
		Uid:    c.getUidFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	if leaveResp.IsRoomDeleted {
		return c.broadcast(ctx, leaveResp.Conns, &Output{Type: "ROOM_CLOSED"})
	}

	return c.broadcastRoomUpdated(ctx, leaveResp.Conns, roomId)
}
