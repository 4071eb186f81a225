package controller

import (
	"context"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New(c.handleWSError)

	mux.Handle("ALIVE", wsrouter.Typed(c.handleAlive))

	// playback
	mux.Handle("UPDATE_PLAYBACK", wsrouter.Typed(c.handleUpdatePlayback))

	// chat
	mux.Handle("SEND_CHAT", wsrouter.Typed(c.handleSendChat))
	mux.Handle("CLEAR_CHAT", wsrouter.Typed(c.handleClearChat))
	mux.Handle("SET_TYPING", wsrouter.Typed(c.handleSetTyping))

	// commands
	mux.Handle("DISPATCH_COMMAND", wsrouter.Typed(c.handleDispatchCommand))

	// membership
	mux.Handle("ADMIT_PARTICIPANT", wsrouter.Typed(c.handleAdmitParticipant))
	mux.Handle("DENY_PARTICIPANT", wsrouter.Typed(c.handleDenyParticipant))
	mux.Handle("KICK_PARTICIPANT", wsrouter.Typed(c.handleKickParticipant))
	mux.Handle("UPDATE_FILE_HASH", wsrouter.Typed(c.handleUpdateFileHash))
	mux.Handle("LEAVE_ROOM", wsrouter.Typed(c.handleLeaveRoom))

	return mux
}

// handleWSError reports a failed message back to the sender and keeps the
// connection alive. Unauthorized and not-found results are normal protocol
// outcomes here, not server faults.
func (c controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) {
	c.logger.DebugContext(ctx, "websocket message failed",
		"message_type", wsrouter.GetMessageTypeFromCtx(ctx),
		"error", err,
	)

	if err := c.writeError(ctx, conn, err); err != nil {
		c.logger.DebugContext(ctx, "failed to write error", "error", err)
	}
}
