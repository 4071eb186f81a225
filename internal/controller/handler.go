package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/watchlock/server/internal/service/room"
)

type createRoomQuery struct {
	RoomName string `json:"name" validate:"required,max=64"`
	Username string `json:"username" validate:"required,max=16"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	query := createRoomQuery{
		RoomName: r.URL.Query().Get("name"),
		Username: r.URL.Query().Get("username"),
	}
	if validationErrors, ok := c.validate.Validate(query); !ok {
		c.logger.DebugContext(r.Context(), "invalid create room query", "errors", validationErrors)
		http.Error(w, "invalid query params", http.StatusBadRequest)
		return
	}

	createRoomResp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		RoomName: query.RoomName,
		Username: query.Username,
	})
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to create room", "error", err)
		http.Error(w, "failed to create room", http.StatusInternalServerError)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer c.disconnect(r.Context(), createRoomResp.RoomId, createRoomResp.Uid)

	if _, err := c.roomService.ConnectParticipant(r.Context(), &room.ConnectParticipantParams{
		Conn:   conn,
		RoomId: createRoomResp.RoomId,
		Uid:    createRoomResp.Uid,
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to connect participant", "error", err)
		return
	}

	if err := c.sendJoinedRoom(r.Context(), conn, createRoomResp.RoomId, map[string]any{
		"room_id":      createRoomResp.RoomId,
		"uid":          createRoomResp.Uid,
		"session_id":   createRoomResp.SessionId,
		"rejoin_token": createRoomResp.RejoinToken,
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to send joined room", "error", err)
		return
	}

	ctx := context.WithValue(r.Context(), roomIdCtxKey, createRoomResp.RoomId)
	ctx = context.WithValue(ctx, uidCtxKey, createRoomResp.Uid)
	ctx = context.WithValue(ctx, sessionIdCtxKey, createRoomResp.SessionId)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(r.Context(), "failed to serve conn", "error", err)
		return
	}
}

type joinRoomQuery struct {
	Username string `json:"username" validate:"required,max=16"`
}

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	if roomId == "" {
		c.logger.DebugContext(r.Context(), "empty room id")
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	query := joinRoomQuery{
		Username: r.URL.Query().Get("username"),
	}
	if validationErrors, ok := c.validate.Validate(query); !ok {
		c.logger.DebugContext(r.Context(), "invalid join room query", "errors", validationErrors)
		http.Error(w, "invalid query params", http.StatusBadRequest)
		return
	}

	joinRoomResp, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		RoomId:      roomId,
		Username:    query.Username,
		RejoinToken: r.URL.Query().Get("rejoin-token"),
	})
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to join room", "error", err)
		http.Error(w, err.Error(), joinErrorStatus(err))
		return
	}
	roomId = room.NormalizeRoomCode(roomId)

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer c.disconnect(r.Context(), roomId, joinRoomResp.Uid)

	connectResp, err := c.roomService.ConnectParticipant(r.Context(), &room.ConnectParticipantParams{
		Conn:   conn,
		RoomId: roomId,
		Uid:    joinRoomResp.Uid,
	})
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to connect participant", "error", err)
		return
	}

	if err := c.writeToConn(r.Context(), conn, &Output{
		Type: "JOIN_REQUESTED",
		Payload: map[string]any{
			"room_id":      roomId,
			"uid":          joinRoomResp.Uid,
			"session_id":   joinRoomResp.SessionId,
			"rejoin_token": joinRoomResp.RejoinToken,
		},
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to write join requested", "error", err)
		return
	}

	// The host sees the pending participant through ROOM_UPDATED and
	// decides to admit or deny.
	if err := c.broadcastRoomUpdated(r.Context(), connectResp.Conns, roomId); err != nil {
		c.logger.WarnContext(r.Context(), "failed to broadcast room updated", "error", err)
	}
	if err := c.broadcast(r.Context(), connectResp.Conns, &Output{
		Type: "PRESENCE_UPDATED",
		Payload: map[string]any{
			"presence": connectResp.Presence,
		},
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to broadcast presence updated", "error", err)
	}

	ctx := context.WithValue(r.Context(), roomIdCtxKey, roomId)
	ctx = context.WithValue(ctx, uidCtxKey, joinRoomResp.Uid)
	ctx = context.WithValue(ctx, sessionIdCtxKey, joinRoomResp.SessionId)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(r.Context(), "failed to serve conn", "error", err)
		return
	}
}

func joinErrorStatus(err error) int {
	switch err {
	case room.ErrRoomNotFound, room.ErrInvalidRoomCode:
		return http.StatusNotFound
	case room.ErrParticipantKicked:
		return http.StatusForbidden
	case room.ErrRoomIsFull:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (c controller) disconnect(ctx context.Context, roomId, uid string) {
	disconnectResp, err := c.roomService.DisconnectParticipant(ctx, &room.DisconnectParticipantParams{
		RoomId: roomId,
		Uid:    uid,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to disconnect participant", "error", err)
		return
	}

	if err := c.broadcast(ctx, disconnectResp.Conns, &Output{
		Type: "PRESENCE_UPDATED",
		Payload: map[string]any{
			"presence":     disconnectResp.Presence,
			"offline_uids": disconnectResp.OfflineUids,
		},
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to broadcast presence updated", "error", err)
	}
}
