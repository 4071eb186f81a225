package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (c controller) writeToConn(ctx context.Context, conn *websocket.Conn, output *Output) error {
	if conn == nil {
		return nil
	}

	return conn.WriteJSON(output)
}

func (c controller) broadcast(ctx context.Context, conns []*websocket.Conn, output *Output) error {
	for _, conn := range conns {
		if err := conn.WriteJSON(output); err != nil {
			c.logger.DebugContext(ctx, "failed to write to conn", "error", err)
		}
	}

	return nil
}

func (c controller) writeError(ctx context.Context, conn *websocket.Conn, err error) error {
	return c.writeToConn(ctx, conn, &Output{
		Type: "ERROR",
		Payload: map[string]any{
			"error": err.Error(),
		},
	})
}

func (c controller) broadcastRoomUpdated(ctx context.Context, conns []*websocket.Conn, roomId string) error {
	roomState, err := c.roomService.GetRoomState(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to get room state: %w", err)
	}

	return c.broadcast(ctx, conns, &Output{
		Type: "ROOM_UPDATED",
		Payload: map[string]any{
			"room_state": roomState,
		},
	})
}

// sendJoinedRoom delivers the full snapshot plus the still-fresh command
// backlog, so a reconnecting client catches up without seeing anything
// stale.
func (c controller) sendJoinedRoom(ctx context.Context, conn *websocket.Conn, roomId string, identity map[string]any) error {
	roomState, err := c.roomService.GetRoomState(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to get room state: %w", err)
	}

	payload := map[string]any{
		"room_state": roomState,
	}
	for k, v := range identity {
		payload[k] = v
	}

	if err := c.writeToConn(ctx, conn, &Output{
		Type:    "JOINED_ROOM",
		Payload: payload,
	}); err != nil {
		return fmt.Errorf("failed to write joined room: %w", err)
	}

	entries, err := c.roomService.RecentCommands(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to get recent commands: %w", err)
	}
	for _, entry := range entries {
		if err := c.writeToConn(ctx, conn, &Output{
			Type: "COMMAND_RECEIVED",
			Payload: map[string]any{
				"entry": entry,
			},
		}); err != nil {
			return fmt.Errorf("failed to write command: %w", err)
		}
	}

	return nil
}
