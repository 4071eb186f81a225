package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/watchlock/server/internal/repository/room"
)

func (r repo) getTypingKey(roomId string) string {
	return "room:" + roomId + ":typing"
}

func (r repo) SetTyping(ctx context.Context, params *room.SetTypingParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	raw, err := json.Marshal(room.Typing{
		Name:      params.Name,
		Timestamp: params.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal typing: %w", err)
	}

	pipe := r.rc.TxPipeline()
	typingKey := r.getTypingKey(params.RoomId)
	pipe.HSet(ctx, typingKey, params.Uid, raw)
	pipe.Expire(ctx, typingKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set typing: %w", err)
	}

	return nil
}

func (r repo) RemoveTyping(ctx context.Context, params *room.RemoveTypingParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	if err := r.rc.HDel(ctx, r.getTypingKey(params.RoomId), params.Uid).Err(); err != nil {
		return fmt.Errorf("failed to remove typing: %w", err)
	}

	return nil
}

func (r repo) GetTyping(ctx context.Context, roomId string) (map[string]room.Typing, error) {
	raws, err := r.rc.HGetAll(ctx, r.getTypingKey(roomId)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get typing: %w", err)
	}

	typers := make(map[string]room.Typing, len(raws))
	for uid, raw := range raws {
		var typing room.Typing
		if err := json.Unmarshal([]byte(raw), &typing); err != nil {
			return nil, fmt.Errorf("failed to unmarshal typing: %w", err)
		}

		typers[uid] = typing
	}

	return typers, nil
}
