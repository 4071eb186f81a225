package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/watchlock/server/internal/repository/room"
)

func (r repo) getMessagesKey(roomId string) string {
	return "room:" + roomId + ":messages"
}

func (r repo) AddMessage(ctx context.Context, params *room.AddMessageParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	raw, err := json.Marshal(params.Message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	pipe := r.rc.TxPipeline()
	messagesKey := r.getMessagesKey(params.RoomId)
	pipe.ZAdd(ctx, messagesKey, redis.Z{Score: float64(params.Message.Timestamp), Member: raw})
	pipe.Expire(ctx, messagesKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}

	return nil
}

// GetMessages returns messages ordered by timestamp.
func (r repo) GetMessages(ctx context.Context, roomId string) ([]room.Message, error) {
	raws, err := r.rc.ZRange(ctx, r.getMessagesKey(roomId), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	messages := make([]room.Message, 0, len(raws))
	for _, raw := range raws {
		var message room.Message
		if err := json.Unmarshal([]byte(raw), &message); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}

		messages = append(messages, message)
	}

	return messages, nil
}

// ClearMessages wipes the chat along with the pending command backlog; a
// clear is the one bulk deletion either log gets.
func (r repo) ClearMessages(ctx context.Context, roomId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	if err := r.rc.Del(ctx, r.getMessagesKey(roomId), r.getCommandsKey(roomId)).Err(); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	return nil
}
