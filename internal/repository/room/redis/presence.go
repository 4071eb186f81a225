package redis

import (
	"context"
	"fmt"

	"github.com/watchlock/server/internal/repository/room"
)

func (r repo) getPresenceKey(roomId string) string {
	return "room:" + roomId + ":presence"
}

func (r repo) SetPresence(ctx context.Context, params *room.SetPresenceParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	value := "0"
	if params.Online {
		value = "1"
	}

	pipe := r.rc.TxPipeline()
	presenceKey := r.getPresenceKey(params.RoomId)
	pipe.HSet(ctx, presenceKey, params.Uid, value)
	pipe.Expire(ctx, presenceKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}

	return nil
}

func (r repo) GetPresence(ctx context.Context, roomId string) (map[string]bool, error) {
	raws, err := r.rc.HGetAll(ctx, r.getPresenceKey(roomId)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	presence := make(map[string]bool, len(raws))
	for uid, raw := range raws {
		presence[uid] = raw == "1"
	}

	return presence, nil
}
