package redis

import (
	"context"
	"fmt"

	"github.com/watchlock/server/internal/repository/room"
)

func (r repo) getRoomKey(roomId string) string {
	return "room:" + roomId
}

func (r repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	roomKey := r.getRoomKey(params.RoomId)
	pipe.HSet(ctx, roomKey, room.Room{
		Host:      params.Host,
		Name:      params.Name,
		CreatedAt: params.CreatedAt,
	})
	pipe.Expire(ctx, roomKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (r repo) RoomExists(ctx context.Context, roomId string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getRoomKey(roomId)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if room exists: %w", err)
	}

	return res > 0, nil
}

func (r repo) GetRoom(ctx context.Context, roomId string) (room.Room, error) {
	var res room.Room
	if err := r.rc.HGetAll(ctx, r.getRoomKey(roomId)).Scan(&res); err != nil {
		return room.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	if res.Host == "" {
		return room.Room{}, room.ErrRoomNotFound
	}

	r.rc.Expire(ctx, r.getRoomKey(roomId), r.expireDuration)

	return res, nil
}

// RemoveRoom deletes the room record and every collection scoped under it.
// Clients treat the deletion as "room closed".
func (r repo) RemoveRoom(ctx context.Context, roomId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)

	uids, err := r.GetParticipantUids(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to get participant uids: %w", err)
	}

	keys := []string{
		r.getRoomKey(roomId),
		r.getParticipantListKey(roomId),
		r.getPlaybackKey(roomId),
		r.getMessagesKey(roomId),
		r.getCommandsKey(roomId),
		r.getTypingKey(roomId),
		r.getPresenceKey(roomId),
	}
	for _, uid := range uids {
		keys = append(keys, r.getParticipantKey(roomId, uid))
	}

	if err := r.rc.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	return nil
}
