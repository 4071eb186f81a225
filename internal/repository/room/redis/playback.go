package redis

import (
	"context"
	"fmt"

	"github.com/watchlock/server/internal/repository/room"
)

func (r repo) getPlaybackKey(roomId string) string {
	return "room:" + roomId + ":playback"
}

// SetPlayback fully overwrites the room's playback record. A delete inside
// the same transaction keeps fields from a previous record from leaking into
// the new one.
func (r repo) SetPlayback(ctx context.Context, params *room.SetPlaybackParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	playbackKey := r.getPlaybackKey(params.RoomId)
	pipe.Del(ctx, playbackKey)
	pipe.HSet(ctx, playbackKey, params.Playback)
	pipe.Expire(ctx, playbackKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set playback: %w", err)
	}

	return nil
}

func (r repo) GetPlayback(ctx context.Context, roomId string) (room.Playback, error) {
	var playback room.Playback
	if err := r.rc.HGetAll(ctx, r.getPlaybackKey(roomId)).Scan(&playback); err != nil {
		return room.Playback{}, fmt.Errorf("failed to get playback: %w", err)
	}

	if playback.Status == "" {
		return room.Playback{}, room.ErrPlaybackNotFound
	}

	r.rc.Expire(ctx, r.getPlaybackKey(roomId), r.expireDuration)

	return playback, nil
}
