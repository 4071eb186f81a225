package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/watchlock/server/internal/repository/room"
)

func (r repo) getParticipantKey(roomId, uid string) string {
	return "room:" + roomId + ":participant:" + uid
}

func (r repo) getParticipantListKey(roomId string) string {
	return "room:" + roomId + ":participants"
}

func (r repo) SetParticipant(ctx context.Context, params *room.SetParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	participantKey := r.getParticipantKey(params.RoomId, params.Uid)
	pipe.HSet(ctx, participantKey, room.Participant{
		Name:     params.Name,
		Active:   params.Active,
		Kicked:   params.Kicked,
		FileHash: params.FileHash,
	})
	pipe.Expire(ctx, participantKey, r.expireDuration)

	listKey := r.getParticipantListKey(params.RoomId)
	// NX keeps the original join order on re-merge.
	pipe.ZAddNX(ctx, listKey, redis.Z{Score: float64(params.JoinedAt), Member: params.Uid})
	pipe.Expire(ctx, listKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set participant: %w", err)
	}

	return nil
}

func (r repo) GetParticipant(ctx context.Context, params *room.GetParticipantParams) (room.Participant, error) {
	var participant room.Participant
	if err := r.rc.HGetAll(ctx, r.getParticipantKey(params.RoomId, params.Uid)).Scan(&participant); err != nil {
		return room.Participant{}, fmt.Errorf("failed to get participant: %w", err)
	}

	if participant.Name == "" {
		return room.Participant{}, room.ErrParticipantNotFound
	}

	return participant, nil
}

// GetParticipantUids returns uids in join order.
func (r repo) GetParticipantUids(ctx context.Context, roomId string) ([]string, error) {
	uids, err := r.rc.ZRange(ctx, r.getParticipantListKey(roomId), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get participant uids: %w", err)
	}

	return uids, nil
}

func (r repo) updateParticipantField(ctx context.Context, roomId, uid, field string, value any) error {
	participantKey := r.getParticipantKey(roomId, uid)

	exists, err := r.rc.Exists(ctx, participantKey).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return room.ErrParticipantNotFound
	}

	if err := r.rc.HSet(ctx, participantKey, field, value).Err(); err != nil {
		return err
	}

	r.rc.Expire(ctx, participantKey, r.expireDuration)

	return nil
}

func (r repo) UpdateParticipantActive(ctx context.Context, params *room.UpdateParticipantActiveParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	return r.updateParticipantField(ctx, params.RoomId, params.Uid, "active", params.Active)
}

func (r repo) UpdateParticipantKicked(ctx context.Context, params *room.UpdateParticipantKickedParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	return r.updateParticipantField(ctx, params.RoomId, params.Uid, "kicked", params.Kicked)
}

func (r repo) UpdateParticipantFileHash(ctx context.Context, params *room.UpdateParticipantFileHashParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	return r.updateParticipantField(ctx, params.RoomId, params.Uid, "file_hash", params.FileHash)
}

func (r repo) RemoveParticipant(ctx context.Context, params *room.RemoveParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	pipe.ZRem(ctx, r.getParticipantListKey(params.RoomId), params.Uid)
	pipe.Del(ctx, r.getParticipantKey(params.RoomId, params.Uid))

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	return nil
}
