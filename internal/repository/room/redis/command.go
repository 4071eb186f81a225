package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/watchlock/server/internal/repository/room"
)

// Command entries older than this are trimmed opportunistically on every
// append. Readers apply their own 10s staleness window; the trim only keeps
// the backing set from growing unbounded.
const commandRetention = time.Minute

func (r repo) getCommandsKey(roomId string) string {
	return "room:" + roomId + ":commands"
}

func (r repo) AddCommand(ctx context.Context, params *room.AddCommandParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	commandsKey := r.getCommandsKey(params.RoomId)
	pipe.ZAdd(ctx, commandsKey, redis.Z{Score: float64(params.Timestamp), Member: params.Entry})
	pipe.ZRemRangeByScore(ctx, commandsKey, "-inf",
		strconv.FormatInt(params.Timestamp-commandRetention.Milliseconds(), 10))
	pipe.Expire(ctx, commandsKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to add command: %w", err)
	}

	return nil
}

func (r repo) GetCommandsSince(ctx context.Context, params *room.GetCommandsSinceParams) ([][]byte, error) {
	raws, err := r.rc.ZRangeByScore(ctx, r.getCommandsKey(params.RoomId), &redis.ZRangeBy{
		Min: strconv.FormatInt(params.Since, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get commands: %w", err)
	}

	entries := make([][]byte, 0, len(raws))
	for _, raw := range raws {
		entries = append(entries, []byte(raw))
	}

	return entries, nil
}
