package app

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/watchlock/server/internal/engine"
	"github.com/watchlock/server/internal/repository/connection/inmemory"
	roomRedis "github.com/watchlock/server/internal/repository/room/redis"
	"github.com/watchlock/server/internal/service/room"
)

type stubAssistant struct {
	reply string
}

func (s stubAssistant) Ask(_ context.Context, _, _ string) (string, error) {
	return s.reply, nil
}

func TestRoomLifecycle(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	clock := clockwork.NewFakeClock()

	roomRepo := roomRedis.NewRepo(rc, slog.Default(), 14*24*time.Hour)
	connRepo := inmemory.NewRepo(slog.Default())
	service := room.NewService(roomRepo, connRepo, stubAssistant{reply: "Done.|||{\"action\": \"pause\"}|||"}, clock, slog.Default(), &room.Config{
		Secret:       "test-secret",
		MembersLimit: 9,
	})

	ctx := context.Background()

	// host creates a room
	createRoomResp, err := service.CreateRoom(ctx, &room.CreateRoomParams{
		RoomName: "movie night",
		Username: "alice",
	})
	require.NoError(t, err)
	assert.Len(t, createRoomResp.RoomId, 12)
	assert.NotEmpty(t, createRoomResp.Uid)
	assert.NotEmpty(t, createRoomResp.SessionId)
	assert.NotEmpty(t, createRoomResp.RejoinToken)

	hostConn := &websocket.Conn{}
	_, err = service.ConnectParticipant(ctx, &room.ConnectParticipantParams{
		Conn:   hostConn,
		RoomId: createRoomResp.RoomId,
		Uid:    createRoomResp.Uid,
	})
	require.NoError(t, err)

	// second participant requests to join, landing in pending state
	joinRoomResp, err := service.JoinRoom(ctx, &room.JoinRoomParams{
		RoomId:   createRoomResp.RoomId,
		Username: "bob",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, joinRoomResp.Uid)
	assert.NotEqual(t, createRoomResp.Uid, joinRoomResp.Uid)

	bobConn := &websocket.Conn{}
	_, err = service.ConnectParticipant(ctx, &room.ConnectParticipantParams{
		Conn:   bobConn,
		RoomId: createRoomResp.RoomId,
		Uid:    joinRoomResp.Uid,
	})
	require.NoError(t, err)

	// pending participants may not touch the player
	_, err = service.PublishPlayback(ctx, &room.PublishPlaybackParams{
		SenderUid: joinRoomResp.Uid,
		RoomId:    createRoomResp.RoomId,
		Playback:  engine.PlaybackState{Status: engine.StatusPlaying, Speed: 1},
	})
	require.ErrorIs(t, err, room.ErrParticipantPending)

	// only the host can admit
	_, err = service.AdmitParticipant(ctx, &room.AdmitParticipantParams{
		SenderUid: joinRoomResp.Uid,
		RoomId:    createRoomResp.RoomId,
		TargetUid: joinRoomResp.Uid,
	})
	require.ErrorIs(t, err, room.ErrUnauthorized)

	admitResp, err := service.AdmitParticipant(ctx, &room.AdmitParticipantParams{
		SenderUid: createRoomResp.Uid,
		RoomId:    createRoomResp.RoomId,
		TargetUid: joinRoomResp.Uid,
	})
	require.NoError(t, err)
	assert.Len(t, admitResp.Conns, 2)

	// admitted participant publishes a transition; the stored record is
	// served back skew-adjusted
	_, err = service.PublishPlayback(ctx, &room.PublishPlaybackParams{
		SenderUid: joinRoomResp.Uid,
		RoomId:    createRoomResp.RoomId,
		Playback: engine.PlaybackState{
			Status:           engine.StatusPlaying,
			Position:         10,
			Speed:            1,
			TriggerSessionId: joinRoomResp.SessionId,
			OriginTimestamp:  clock.Now().UnixMilli(),
			Action:           "play",
			SenderName:       "bob",
		},
	})
	require.NoError(t, err)

	clock.Advance(5 * time.Second)

	state, err := service.GetRoomState(ctx, createRoomResp.RoomId)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusPlaying, state.Playback.Status)
	assert.InDelta(t, 15.0, state.Playback.Position, 0.01)
	assert.Len(t, state.Participants, 2)

	// non-host kick is refused
	_, err = service.KickParticipant(ctx, &room.KickParticipantParams{
		SenderUid: joinRoomResp.Uid,
		RoomId:    createRoomResp.RoomId,
		TargetUid: createRoomResp.Uid,
	})
	require.ErrorIs(t, err, room.ErrUnauthorized)

	kickResp, err := service.KickParticipant(ctx, &room.KickParticipantParams{
		SenderUid: createRoomResp.Uid,
		RoomId:    createRoomResp.RoomId,
		TargetUid: joinRoomResp.Uid,
	})
	require.NoError(t, err)
	assert.Equal(t, bobConn, kickResp.KickedConn)

	// kicked is terminal: no chat, no rejoin, no re-admission
	_, err = service.SendChat(ctx, &room.SendChatParams{
		SenderUid: joinRoomResp.Uid,
		RoomId:    createRoomResp.RoomId,
		Text:      "hello?",
	})
	require.ErrorIs(t, err, room.ErrParticipantKicked)

	_, err = service.JoinRoom(ctx, &room.JoinRoomParams{
		RoomId:      createRoomResp.RoomId,
		Username:    "bob",
		RejoinToken: joinRoomResp.RejoinToken,
	})
	require.ErrorIs(t, err, room.ErrParticipantKicked)

	_, err = service.AdmitParticipant(ctx, &room.AdmitParticipantParams{
		SenderUid: createRoomResp.Uid,
		RoomId:    createRoomResp.RoomId,
		TargetUid: joinRoomResp.Uid,
	})
	require.ErrorIs(t, err, room.ErrParticipantKicked)
}
