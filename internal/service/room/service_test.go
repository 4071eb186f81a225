package room

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/watchlock/server/internal/engine"
	"github.com/watchlock/server/internal/repository/connection/inmemory"
	roomRedis "github.com/watchlock/server/internal/repository/room/redis"
)

type fakeAssistant struct {
	reply string
	err   error
	asked string
}

func (f *fakeAssistant) Ask(_ context.Context, prompt, _ string) (string, error) {
	f.asked = prompt
	return f.reply, f.err
}

type fixture struct {
	service *service
	clock   *clockwork.FakeClock
	ai      *fakeAssistant

	roomId    string
	hostUid   string
	guestUid  string
	hostConn  *websocket.Conn
	guestConn *websocket.Conn
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rc := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	clock := clockwork.NewFakeClock()
	ai := &fakeAssistant{reply: "Done."}

	svc := NewService(
		roomRedis.NewRepo(rc, slog.Default(), 14*24*time.Hour),
		inmemory.NewRepo(slog.Default()),
		ai,
		clock,
		slog.Default(),
		&Config{Secret: "test-secret", MembersLimit: 9},
	)

	ctx := context.Background()

	createResp, err := svc.CreateRoom(ctx, &CreateRoomParams{RoomName: "test", Username: "alice"})
	require.NoError(t, err)

	f := &fixture{
		service:  svc,
		clock:    clock,
		ai:       ai,
		roomId:   createResp.RoomId,
		hostUid:  createResp.Uid,
		hostConn: &websocket.Conn{},
	}
	_, err = svc.ConnectParticipant(ctx, &ConnectParticipantParams{
		Conn:   f.hostConn,
		RoomId: f.roomId,
		Uid:    f.hostUid,
	})
	require.NoError(t, err)

	joinResp, err := svc.JoinRoom(ctx, &JoinRoomParams{RoomId: f.roomId, Username: "bob"})
	require.NoError(t, err)
	f.guestUid = joinResp.Uid
	f.guestConn = &websocket.Conn{}
	_, err = svc.ConnectParticipant(ctx, &ConnectParticipantParams{
		Conn:   f.guestConn,
		RoomId: f.roomId,
		Uid:    f.guestUid,
	})
	require.NoError(t, err)

	_, err = svc.AdmitParticipant(ctx, &AdmitParticipantParams{
		SenderUid: f.hostUid,
		RoomId:    f.roomId,
		TargetUid: f.guestUid,
	})
	require.NoError(t, err)

	return f
}

func TestClearChatIsHostOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.SendChat(ctx, &SendChatParams{
		SenderUid: f.guestUid,
		RoomId:    f.roomId,
		Text:      "hello",
	})
	require.NoError(t, err)

	_, err = f.service.ClearChat(ctx, &ClearChatParams{SenderUid: f.guestUid, RoomId: f.roomId})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.service.ClearChat(ctx, &ClearChatParams{SenderUid: f.hostUid, RoomId: f.roomId})
	require.NoError(t, err)

	state, err := f.service.GetRoomState(ctx, f.roomId)
	require.NoError(t, err)
	assert.Empty(t, state.Messages)
}

func TestDispatchCommandScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// local-only commands never produce an entry
	resp, err := f.service.DispatchCommand(ctx, &DispatchCommandParams{
		SenderUid: f.guestUid,
		RoomId:    f.roomId,
		Command:   engine.Command{Action: "logout"},
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Entry)

	// global commands are stored and clamped
	resp, err = f.service.DispatchCommand(ctx, &DispatchCommandParams{
		SenderUid: f.guestUid,
		RoomId:    f.roomId,
		Command:   engine.Command{Action: "volume", Value: 2.5},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Entry)
	v, ok := resp.Entry.Command.FloatValue()
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
	assert.Equal(t, "bob", resp.Entry.SenderName)

	// critical commands are host-gated
	_, err = f.service.DispatchCommand(ctx, &DispatchCommandParams{
		SenderUid: f.guestUid,
		RoomId:    f.roomId,
		Command:   engine.Command{Action: "kick", Uid: f.hostUid},
	})
	require.ErrorIs(t, err, ErrUnauthorized)

	// critical commands mutate state directly and stay off the bus
	_, err = f.service.SendChat(ctx, &SendChatParams{
		SenderUid: f.guestUid,
		RoomId:    f.roomId,
		Text:      "about to vanish",
	})
	require.NoError(t, err)

	resp, err = f.service.DispatchCommand(ctx, &DispatchCommandParams{
		SenderUid: f.hostUid,
		RoomId:    f.roomId,
		Command:   engine.Command{Action: "clear"},
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Entry)
	assert.True(t, resp.ChatCleared)

	state, err := f.service.GetRoomState(ctx, f.roomId)
	require.NoError(t, err)
	assert.Empty(t, state.Messages)

	_, err = f.service.DispatchCommand(ctx, &DispatchCommandParams{
		SenderUid: f.guestUid,
		RoomId:    f.roomId,
		Command:   engine.Command{Action: "definitely-not-a-thing"},
	})
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestRecentCommandsDropsStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.DispatchCommand(ctx, &DispatchCommandParams{
		SenderUid: f.hostUid,
		RoomId:    f.roomId,
		Command:   engine.Command{Action: "brightness", Value: 0.8},
	})
	require.NoError(t, err)

	f.clock.Advance(engine.CommandStaleAfter / 2)

	_, err = f.service.DispatchCommand(ctx, &DispatchCommandParams{
		SenderUid: f.hostUid,
		RoomId:    f.roomId,
		Command:   engine.Command{Action: "volume", Value: 0.5},
	})
	require.NoError(t, err)

	// first command crosses the staleness cutoff, second stays fresh
	f.clock.Advance(engine.CommandStaleAfter/2 + time.Second)

	entries, err := f.service.RecentCommands(ctx, f.roomId)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "volume", entries[0].Command.Action)
}

func TestMovieModeClearsChatAndFansOutSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.SendChat(ctx, &SendChatParams{
		SenderUid: f.guestUid,
		RoomId:    f.roomId,
		Text:      "starting soon",
	})
	require.NoError(t, err)

	// only the host can trigger movie mode, through the chat-clear gate
	_, err = f.service.MovieMode(ctx, &MovieModeParams{SenderUid: f.guestUid, RoomId: f.roomId})
	require.ErrorIs(t, err, ErrUnauthorized)

	movieResp, err := f.service.MovieMode(ctx, &MovieModeParams{SenderUid: f.hostUid, RoomId: f.roomId})
	require.NoError(t, err)
	require.Len(t, movieResp.Entries, 8)
	assert.Equal(t, "volume", movieResp.Entries[0].Command.Action)
	assert.Equal(t, "speed", movieResp.Entries[7].Command.Action)

	state, err := f.service.GetRoomState(ctx, f.roomId)
	require.NoError(t, err)
	assert.Empty(t, state.Messages)
}

func TestSetTypingExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.SetTyping(ctx, &SetTypingParams{
		SenderUid: f.guestUid,
		RoomId:    f.roomId,
		Typing:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, resp.Typers)

	f.clock.Advance(typingExpiry + time.Second)

	typers, err := f.service.getTypers(ctx, f.roomId)
	require.NoError(t, err)
	assert.Empty(t, typers)
}

func TestAskAssistantExecutesCommandsAndPostsReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ai.reply = `Done.|||{"action": "pause"}|||`

	askResp, err := f.service.AskAssistant(ctx, &AskAssistantParams{
		SenderUid: f.hostUid,
		RoomId:    f.roomId,
		Prompt:    "pause the video",
	})
	require.NoError(t, err)

	require.Len(t, askResp.Entries, 1)
	assert.Equal(t, "pause", askResp.Entries[0].Command.Action)

	assert.Equal(t, "Done.", askResp.Message.Text)
	assert.Equal(t, AssistantName, askResp.Message.Sender)
	assert.Equal(t, AssistantUid, askResp.Message.Uid)

	assert.Contains(t, f.ai.asked, "[Current State Context]")
	assert.Contains(t, f.ai.asked, "User Query: pause the video")
}

func TestAskAssistantDegradesToApology(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ai.err = errors.New("upstream down")

	askResp, err := f.service.AskAssistant(ctx, &AskAssistantParams{
		SenderUid: f.guestUid,
		RoomId:    f.roomId,
		Prompt:    "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, assistantFallbackReply, askResp.Message.Text)
	assert.Empty(t, askResp.Entries)
}

func TestAskAssistantRejectsNonHostKick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ai.reply = `Done.|||{"action": "kick", "uid": "` + f.hostUid + `"}|||`

	askResp, err := f.service.AskAssistant(ctx, &AskAssistantParams{
		SenderUid: f.guestUid,
		RoomId:    f.roomId,
		Prompt:    "kick alice",
	})
	require.NoError(t, err)
	assert.Empty(t, askResp.Entries)

	state, err := f.service.GetRoomState(ctx, f.roomId)
	require.NoError(t, err)
	for _, p := range state.Participants {
		assert.False(t, p.Kicked)
	}
}

func TestLeaveRoomDeletesWhenEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	leaveResp, err := f.service.LeaveRoom(ctx, &LeaveRoomParams{RoomId: f.roomId, Uid: f.guestUid})
	require.NoError(t, err)
	assert.False(t, leaveResp.IsRoomDeleted)

	leaveResp, err = f.service.LeaveRoom(ctx, &LeaveRoomParams{RoomId: f.roomId, Uid: f.hostUid})
	require.NoError(t, err)
	assert.True(t, leaveResp.IsRoomDeleted)

	_, err = f.service.GetRoomState(ctx, f.roomId)
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestDisconnectReportsOfflineTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	disconnectResp, err := f.service.DisconnectParticipant(ctx, &DisconnectParticipantParams{
		RoomId: f.roomId,
		Uid:    f.guestUid,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{f.guestUid}, disconnectResp.OfflineUids)
	assert.False(t, disconnectResp.Presence[f.guestUid])
	assert.True(t, disconnectResp.Presence[f.hostUid])
}

func TestNormalizeRoomCode(t *testing.T) {
	assert.Equal(t, "ABCDEFGH2345", NormalizeRoomCode("  abcdefgh2345 "))
	assert.ErrorIs(t, validateRoomCode("short"), ErrInvalidRoomCode)
	assert.NoError(t, validateRoomCode("ABCDEFGH2345"))
}
