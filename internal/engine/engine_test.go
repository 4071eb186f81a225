package engine

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	position float64
	paused   bool
	speed    float64
	seeks    int
	plays    int
	pauses   int
}

func (p *fakePlayer) Position() float64 { return p.position }
func (p *fakePlayer) Paused() bool      { return p.paused }

func (p *fakePlayer) Seek(position float64) {
	p.position = position
	p.seeks++
}

func (p *fakePlayer) Play() {
	p.paused = false
	p.plays++
}

func (p *fakePlayer) Pause() {
	p.paused = true
	p.pauses++
}

func (p *fakePlayer) SetSpeed(speed float64) { p.speed = speed }

type fakePublisher struct {
	published []PlaybackState
}

func (f *fakePublisher) PublishPlayback(_ context.Context, _ string, state PlaybackState) error {
	f.published = append(f.published, state)
	return nil
}

func newTestEngine(clock clockwork.Clock, notify NotifyFunc) (*Engine, *fakePlayer, *fakePublisher) {
	player := &fakePlayer{paused: true, speed: 1}
	publisher := &fakePublisher{}
	e := New("session-1", "uid-1", "Alice", player, publisher, clock, notify)
	e.SetLoaded(true)
	e.EnterRoom("ABCD2345EFGH")

	return e, player, publisher
}

func TestPublishLocalTransition(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e, _, publisher := newTestEngine(clock, nil)

	err := e.PublishLocalTransition(context.Background(), StatusPlaying, 10, 1.5, "played")
	require.NoError(t, err)
	require.Len(t, publisher.published, 1)

	state := publisher.published[0]
	assert.Equal(t, StatusPlaying, state.Status)
	assert.Equal(t, 10.0, state.Position)
	assert.Equal(t, 1.5, state.Speed)
	assert.Equal(t, "session-1", state.TriggerSessionId)
	assert.Equal(t, clock.Now().UnixMilli(), state.OriginTimestamp)
	assert.Equal(t, "played", state.Action)
	assert.Equal(t, "Alice", state.SenderName)
	assert.Equal(t, "uid-1", state.SenderUid)
}

func TestPublishLocalTransitionNoopWithoutVideoOrRoom(t *testing.T) {
	clock := clockwork.NewFakeClock()

	e, _, publisher := newTestEngine(clock, nil)
	e.SetLoaded(false)
	require.NoError(t, e.PublishLocalTransition(context.Background(), StatusPlaying, 0, 1, ""))
	assert.Empty(t, publisher.published, "must not publish without a loaded video")

	e, _, publisher = newTestEngine(clock, nil)
	e.LeaveRoom()
	require.NoError(t, e.PublishLocalTransition(context.Background(), StatusPlaying, 0, 1, ""))
	assert.Empty(t, publisher.published, "must not publish outside a room")
}

func TestPublishLocalTransitionClampsNegativePosition(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e, _, publisher := newTestEngine(clock, nil)

	require.NoError(t, e.PublishLocalTransition(context.Background(), StatusPaused, -3, 1, ""))
	require.Len(t, publisher.published, 1)
	assert.Equal(t, 0.0, publisher.published[0].Position)
}

func TestEchoSuppression(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e, player, _ := newTestEngine(clock, nil)

	e.OnRemoteTransition(PlaybackState{
		Status:           StatusPlaying,
		Position:         42,
		Speed:            2,
		TriggerSessionId: "session-1",
		OriginTimestamp:  clock.Now().UnixMilli(),
	})

	assert.Zero(t, player.seeks, "own echo must not seek")
	assert.Zero(t, player.plays, "own echo must not start playback")
	assert.True(t, player.paused)
}

func TestClockSkewCompensation(t *testing.T) {
	clock := clockwork.NewFakeClock()
	origin := clock.Now().UnixMilli()
	clock.Advance(300 * time.Millisecond)

	state := PlaybackState{
		Status:          StatusPlaying,
		Position:        10,
		OriginTimestamp: origin,
	}
	assert.InDelta(t, 10.3, TargetPosition(state, clock.Now()), 0.001)

	state.Status = StatusPaused
	assert.Equal(t, 10.0, TargetPosition(state, clock.Now()), "paused states do not advance")
}

func TestOnRemoteTransitionSeeksAndPlays(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e, player, _ := newTestEngine(clock, nil)

	origin := clock.Now().UnixMilli()
	clock.Advance(300 * time.Millisecond)

	e.OnRemoteTransition(PlaybackState{
		Status:           StatusPlaying,
		Position:         10,
		Speed:            1.25,
		TriggerSessionId: "session-2",
		OriginTimestamp:  origin,
	})

	assert.Equal(t, 1, player.seeks)
	assert.InDelta(t, 10.3, player.position, 0.001)
	assert.Equal(t, 1, player.plays)
	assert.False(t, player.paused)
	assert.Equal(t, 1.25, player.speed)
}

func TestDriftThresholdIdempotence(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e, player, _ := newTestEngine(clock, nil)

	state := PlaybackState{
		Status:           StatusPlaying,
		Position:         10,
		Speed:            1,
		TriggerSessionId: "session-2",
		OriginTimestamp:  clock.Now().UnixMilli(),
	}

	e.OnRemoteTransition(state)
	require.Equal(t, 1, player.seeks)

	// Redelivery of the same record: the local position is now within the
	// drift threshold of the target, so no second seek.
	clock.Advance(100 * time.Millisecond)
	e.OnRemoteTransition(state)
	assert.Equal(t, 1, player.seeks)
}

func TestOnRemoteTransitionPausesPlayingPlayer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e, player, _ := newTestEngine(clock, nil)
	player.paused = false
	player.position = 20

	e.OnRemoteTransition(PlaybackState{
		Status:           StatusPaused,
		Position:         20,
		Speed:            1,
		TriggerSessionId: "session-2",
		OriginTimestamp:  clock.Now().UnixMilli(),
	})

	assert.Equal(t, 1, player.pauses)
	assert.Zero(t, player.seeks, "position within threshold must not seek")
}

func TestEchoGuardWindowSuppressesPublish(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e, _, publisher := newTestEngine(clock, nil)

	e.OnRemoteTransition(PlaybackState{
		Status:           StatusPlaying,
		Position:         10,
		Speed:            1,
		TriggerSessionId: "session-2",
		OriginTimestamp:  clock.Now().UnixMilli(),
	})

	// The player's own event callbacks fire inside the guard window.
	require.NoError(t, e.PublishLocalTransition(context.Background(), StatusPlaying, 10, 1, "played"))
	assert.Empty(t, publisher.published, "publish inside guard window must be suppressed")

	clock.Advance(EchoGuardWindow + time.Millisecond)
	require.NoError(t, e.PublishLocalTransition(context.Background(), StatusPaused, 12, 1, "paused"))
	assert.Len(t, publisher.published, 1)
}

func TestActionNotificationIsOneShotPerTrigger(t *testing.T) {
	clock := clockwork.NewFakeClock()

	var notified []string
	e, _, _ := newTestEngine(clock, func(senderName, action string) {
		notified = append(notified, senderName+":"+action)
	})

	state := PlaybackState{
		Status:           StatusPaused,
		Position:         5,
		Speed:            1,
		TriggerSessionId: "session-2",
		OriginTimestamp:  clock.Now().UnixMilli(),
		Action:           "paused",
		SenderName:       "Bob",
		SenderUid:        "uid-2",
	}

	e.OnRemoteTransition(state)
	e.OnRemoteTransition(state)
	assert.Equal(t, []string{"Bob:paused"}, notified, "redelivery must not re-notify")

	// Same user in another tab is still "self" by uid.
	state.TriggerSessionId = "session-3"
	state.SenderUid = "uid-1"
	e.OnRemoteTransition(state)
	assert.Len(t, notified, 1)
}
