package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// DriftThreshold is the minimum disagreement, in seconds, between the
	// local position and the computed target that triggers a corrective
	// seek. Smaller drift is left alone to avoid visible jitter.
	DriftThreshold = 1.5

	// EchoGuardWindow absorbs the player callbacks that fire as a side
	// effect of a programmatic seek/play/pause.
	EchoGuardWindow = 500 * time.Millisecond
)

// Player is the local video element the engine reconciles against.
type Player interface {
	Position() float64
	Paused() bool
	Seek(position float64)
	Play()
	Pause()
	SetSpeed(speed float64)
}

// Publisher delivers a playback record to every peer in the room.
type Publisher interface {
	PublishPlayback(ctx context.Context, roomId string, state PlaybackState) error
}

// NotifyFunc surfaces a human-readable action label from a remote peer.
type NotifyFunc func(senderName, action string)

// Engine keeps the local player converging toward the room's shared playback
// intent. Local transitions are stamped with the session id and published;
// remote transitions are applied with clock-skew compensation, and echoes of
// the engine's own publishes are dropped.
type Engine struct {
	sessionId  string
	uid        string
	senderName string
	player     Player
	publisher  Publisher
	clock      clockwork.Clock
	notify     NotifyFunc

	mu                 sync.Mutex
	roomId             string
	loaded             bool
	suppressUntil      time.Time
	lastHandledTrigger string
}

func New(sessionId, uid, senderName string, player Player, publisher Publisher, clock clockwork.Clock, notify NotifyFunc) *Engine {
	return &Engine{
		sessionId:  sessionId,
		uid:        uid,
		senderName: senderName,
		player:     player,
		publisher:  publisher,
		clock:      clock,
		notify:     notify,
	}
}

func (e *Engine) SessionId() string {
	return e.sessionId
}

// SetLoaded marks whether a video is loaded locally. Until it is, the engine
// publishes nothing.
func (e *Engine) SetLoaded(loaded bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = loaded
}

func (e *Engine) EnterRoom(roomId string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.roomId = roomId
}

func (e *Engine) LeaveRoom() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.roomId = ""
}

// PublishLocalTransition publishes a full playback record for a local user
// action. It is a no-op when no video is loaded, no room is joined, or the
// transition is a side effect of applying a remote state.
func (e *Engine) PublishLocalTransition(ctx context.Context, status Status, position, speed float64, action string) error {
	e.mu.Lock()
	if !e.loaded || e.roomId == "" || e.clock.Now().Before(e.suppressUntil) {
		e.mu.Unlock()
		return nil
	}

	state := PlaybackState{
		Status:           status,
		Position:         math.Max(position, 0),
		Speed:            speed,
		TriggerSessionId: e.sessionId,
		OriginTimestamp:  e.clock.Now().UnixMilli(),
		Action:           action,
		SenderName:       e.senderName,
		SenderUid:        e.uid,
	}
	roomId := e.roomId
	e.mu.Unlock()

	return e.publisher.PublishPlayback(ctx, roomId, state)
}

// OnRemoteTransition reconciles the local player against a received playback
// record. Applying the same record twice is idempotent.
func (e *Engine) OnRemoteTransition(state PlaybackState) {
	e.mu.Lock()
	if state.TriggerSessionId == e.sessionId {
		e.mu.Unlock()
		return
	}

	now := e.clock.Now()
	target := TargetPosition(state, now)

	// Guard against the player callbacks fired by the mutations below
	// re-triggering PublishLocalTransition.
	e.suppressUntil = now.Add(EchoGuardWindow)

	isSelf := state.SenderUid == e.uid
	shouldNotify := !isSelf && state.SenderName != "" && state.Action != "" &&
		e.lastHandledTrigger != state.TriggerSessionId
	if shouldNotify {
		e.lastHandledTrigger = state.TriggerSessionId
	}
	e.mu.Unlock()

	if math.Abs(e.player.Position()-target) > DriftThreshold {
		e.player.Seek(target)
	}

	if state.Status == StatusPlaying && e.player.Paused() {
		e.player.Play()
	} else if state.Status == StatusPaused && !e.player.Paused() {
		e.player.Pause()
	}

	e.player.SetSpeed(state.Speed)

	if shouldNotify && e.notify != nil {
		e.notify(state.SenderName, state.Action)
	}
}
