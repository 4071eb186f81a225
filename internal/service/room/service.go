package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/watchlock/server/internal/repository/room"
	"github.com/watchlock/server/pkg/randstr"
)

const (
	// Room codes and session ids use a 32-symbol alphabet without the
	// easily confused 0/O/1/I.
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength  = 12
	sessionIdLength = 12

	// Synthetic identity for assistant-authored chat messages.
	AssistantUid  = "friday-assistant"
	AssistantName = "Friday"

	// Typing records older than this are treated as idle.
	typingExpiry = 3 * time.Second
)

var roomCodeRe = regexp.MustCompile("^[" + codeAlphabet + "]{12}$")

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomIsFull          = errors.New("room is full")
	ErrInvalidRoomCode     = errors.New("invalid room code")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantKicked   = errors.New("participant is kicked")
	ErrParticipantPending  = errors.New("participant is pending admission")
	ErrUnknownAction       = errors.New("unknown action")
)

type iRoomRepo interface {
	// room
	SetRoom(context.Context, *room.SetRoomParams) error
	GetRoom(ctx context.Context, roomId string) (room.Room, error)
	RoomExists(ctx context.Context, roomId string) (bool, error)
	RemoveRoom(ctx context.Context, roomId string) error
	// participant
	SetParticipant(context.Context, *room.SetParticipantParams) error
	GetParticipant(context.Context, *room.GetParticipantParams) (room.Participant, error)
	GetParticipantUids(ctx context.Context, roomId string) ([]string, error)
	UpdateParticipantActive(context.Context, *room.UpdateParticipantActiveParams) error
	UpdateParticipantKicked(context.Context, *room.UpdateParticipantKickedParams) error
	UpdateParticipantFileHash(context.Context, *room.UpdateParticipantFileHashParams) error
	RemoveParticipant(context.Context, *room.RemoveParticipantParams) error
	// playback
	SetPlayback(context.Context, *room.SetPlaybackParams) error
	GetPlayback(ctx context.Context, roomId string) (room.Playback, error)
	// chat
	AddMessage(context.Context, *room.AddMessageParams) error
	GetMessages(ctx context.Context, roomId string) ([]room.Message, error)
	ClearMessages(ctx context.Context, roomId string) error
	// commands
	AddCommand(context.Context, *room.AddCommandParams) error
	GetCommandsSince(context.Context, *room.GetCommandsSinceParams) ([][]byte, error)
	// typing
	SetTyping(context.Context, *room.SetTypingParams) error
	RemoveTyping(context.Context, *room.RemoveTypingParams) error
	GetTyping(ctx context.Context, roomId string) (map[string]room.Typing, error)
	// presence
	SetPresence(context.Context, *room.SetPresenceParams) error
	GetPresence(ctx context.Context, roomId string) (map[string]bool, error)
}

type iConnRepo interface {
	Add(conn *websocket.Conn, uid string) error
	RemoveByUid(uid string) (*websocket.Conn, error)
	RemoveByConn(conn *websocket.Conn) (string, error)
	GetConn(uid string) (*websocket.Conn, error)
	GetUid(conn *websocket.Conn) (string, error)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type iAssistant interface {
	Ask(ctx context.Context, prompt, systemInstruction string) (string, error)
}

type Config struct {
	Secret       string
	MembersLimit int
}

type service struct {
	roomRepo     iRoomRepo
	connRepo     iConnRepo
	assistant    iAssistant
	generator    iGenerator
	clock        clockwork.Clock
	logger       *slog.Logger
	secret       string
	membersLimit int
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, assistant iAssistant, clock clockwork.Clock, logger *slog.Logger, cfg *Config) *service {
	return &service{
		roomRepo:     roomRepo,
		connRepo:     connRepo,
		assistant:    assistant,
		generator:    randstr.New([]byte(codeAlphabet)),
		clock:        clock,
		logger:       logger,
		secret:       cfg.Secret,
		membersLimit: cfg.MembersLimit,
	}
}

// NormalizeRoomCode uppercases a user-entered room code; comparison is
// case-insensitive.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validateRoomCode(code string) error {
	if !roomCodeRe.MatchString(code) {
		return ErrInvalidRoomCode
	}

	return nil
}

func (s service) checkIfHost(ctx context.Context, roomId, senderUid string) error {
	r, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to get room: %w", err)
	}

	if r.Host != senderUid {
		return ErrUnauthorized
	}

	return nil
}

// ensureActive rejects callers that are kicked or still waiting for
// admission. Pending participants may not interact with the player or chat.
func (s service) ensureActive(ctx context.Context, roomId, uid string) (room.Participant, error) {
	participant, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId: roomId,
		Uid:    uid,
	})
	if err != nil {
		if errors.Is(err, room.ErrParticipantNotFound) {
			return room.Participant{}, ErrParticipantNotFound
		}
		return room.Participant{}, fmt.Errorf("failed to get participant: %w", err)
	}

	if participant.Kicked {
		return room.Participant{}, ErrParticipantKicked
	}
	if !participant.Active {
		return room.Participant{}, ErrParticipantPending
	}

	return participant, nil
}

// getConnsByRoomId returns the open connections of every participant. A
// participant without a live connection is simply skipped.
func (s service) getConnsByRoomId(ctx context.Context, roomId string) ([]*websocket.Conn, error) {
	uids, err := s.roomRepo.GetParticipantUids(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant uids: %w", err)
	}

	conns := make([]*websocket.Conn, 0, len(uids))
	for _, uid := range uids {
		conn, err := s.connRepo.GetConn(uid)
		if err != nil {
			continue
		}

		conns = append(conns, conn)
	}

	return conns, nil
}
