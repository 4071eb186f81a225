package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/engine"
	"github.com/watchlock/server/internal/service/room"
	"github.com/watchlock/server/pkg/validator"
	"github.com/watchlock/server/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	GetRoomState(ctx context.Context, roomId string) (room.RoomState, error)
	ConnectParticipant(context.Context, *room.ConnectParticipantParams) (room.ConnectParticipantResponse, error)
	DisconnectParticipant(context.Context, *room.DisconnectParticipantParams) (room.DisconnectParticipantResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) (room.LeaveRoomResponse, error)
	PublishPlayback(context.Context, *room.PublishPlaybackParams) (room.PublishPlaybackResponse, error)
	SendChat(context.Context, *room.SendChatParams) (room.SendChatResponse, error)
	ClearChat(context.Context, *room.ClearChatParams) (room.ClearChatResponse, error)
	MovieMode(context.Context, *room.MovieModeParams) (room.MovieModeResponse, error)
	AskAssistant(context.Context, *room.AskAssistantParams) (room.AskAssistantResponse, error)
	SetTyping(context.Context, *room.SetTypingParams) (room.SetTypingResponse, error)
	DispatchCommand(context.Context, *room.DispatchCommandParams) (room.DispatchCommandResponse, error)
	AdmitParticipant(context.Context, *room.AdmitParticipantParams) (room.AdmitParticipantResponse, error)
	DenyParticipant(context.Context, *room.DenyParticipantParams) (room.KickParticipantResponse, error)
	KickParticipant(context.Context, *room.KickParticipantParams) (room.KickParticipantResponse, error)
	UpdateFileHash(context.Context, *room.UpdateFileHashParams) (room.UpdateFileHashResponse, error)
	RecentCommands(ctx context.Context, roomId string) ([]engine.CommandEntry, error)
}

// iAssistant backs the plain HTTP proxy endpoint; the chat-driven flow goes
// through the room service instead.
type iAssistant interface {
	Ask(ctx context.Context, prompt, systemInstruction string) (string, error)
}

type controller struct {
	roomService iRoomService
	assistant   iAssistant
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
	wsmux       *wsrouter.WSRouter
}

func NewController(roomService iRoomService, assistant iAssistant, logger *slog.Logger) *controller {
	c := &controller{
		roomService: roomService,
		assistant:   assistant,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
