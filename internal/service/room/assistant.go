package room

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/engine"
	"github.com/watchlock/server/internal/service/assistant"
)

const assistantFallbackReply = "Sorry, I'm having trouble connecting to my brain right now."

const assistantChatWindow = 50

type AskAssistantParams struct {
	SenderUid string
	RoomId    string
	Prompt    string
}

type AskAssistantResponse struct {
	Message     Message
	Entries     []engine.CommandEntry
	KickedConn  *websocket.Conn
	ChatCleared bool
	Conns       []*websocket.Conn
}

type assistantContext struct {
	Room struct {
		Name        string        `json:"name"`
		Code        string        `json:"code"`
		HostId      string        `json:"hostId"`
		IsModerator bool          `json:"isModerator"`
		Members     []Participant `json:"members"`
	} `json:"room"`
	User struct {
		Id   string `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
	Video struct {
		CurrentTime float64 `json:"currentTime"`
		Paused      bool    `json:"paused"`
		Speed       float64 `json:"speed"`
	} `json:"video"`
	Chat []Message `json:"chat"`
}

// AskAssistant runs the /ai flow: snapshot the room into a context block,
// ask the model, execute whatever commands it appended, and post its reply
// to chat under the assistant identity. An upstream failure degrades to an
// apology message; the chat flow itself never errors out because the model
// is down.
func (s service) AskAssistant(ctx context.Context, params *AskAssistantParams) (AskAssistantResponse, error) {
	if _, err := s.ensureActive(ctx, params.RoomId, params.SenderUid); err != nil {
		return AskAssistantResponse{}, err
	}

	prompt, err := s.buildAssistantPrompt(ctx, params)
	if err != nil {
		return AskAssistantResponse{}, err
	}

	reply, err := s.assistant.Ask(ctx, prompt, assistantSystemPrompt)
	if err != nil {
		s.logger.WarnContext(ctx, "assistant request failed", "error", err)
		reply = assistantFallbackReply
	}

	text, rawCommands := assistant.ExtractCommands(reply)

	resp := AskAssistantResponse{}
	for _, raw := range rawCommands {
		var cmd engine.Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			s.logger.WarnContext(ctx, "failed to unmarshal assistant command", "error", err)
			continue
		}

		// Commands run with the requester's authority; a non-host asking
		// for a kick fails here even if the model emitted it anyway.
		dispatched, err := s.DispatchCommand(ctx, &DispatchCommandParams{
			SenderUid: params.SenderUid,
			RoomId:    params.RoomId,
			Command:   cmd,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "assistant command rejected",
				"action", cmd.Action,
				"error", err,
			)
			continue
		}

		if dispatched.Entry != nil {
			resp.Entries = append(resp.Entries, *dispatched.Entry)
		}
		if dispatched.KickedConn != nil {
			resp.KickedConn = dispatched.KickedConn
		}
		if dispatched.ChatCleared {
			resp.ChatCleared = true
		}
	}

	if text == "" {
		text = "Done."
	}

	posted, err := s.addMessage(ctx, params.RoomId, text, AssistantName, AssistantUid)
	if err != nil {
		return AskAssistantResponse{}, err
	}

	resp.Message = posted.Message
	resp.Conns = posted.Conns

	return resp, nil
}

func (s service) buildAssistantPrompt(ctx context.Context, params *AskAssistantParams) (string, error) {
	state, err := s.GetRoomState(ctx, params.RoomId)
	if err != nil {
		return "", err
	}

	var appCtx assistantContext
	appCtx.Room.Name = state.Name
	appCtx.Room.Code = state.Id
	appCtx.Room.HostId = state.Host
	appCtx.Room.IsModerator = state.Host == params.SenderUid
	appCtx.Room.Members = state.Participants
	appCtx.User.Id = params.SenderUid
	for _, participant := range state.Participants {
		if participant.Uid == params.SenderUid {
			appCtx.User.Name = participant.Name
			break
		}
	}
	appCtx.Video.CurrentTime = state.Playback.Position
	appCtx.Video.Paused = state.Playback.Status != engine.StatusPlaying
	appCtx.Video.Speed = state.Playback.Speed
	appCtx.Chat = state.Messages
	if len(appCtx.Chat) > assistantChatWindow {
		appCtx.Chat = appCtx.Chat[len(appCtx.Chat)-assistantChatWindow:]
	}

	contextJSON, err := json.MarshalIndent(appCtx, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal assistant context: %w", err)
	}

	return fmt.Sprintf("[Current State Context]\n%s\n[End Context]\n\nUser Query: %s", contextJSON, params.Prompt), nil
}
