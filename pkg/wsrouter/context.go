package wsrouter

import (
	"context"
	"fmt"
)

type ctxKey string

const (
	messageTypeKey ctxKey = "message_type"
)

func GetMessageTypeFromCtx(ctx context.Context) string {
	messageType, ok := ctx.Value(messageTypeKey).(string)
	if !ok {
		return ""
	}

	return messageType
}

type UnknownMessageTypeError struct {
	MessageType string
}

func (e *UnknownMessageTypeError) Error() string {
	return fmt.Sprintf("unknown message type: %q", e.MessageType)
}
