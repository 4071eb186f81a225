package wsrouter

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

// ErrorHandlerFunc is invoked when a handler returns an error or an unknown
// message type arrives. The connection keeps being served.
type ErrorHandlerFunc func(ctx context.Context, conn *websocket.Conn, err error)

type WSRouter struct {
	routes  map[string]HandlerFunc
	onError ErrorHandlerFunc
}

func New(onError ErrorHandlerFunc) *WSRouter {
	return &WSRouter{
		routes:  make(map[string]HandlerFunc),
		onError: onError,
	}
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			if r.onError != nil {
				r.onError(ctx, conn, &UnknownMessageTypeError{MessageType: msg.Type})
			}
			continue
		}

		handlerCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		if err := handler(handlerCtx, conn, msg.Payload); err != nil {
			if r.onError != nil {
				r.onError(handlerCtx, conn, err)
			}
		}
	}
}

// Typed adapts a handler taking a decoded payload of type T.
func Typed[T any](handler func(ctx context.Context, conn *websocket.Conn, input T) error) HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &input); err != nil {
				return err
			}
		}

		return handler(ctx, conn, input)
	}
}
