package controller

import (
	"context"
	"strconv"
	"time"
)

type contextKey int

const (
	roomIdCtxKey contextKey = iota
	uidCtxKey
	sessionIdCtxKey
)

func (c controller) getRoomIdFromCtx(ctx context.Context) string {
	roomId, ok := ctx.Value(roomIdCtxKey).(string)
	if !ok {
		return ""
	}

	return roomId
}

func (c controller) getUidFromCtx(ctx context.Context) string {
	uid, ok := ctx.Value(uidCtxKey).(string)
	if !ok {
		return ""
	}

	return uid
}

func (c controller) getSessionIdFromCtx(ctx context.Context) string {
	sessionId, ok := ctx.Value(sessionIdCtxKey).(string)
	if !ok {
		return ""
	}

	return sessionId
}

func (c controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}
