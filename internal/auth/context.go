package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxCallID ctxKey = iota
	ctxCallMock
)

func WithCall(ctx context.Context, callID string, mock bool) context.Context {
	ctx = context.WithValue(ctx, ctxCallID, callID)
	ctx = context.WithValue(ctx, ctxCallMock, mock)
	return ctx
}

func CallID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxCallID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("call_id not in context")
}

// CallMock reports whether the ticket was issued for a mock call.
func CallMock(ctx context.Context) bool {
	b, _ := ctx.Value(ctxCallMock).(bool)
	return b
}
