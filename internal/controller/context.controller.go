package controller

import (
	"context"

	"github.com/sharetube/jam/internal/service/jam"
)

type contextKey int

const (
	identityCtxKey contextKey = iota
	sessionCtxKey
)

func (c controller) getIdentityFromCtx(ctx context.Context) jam.Identity {
	identity, ok := ctx.Value(identityCtxKey).(jam.Identity)
	if !ok {
		return jam.Identity{}
	}

	return identity
}

func (c controller) getSessionFromCtx(ctx context.Context) *session {
	s, ok := ctx.Value(sessionCtxKey).(*session)
	if !ok {
		return nil
	}

	return s
}
