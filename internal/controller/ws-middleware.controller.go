package controller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"github.com/sharetube/jam/internal/service/jam"
	"github.com/sharetube/jam/pkg/ctxlogger"
	"github.com/sharetube/jam/pkg/wsrouter"
)

// permissions lists the roles allowed to send each request type.
var permissions = map[string][]jam.Role{
	typeKickUser:   {jam.RoleHost},
	typePosition:   {jam.RoleHost},
	typeNextSong:   {jam.RoleHost},
	typeAddSong:    {jam.RoleUser},
	typeAddVote:    {jam.RoleUser},
	typeRemoveVote: {jam.RoleUser},
	typeSearch:     {jam.RoleUser},
	typeRemoveSong: {jam.RoleHost, jam.RoleUser},
	typeUpdate:     {jam.RoleHost, jam.RoleUser},
}

func (c controller) wsRequestIdWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, payload any) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", c.generateTimeBasedId()))
			return next(ctx, payload)
		}
	}
}

func (c controller) loggerWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, payload any) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
			c.logger.InfoContext(ctx, "websocket message received", "payload", payload)

			start := time.Now()

			err := next(ctx, payload)

			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			c.logger.InfoContext(ctx, "websocket message handled",
				"error", err,
				"processing_time_us", time.Since(start).Microseconds(),
				"alloc", memStats.Alloc/1024,
				"goroutines", runtime.NumGoroutine(),
			)

			return err
		}
	}
}

func (c controller) authorizeWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, payload any) error {
			messageType := wsrouter.GetMessageTypeFromCtx(ctx)
			identity := c.getIdentityFromCtx(ctx)
			if !slices.Contains(permissions[messageType], identity.Role) {
				return fmt.Errorf("%w: %s may not send %s", jam.ErrPermissionDenied, identity.Role, messageType)
			}

			return next(ctx, payload)
		}
	}
}

func (c controller) validateWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, payload any) error {
			if err := c.validate.Check(payload); err != nil {
				return fmt.Errorf("%w: %w", jam.ErrInvalidRequest, err)
			}

			return next(ctx, payload)
		}
	}
}
