package wsrouter

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/jam/pkg/codec"
)

var (
	ErrMalformedMessage   = errors.New("malformed message")
	ErrUnknownMessageType = errors.New("unknown message type")
)

type message struct {
	Type    string           `cbor:"type"`
	Payload codec.RawMessage `cbor:"payload,omitempty"`
}

type HandlerFunc[T any] func(ctx context.Context, payload T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

type route struct {
	decode  func(codec.RawMessage) (any, error)
	handler HandlerFunc[any]
}

type WSRouter struct {
	routes      map[string]route
	middlewares []Middleware
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]route)}
}

// Use appends middlewares. The first one added is the outermost.
func (r *WSRouter) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = route{
		decode: func(raw codec.RawMessage) (any, error) {
			var payload T
			if len(raw) == 0 {
				return payload, nil
			}

			if err := codec.Unmarshal(raw, &payload); err != nil {
				return nil, err
			}

			return payload, nil
		},
		handler: func(ctx context.Context, payload any) error {
			return handler(ctx, payload.(T))
		},
	}
}

// ServeMessage decodes one binary frame and runs its handler through the middleware chain.
func (r *WSRouter) ServeMessage(ctx context.Context, data []byte) error {
	var msg message
	if err := codec.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	rt, ok := r.routes[msg.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
	}

	payload, err := rt.decode(msg.Payload)
	if err != nil {
		return fmt.Errorf("%w: %s payload: %w", ErrMalformedMessage, msg.Type, err)
	}

	handler := rt.handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}

	return handler(context.WithValue(ctx, messageTypeKey, msg.Type), payload)
}

// Encode builds a frame that ServeMessage accepts.
func Encode(messageType string, payload any) ([]byte, error) {
	msg := message{Type: messageType}
	if payload != nil {
		raw, err := codec.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}

	return codec.Marshal(msg)
}
