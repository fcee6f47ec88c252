package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	repository "github.com/sharetube/jam/internal/repository/jam"
	"github.com/sharetube/jam/internal/service/jam"
	"github.com/sharetube/jam/pkg/codec"
	"github.com/sharetube/jam/pkg/ctxlogger"
	"github.com/sharetube/jam/pkg/wsrouter"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"
)

const (
	closeKicked    = 4001
	closeForbidden = 4003

	outboundBuffer = 16
	writeTimeout   = 10 * time.Second
	maxMessageSize = 64 << 10
)

var (
	errSessionClosed      = errors.New("session closed")
	errSubscriptionClosed = errors.New("subscription closed")
	errRateLimited        = fmt.Errorf("%w: too many requests", jam.ErrInvalidRequest)
)

type closeFrame struct {
	code   int
	reason string
}

// outbound is one item for the writer: an update, or a close frame that ends
// the session.
type outbound struct {
	update *jam.Update
	close  *closeFrame
}

// session is the state of one live socket. Only the writer touches the
// socket for data frames.
type session struct {
	conn       *websocket.Conn
	identity   jam.Identity
	out        chan outbound
	limiter    *rate.Limiter
	background conc.WaitGroup
}

func (s *session) send(ctx context.Context, update jam.Update) {
	select {
	case s.out <- outbound{update: &update}:
	case <-ctx.Done():
	}
}

func (s *session) close(ctx context.Context, code int, reason string) {
	select {
	case s.out <- outbound{close: &closeFrame{code: code, reason: reason}}:
	case <-ctx.Done():
	}
}

func (s *session) spawn(ctx context.Context, fn func(context.Context)) {
	s.background.Go(func() { fn(ctx) })
}

func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.URL.Query().Get("id")
	if id == "" {
		c.writeError(ctx, w, http.StatusUnauthorized, errors.New("id is required"))
		return
	}

	identity, err := c.jamService.ResolveIdentity(ctx, id)
	if err != nil {
		c.writeError(ctx, w, statusFor(err), err)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to upgrade", "error", err)
		return
	}
	defer conn.Close()

	if err := c.connRepo.Add(conn, identity.Id); err != nil {
		c.logger.WarnContext(ctx, "failed to register connection", "error", err)
		return
	}
	defer c.connRepo.Remove(conn)

	ctx = ctxlogger.AppendCtx(ctx, slog.String("jam_id", identity.JamId))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("identity_id", identity.Id))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("role", identity.Role.String()))
	ctx = context.WithValue(ctx, identityCtxKey, identity)

	c.logger.InfoContext(ctx, "connected")
	err = c.runSession(ctx, conn, identity)
	c.logger.InfoContext(ctx, "disconnected", "reason", err)
}

// runSession runs the reader, the bus listener, the writer and, for hosts,
// the reconciler until one of them stops.
func (c controller) runSession(ctx context.Context, conn *websocket.Conn, identity jam.Identity) error {
	sub, err := c.jamService.Subscribe(ctx, identity.JamId)
	if err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(writeTimeout))
		return err
	}
	defer sub.Close()

	conn.SetReadLimit(maxMessageSize)
	s := &session{
		conn:     conn,
		identity: identity,
		out:      make(chan outbound, outboundBuffer),
		limiter:  rate.NewLimiter(c.requestsLimit, c.requestsBurst),
	}
	ctx = context.WithValue(ctx, sessionCtxKey, s)

	// subscribed first, so nothing published after the snapshot is missed
	s.send(ctx, c.jamService.Materialize(ctx, jam.AllChanged(), identity))

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		return c.write(ctx, s)
	})
	p.Go(func(ctx context.Context) error {
		return c.read(ctx, s)
	})
	p.Go(func(ctx context.Context) error {
		return c.listen(ctx, s, sub)
	})
	if identity.IsHost() {
		p.Go(func(ctx context.Context) error {
			return c.reconcile(ctx, s)
		})
	}

	err = p.Wait()
	s.background.Wait()

	return err
}

// write is the only task that writes data frames to the socket. Updates
// already queued are merged into one frame.
func (c controller) write(ctx context.Context, s *session) error {
	defer s.conn.Close()

	var carried *outbound
	for {
		var msg outbound
		if carried != nil {
			msg, carried = *carried, nil
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case msg = <-s.out:
			}
		}

		if msg.close != nil {
			return c.writeClose(s, msg.close)
		}

		update, next := drainQueued(*msg.update, s.out)
		data, err := codec.Marshal(update)
		if err != nil {
			c.logger.ErrorContext(ctx, "failed to encode update", "error", err)
			return fmt.Errorf("%w: %w", jam.ErrEncode, err)
		}

		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			return fmt.Errorf("write: %w", err)
		}

		carried = next
	}
}

// drainQueued merges the updates already waiting in out into update. It stops
// at a close frame or an update that cannot be merged and hands that back.
func drainQueued(update jam.Update, out <-chan outbound) (jam.Update, *outbound) {
	for {
		select {
		case next := <-out:
			if next.close != nil || !update.CanMerge(*next.update) {
				return update, &next
			}
			update = update.Merge(*next.update)
		default:
			return update, nil
		}
	}
}

func (c controller) writeClose(s *session, frame *closeFrame) error {
	if err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(frame.code, frame.reason),
		time.Now().Add(writeTimeout),
	); err != nil {
		return fmt.Errorf("write close: %w", err)
	}

	return fmt.Errorf("%w: %d %s", errSessionClosed, frame.code, frame.reason)
}

// read decodes requests one at a time, so the mutations of one connection
// never interleave.
func (c controller) read(ctx context.Context, s *session) error {
	router := c.getWSRouter()
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		if messageType != websocket.BinaryMessage {
			s.close(ctx, websocket.CloseUnsupportedData, "binary frames only")
			return nil
		}

		if !s.limiter.Allow() {
			s.send(ctx, jam.ErrorUpdate(errRateLimited))
			continue
		}

		err = router.ServeMessage(ctx, data)
		if err == nil {
			continue
		}

		if code, fatal := closeCodeFor(err); fatal {
			c.logger.WarnContext(ctx, "protocol violation", "error", err)
			s.close(ctx, code, closeReason(err))
			return nil
		}

		s.send(ctx, jam.ErrorUpdate(err))
	}
}

// listen turns bus notifications into this connection's own view.
func (c controller) listen(ctx context.Context, s *session, sub repository.Subscription) error {
	for {
		var payload string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p, ok := <-sub.Messages():
			if !ok {
				return errSubscriptionClosed
			}
			payload = p
		}

		msg, err := jam.DecodeBusMessage(payload)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to decode bus message", "error", err)
			continue
		}

		if msg.Changed.Ended {
			update := jam.ErrorUpdate()
			update.Ended = true
			s.send(ctx, update)
			s.close(ctx, websocket.CloseNormalClosure, "jam ended")
			return nil
		}

		if msg.Changed.Users && !s.identity.IsHost() {
			if _, err := c.jamService.ResolveIdentity(ctx, s.identity.Id); errors.Is(err, jam.ErrNotFound) {
				s.close(ctx, closeKicked, "kicked")
				return nil
			}
		}

		update := c.jamService.Materialize(ctx, msg.Changed, s.identity)
		update.Errors = append(update.Errors, msg.Errors...)
		if !update.IsEmpty() {
			s.send(ctx, update)
		}
	}
}

// reconcile runs the host's correction loop until the jam disappears.
func (c controller) reconcile(ctx context.Context, s *session) error {
	ticker := time.NewTicker(c.reconcileInterval)
	defer ticker.Stop()

	var lastErr string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		err := c.jamService.Reconcile(ctx, s.identity)
		if errors.Is(err, jam.ErrNotFound) {
			c.logger.InfoContext(ctx, "jam is gone, reconciliation stopped")
			return nil
		}
		if err == nil {
			lastErr = ""
			continue
		}

		c.logger.InfoContext(ctx, "reconciliation failed", "error", err)
		// a repeated failure reaches the host once
		if err.Error() != lastErr {
			lastErr = err.Error()
			s.send(ctx, jam.ErrorUpdate(err))
		}
	}
}

// closeCodeFor picks the close code for errors that end the connection.
func closeCodeFor(err error) (int, bool) {
	switch {
	case errors.Is(err, wsrouter.ErrMalformedMessage),
		errors.Is(err, wsrouter.ErrUnknownMessageType),
		errors.Is(err, jam.ErrDecode):
		return websocket.CloseUnsupportedData, true
	case errors.Is(err, jam.ErrPermissionDenied):
		return closeForbidden, true
	}

	return 0, false
}

// closeReason fits the error into a close frame, which caps the reason at
// 123 bytes.
func closeReason(err error) string {
	reason := err.Error()
	if len(reason) > 123 {
		reason = reason[:123]
	}

	return reason
}
