package inmemory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/jam/internal/repository/connection"
	"golang.org/x/exp/maps"
)

const closeTimeout = time.Second

// repo tracks the live sockets of this process. Nothing in it is
// authoritative; it only exists so every socket can be closed on shutdown.
type repo struct {
	conns  map[*websocket.Conn]string
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		conns:  make(map[*websocket.Conn]string),
		logger: logger,
	}
}

func (r *repo) Add(conn *websocket.Conn, identityId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("called", "identity_id", identityId)
	if _, ok := r.conns[conn]; ok {
		r.logger.Debug("returned", "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.conns[conn] = identityId
	return nil
}

func (r *repo) Remove(conn *websocket.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identityId, ok := r.conns[conn]
	if !ok {
		r.logger.Debug("returned", "error", connection.ErrNotFound)
		return connection.ErrNotFound
	}

	delete(r.conns, conn)
	r.logger.Debug("removed", "identity_id", identityId)
	return nil
}

func (r *repo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// CloseAll sends a close frame to every socket and closes it. Sessions see
// the closed socket and wind down on their own.
func (r *repo) CloseAll(code int, reason string) {
	r.mu.RLock()
	conns := maps.Keys(r.conns)
	r.mu.RUnlock()

	msg := websocket.FormatCloseMessage(code, reason)
	for _, conn := range conns {
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout)); err != nil {
			r.logger.Debug("failed to write close frame", "error", err)
		}
		conn.Close()
	}

	r.logger.Info("closed connections", "count", len(conns))
}
