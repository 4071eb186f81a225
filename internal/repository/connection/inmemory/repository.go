package inmemory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/repository/connection"
)

type repo struct {
	logger *slog.Logger
	conns  map[*websocket.Conn]string
	uids   map[string]*websocket.Conn
	mu     sync.RWMutex
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		logger: logger,
		conns:  make(map[*websocket.Conn]string),
		uids:   make(map[string]*websocket.Conn),
	}
}

func (r *repo) Add(conn *websocket.Conn, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[conn] != "" || r.uids[uid] != nil {
		return connection.ErrAlreadyExists
	}

	r.conns[conn] = uid
	r.uids[uid] = conn

	r.logger.Debug("connection added", "uid", uid)
	return nil
}

// RemoveByUid unregisters the connection and returns it so the caller can
// close it after any final message.
func (r *repo) RemoveByUid(uid string) (*websocket.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.uids[uid]
	if !ok {
		return nil, connection.ErrNotFound
	}

	delete(r.conns, conn)
	delete(r.uids, uid)

	r.logger.Debug("connection removed", "uid", uid)
	return conn, nil
}

func (r *repo) RemoveByConn(conn *websocket.Conn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	uid, ok := r.conns[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	delete(r.conns, conn)
	delete(r.uids, uid)

	r.logger.Debug("connection removed", "uid", uid)
	return uid, nil
}

func (r *repo) GetConn(uid string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.uids[uid]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

func (r *repo) GetUid(conn *websocket.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uid, ok := r.conns[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return uid, nil
}
