package cast

// Session models one virtual connection opened with CONNECT on the
// connection namespace (spec §4.E): a (sourceId, destinationId) pair
// layered over the single underlying TLS socket. The table is guarded by
// a sync.RWMutex keyed map, the same shape as the teacher's stream
// Registry (internal/rtmp/server/registry.go), adapted from a stream-key
// string key to the (source, destination) endpoint pair.

import (
	"context"
	"fmt"
	"sync"

	"github.com/alxayo/go-cast/internal/castmsg"
	"github.com/alxayo/go-cast/internal/logger"
)

// SessionClosedListener is notified exactly once when a session is
// removed from its channel's table, whether by local CloseSession, a
// remote CLOSE, or the channel itself closing.
type SessionClosedListener func(*Session)

// Session is a virtual connection scoped to one application instance (or,
// for the platform session, the receiver itself). Its lifetime is
// strictly contained within its owning Channel's lifetime (spec §4.E).
type Session struct {
	SourceID      string
	DestinationID string

	// channel routes Session-scoped operations (the Media API) back
	// through the owning Channel's send/receive machinery. Sessions never
	// touch the socket, the pending-request table, or the session table
	// directly (spec §3's Ownership note).
	channel *Channel

	mu       sync.Mutex
	closed   bool
	onClosed []SessionClosedListener
}

func newSession(sourceID, destinationID string) *Session {
	return &Session{SourceID: sourceID, DestinationID: destinationID}
}

// OnClosed registers a callback invoked when the session is closed. If the
// session is already closed, f runs immediately.
func (s *Session) OnClosed(f SessionClosedListener) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		f(s)
		return
	}
	s.onClosed = append(s.onClosed, f)
	s.mu.Unlock()
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) markClosed() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	listeners := s.onClosed
	s.onClosed = nil
	s.mu.Unlock()
	for _, f := range listeners {
		f(s)
	}
}

type sessionKey struct{ source, dest string }

// sessionTable is the Channel-owned registry of open sessions, keyed by
// (sourceId, destinationId) (spec §4.E).
type sessionTable struct {
	mu    sync.RWMutex
	byKey map[sessionKey]*Session
}

func newSessionTable() *sessionTable {
	return &sessionTable{byKey: make(map[sessionKey]*Session)}
}

func (t *sessionTable) lookup(sourceID, destinationID string) *Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byKey[sessionKey{sourceID, destinationID}]
}

func (t *sessionTable) all() []*Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Session, 0, len(t.byKey))
	for _, s := range t.byKey {
		out = append(out, s)
	}
	return out
}

// start opens a session if one isn't already open for the pair, sending
// CONNECT on the connection namespace (spec §4.E: "startSession is a
// no-op if a session for the pair is already open").
func (t *sessionTable) start(c *Channel, sourceID, destinationID string) (*Session, bool, error) {
	key := sessionKey{sourceID, destinationID}

	t.mu.RLock()
	if s, ok := t.byKey[key]; ok {
		t.mu.RUnlock()
		return s, false, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	if s, ok := t.byKey[key]; ok {
		t.mu.Unlock()
		return s, false, nil
	}
	s := newSession(sourceID, destinationID)
	s.channel = c
	t.byKey[key] = s
	t.mu.Unlock()

	env := castmsg.ConnectionEnvelope{Type: castmsg.TypeConnect}
	err := c.writeEnvelopeFrom(sourceID, castmsg.NamespaceConnection, destinationID, env)
	if err != nil {
		t.mu.Lock()
		delete(t.byKey, key)
		t.mu.Unlock()
		return nil, false, err
	}
	return s, true, nil
}

// removeAndNotify removes the (sourceID, destinationID) session, if any,
// and fires its onClosed listeners.
func (t *sessionTable) removeAndNotify(sourceID, destinationID string) {
	key := sessionKey{sourceID, destinationID}
	t.mu.Lock()
	s, ok := t.byKey[key]
	if ok {
		delete(t.byKey, key)
	}
	t.mu.Unlock()
	if ok {
		s.markClosed()
	}
}

// StartSession opens (or returns the existing) virtual connection between
// sourceID and destinationID, typically the channel's sender id and an
// application's transportId/sessionId (spec §4.E).
func (c *Channel) StartSession(ctx context.Context, sourceID, destinationID string) (*Session, error) {
	if c.currentState() != stateConnected {
		return nil, &ChannelClosedError{Op: "StartSession", Err: fmt.Errorf("channel not connected")}
	}
	s, created, err := c.sessions.start(c, sourceID, destinationID)
	if err != nil {
		return nil, err
	}
	if created {
		logger.WithSession(c.log, sourceID, destinationID).Info("session opened")
	}
	return s, nil
}

// CloseSession sends CLOSE for s and removes it from the table. Closing an
// already-closed session is a no-op.
func (c *Channel) CloseSession(ctx context.Context, s *Session) error {
	if s.Closed() {
		return nil
	}
	env := castmsg.ConnectionEnvelope{Type: castmsg.TypeClose}
	err := c.writeEnvelopeFrom(s.SourceID, castmsg.NamespaceConnection, s.DestinationID, env)
	c.sessions.removeAndNotify(s.SourceID, s.DestinationID)
	logger.WithSession(c.log, s.SourceID, s.DestinationID).Info("session closed", "error", err)
	return err
}
