package realtime

import "sync"

// NewSyncConn wraps a transport connection with a write mutex. The websocket
// implementation does not allow concurrent writers on one connection, and
// broadcasts for different rooms run on different goroutines.
func NewSyncConn(c Conn) Conn {
	return &syncConn{inner: c}
}

type syncConn struct {
	mu    sync.Mutex
	inner Conn
}

func (s *syncConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.WriteJSON(v)
}
