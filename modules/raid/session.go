package raid

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// sendQueueSize bounds the per-session outbound queue. A session whose
// queue is full simply misses frames; it is never allowed to stall the room.
const sendQueueSize = 64

// Conn is the transport surface a session needs. *websocket.Conn satisfies
// it; tests substitute fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session is one live connection plus its participant identity. The
// connection handle is owned exclusively by the session; all writes go
// through the send queue so the underlying conn sees a single writer.
type Session struct {
	ID       string
	Username string
	ClanID   string

	conn        Conn
	send        chan []byte
	done        chan struct{}
	once        sync.Once
	closeCode   int
	closeReason string
}

func newSession(conn Conn, username, clanID string) *Session {
	return &Session{
		ID:       uuid.New().String(),
		Username: username,
		ClanID:   clanID,
		conn:     conn,
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
	}
}

// enqueue offers a frame to the session without blocking. It reports false
// when the session is closed or its queue is full.
func (s *Session) enqueue(b []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- b:
		return true
	default:
		return false
	}
}

// writePump drains the send queue onto the connection. It runs as the
// session's single writer goroutine and owns the connection teardown: on
// close it sends the close control frame with the session's code and
// reason, then drops the conn. It exits on close or write error; a write
// error does not remove the session from the room, the read side's
// disconnect path does that.
func (s *Session) writePump() {
	defer func() {
		_ = s.conn.Close()
	}()
	for {
		select {
		case <-s.done:
			frame := websocket.FormatCloseMessage(s.closeCode, s.closeReason)
			_ = s.conn.WriteMessage(websocket.CloseMessage, frame)
			return
		case b := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Printf("[raid] write to session %s failed: %v", s.ID, err)
				return
			}
		}
	}
}

// close shuts the session down with a normal closure frame.
func (s *Session) close() {
	s.closeWith(websocket.CloseNormalClosure, "")
}

// closeWith records the close code and reason for the write pump to send,
// then signals shutdown. Safe to call more than once; only the first call
// wins.
func (s *Session) closeWith(code int, reason string) {
	s.once.Do(func() {
		s.closeCode = code
		s.closeReason = reason
		close(s.done)
	})
}
