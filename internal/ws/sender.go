package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

const _writeWait = 5 * time.Second

// ConnSender pushes JSON text frames over one websocket connection. The
// mutex serialises policy pushes with control frames.
type ConnSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewConnSender(conn *websocket.Conn) *ConnSender {
	return &ConnSender{conn: conn}
}

func (s *ConnSender) Send(v any) error {
	b, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: can't encode message", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(_writeWait)); err != nil {
		return fmt.Errorf("%w: %s", ErrSubscriptionClosed, err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("%w: %s", ErrSubscriptionClosed, err)
	}

	return nil
}

func (s *ConnSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := time.Now().Add(_writeWait)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return s.conn.Close()
}
