package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

// WebSocketTransport opens session streams over a websocket connection. A
// nil Dialer uses websocket.DefaultDialer.
type WebSocketTransport struct {
	Dialer *websocket.Dialer
}

func (t WebSocketTransport) Open(ctx context.Context, endpoint string, header http.Header) (Stream, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to open socket connection (status %s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("failed to open socket connection: %w", err)
	}

	return &webSocketStream{conn: conn}, nil
}

type webSocketStream struct {
	conn *websocket.Conn

	connMu    sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (s *webSocketStream) Send(ctx context.Context, data []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write to socket: %w", err)
	}
	return nil
}

func (s *webSocketStream) Receive(ctx context.Context) (Message, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	msgType, data, err := s.conn.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Message{}, errors.Join(ctxErr, err)
		}
		return Message{}, fmt.Errorf("failed to read from socket: %w", err)
	}

	switch msgType {
	case websocket.BinaryMessage:
		return Message{Type: MessageBinary, Data: data}, nil
	default:
		return Message{Type: MessageText, Data: data}, nil
	}
}

func (s *webSocketStream) Close() error {
	s.closeOnce.Do(func() {
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod),
		)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
