package realtime

import (
	"context"
	"net/http"
)

type MessageType int

const (
	MessageText MessageType = iota + 1
	MessageBinary
)

// Message is one inbound frame. Text and binary frames are both decoded from
// Data.
type Message struct {
	Type MessageType
	Data []byte
}

// Transport opens the duplex stream of a session.
type Transport interface {
	Open(ctx context.Context, endpoint string, header http.Header) (Stream, error)
}

// Stream is a duplex message stream. Send may be called concurrently with
// Receive. Close must unblock a pending Receive and be safe to call more than
// once.
type Stream interface {
	Send(ctx context.Context, data []byte) error
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// ConnectionProvider supplies the authenticated endpoint and headers used to
// open the stream.
type ConnectionProvider interface {
	RealtimeConnection(ctx context.Context) (endpoint string, header http.Header, err error)
}

type staticConnection struct {
	endpoint string
	header   http.Header
}

func (c staticConnection) RealtimeConnection(context.Context) (string, http.Header, error) {
	return c.endpoint, c.header.Clone(), nil
}
