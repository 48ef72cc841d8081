package openai

import (
	"context"

	"github.com/koscakluka/aiproxy-core/core/protocol"
	"github.com/koscakluka/aiproxy-core/core/realtime"
)

// NewRealtimeSession starts a realtime session over a websocket opened
// through the proxy. Options are applied after the proxy connection, so an
// explicit endpoint overrides it.
func (s *Service) NewRealtimeSession(ctx context.Context, cfg protocol.SessionConfig, opts ...realtime.Option) (*realtime.Engine, error) {
	engineOpts := append([]realtime.Option{realtime.WithConnectionProvider(s.proxy)}, opts...)
	engine := realtime.New(realtime.WebSocketTransport{}, engineOpts...)
	if err := engine.Start(ctx, cfg); err != nil {
		return nil, err
	}
	return engine, nil
}
