package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultServiceURL    = "https://api.aiproxy.pro"
	DefaultRealtimeModel = "gpt-4o-realtime-preview-2024-10-01"

	HeaderPartialKey        = "aiproxy-partial-key"
	HeaderClientID          = "aiproxy-client-id"
	HeaderDeviceCheck       = "aiproxy-devicecheck"
	HeaderDeviceCheckBypass = "aiproxy-devicecheck-bypass"
	HeaderMetadata          = "aiproxy-metadata"

	deviceCheckBypassEnv = "AIPROXY_DEVICE_CHECK_BYPASS"
)

// DeviceCheckFunc returns a device attestation token. An empty token omits
// the header.
type DeviceCheckFunc func(ctx context.Context) (string, error)

// Client builds authenticated requests to the forwarding proxy.
type Client struct {
	partialKey        string
	serviceURL        string
	clientID          string
	appVersion        string
	realtimeModel     string
	format            RequestFormat
	deviceCheck       DeviceCheckFunc
	deviceCheckBypass string
}

type Option func(*Client)

// WithServiceURL overrides the proxy base URL. Defaults to DefaultServiceURL.
func WithServiceURL(serviceURL string) Option {
	return func(c *Client) {
		c.serviceURL = serviceURL
	}
}

// WithClientID identifies the end user to the proxy. Defaults to a random id
// generated per client.
func WithClientID(clientID string) Option {
	return func(c *Client) {
		c.clientID = clientID
	}
}

// WithAppVersion reports the calling application version in the metadata
// header.
func WithAppVersion(version string) Option {
	return func(c *Client) {
		c.appVersion = version
	}
}

func WithRequestFormat(format RequestFormat) Option {
	return func(c *Client) {
		c.format = format
	}
}

func WithDeviceCheck(deviceCheck DeviceCheckFunc) Option {
	return func(c *Client) {
		c.deviceCheck = deviceCheck
	}
}

// WithRealtimeModel selects the model of realtime sessions.
func WithRealtimeModel(model string) Option {
	return func(c *Client) {
		c.realtimeModel = model
	}
}

func NewClient(partialKey string, opts ...Option) *Client {
	c := &Client{
		partialKey:    partialKey,
		serviceURL:    DefaultServiceURL,
		clientID:      uuid.NewString(),
		realtimeModel: DefaultRealtimeModel,
		format:        StandardFormat(),
	}
	if bypass, ok := os.LookupEnv(deviceCheckBypassEnv); ok {
		c.deviceCheckBypass = bypass
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRequest creates a request for an endpoint path such as
// "chat/completions", resolved through the configured request format.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	ctx, span := tracer.Start(ctx, "build proxy request")
	defer span.End()

	target, err := c.resolve(c.format.ResolvePath(path))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("request.url", target.String()))

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		err = fmt.Errorf("failed to create request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	req.Header = c.header(ctx)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// RealtimeConnection returns the websocket endpoint and headers of a
// realtime session.
func (c *Client) RealtimeConnection(ctx context.Context) (string, http.Header, error) {
	ctx, span := tracer.Start(ctx, "build realtime connection")
	defer span.End()

	target, err := c.resolve("/v1/realtime?model=" + url.QueryEscape(c.realtimeModel))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", nil, err
	}
	switch target.Scheme {
	case "https":
		target.Scheme = "wss"
	case "http":
		target.Scheme = "ws"
	}
	span.SetAttributes(attribute.String("request.url", target.String()))

	header := c.header(ctx)
	header.Set("Content-Type", "application/json")
	header.Set("openai-beta", "realtime=v1")
	return target.String(), header, nil
}

func (c *Client) resolve(proxyPath string) (*url.URL, error) {
	base, err := url.Parse(c.serviceURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid service url %q", c.serviceURL)
	}
	path, err := url.Parse(proxyPath)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy path %q: %w", proxyPath, err)
	}

	base.Path = strings.TrimSuffix(base.Path, "/") + path.Path
	base.RawPath = ""
	base.RawQuery = path.RawQuery
	return base, nil
}

func (c *Client) header(ctx context.Context) http.Header {
	header := http.Header{}
	header.Set(HeaderPartialKey, c.partialKey)
	if c.clientID != "" {
		header.Set(HeaderClientID, c.clientID)
	}
	if c.deviceCheck != nil {
		token, err := c.deviceCheck(ctx)
		if err != nil {
			logger.WarnContext(ctx, "device check unavailable, continuing without token", "error", err)
		} else if token != "" {
			header.Set(HeaderDeviceCheck, token)
		}
	}
	if c.appVersion != "" {
		header.Set(HeaderMetadata, "v1|"+c.appVersion)
	}
	if c.deviceCheckBypass != "" {
		header.Set(HeaderDeviceCheckBypass, c.deviceCheckBypass)
	}
	return header
}
