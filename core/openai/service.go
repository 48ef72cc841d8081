package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/koscakluka/aiproxy-core/core/proxy"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// UnsuccessfulRequestError is returned for any response status above 299.
type UnsuccessfulRequestError struct {
	StatusCode int
	Body       string
}

func (e *UnsuccessfulRequestError) Error() string {
	return fmt.Sprintf("unsuccessful request (status %d): %s", e.StatusCode, e.Body)
}

// Service calls the provider endpoints through the forwarding proxy.
type Service struct {
	proxy      *proxy.Client
	httpClient *http.Client

	requestsFailed metric.Int64Counter
}

type Option func(*Service)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.httpClient = client
	}
}

func NewService(client *proxy.Client, opts ...Option) *Service {
	s := &Service{
		proxy:      client,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	s.requestsFailed, err = meter.Int64Counter("openai.requests.failed",
		metric.WithDescription("Requests that failed or returned an unsuccessful status"),
	)
	if err != nil {
		logger.Error("failed to create requests failed counter", "error", err)
	}
	return s
}

// do sends the request and returns the response of a successful status. The
// caller closes the body.
func (s *Service) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	ctx, span := tracer.Start(ctx, "call "+path)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method))

	fail := func(err error) (*http.Response, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.requestsFailed != nil {
			s.requestsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
		}
		return nil, err
	}

	req, err := s.proxy.NewRequest(ctx, method, path, body, contentType)
	if err != nil {
		return fail(err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("failed to send request: %w", err))
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			logger.WarnContext(ctx, "failed to read unsuccessful response body", "error", err)
		}
		return fail(&UnsuccessfulRequestError{StatusCode: resp.StatusCode, Body: string(data)})
	}
	return resp, nil
}

func (s *Service) doJSON(ctx context.Context, path string, request, response any) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
