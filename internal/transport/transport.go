// Package transport executes single HTTP exchanges against provider APIs.
//
// A [Client] performs one call per [Client.Do] (body fully read) or opens one
// streaming connection per [Client.Open] (body left open). It applies two
// timeouts: the request timeout bounds the wait for response headers, the
// resource timeout bounds the whole exchange including the body or stream.
// Any status ≥ 400 is returned as an [*HTTPError] carrying the status code
// and raw body; network-level failures are classified with [Classify].
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/woodman33/llmbridge/internal/utils"
	"github.com/woodman33/llmbridge/providers/observability"
)

const (
	// DefaultRequestTimeout bounds the wait for response headers.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultResourceTimeout bounds a whole exchange, streams included.
	DefaultResourceTimeout = 60 * time.Second

	// maxResponseBodySize caps buffered bodies (10 MB).
	maxResponseBodySize int64 = 10 << 20
)

var (
	// ErrRequestTimeout is the cancellation cause when headers do not arrive in time.
	ErrRequestTimeout = errors.New("request timeout: no response headers received")

	// ErrResourceTimeout is the cancellation cause when the whole exchange runs too long.
	ErrResourceTimeout = errors.New("resource timeout: exchange did not complete")
)

// Request is a single outbound call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a completed, fully read exchange with a 2xx status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// HTTPError reports a completed exchange with status ≥ 400.
type HTTPError struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, utils.Preview(string(e.Body), 200))
}

// Client executes requests with the configured timeouts.
type Client struct {
	httpClient      *http.Client
	requestTimeout  time.Duration
	resourceTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Its own Timeout, if
// any, applies in addition to the client's timeouts.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRequestTimeout sets the header wait bound. Non-positive values keep the default.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.requestTimeout = timeout
		}
	}
}

// WithResourceTimeout sets the whole-exchange bound. Non-positive values keep the default.
func WithResourceTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.resourceTimeout = timeout
		}
	}
}

// New returns a Client with the default timeouts unless overridden.
func New(opts ...Option) *Client {
	client := &Client{
		httpClient:      &http.Client{},
		requestTimeout:  DefaultRequestTimeout,
		resourceTimeout: DefaultResourceTimeout,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// RequestTimeout returns the configured header wait bound.
func (c *Client) RequestTimeout() time.Duration { return c.requestTimeout }

// ResourceTimeout returns the configured whole-exchange bound.
func (c *Client) ResourceTimeout() time.Duration { return c.resourceTimeout }

// Do performs one exchange and reads the full body. Non-2xx statuses are
// returned as *HTTPError; transport failures as classified provider errors.
func (c *Client) Do(ctx context.Context, request Request) (*Response, error) {
	ctx, cancel := c.exchangeContext(ctx)
	defer cancel()

	httpResponse, err := c.send(ctx, request, false)
	if err != nil {
		return nil, err
	}
	defer utils.CloseWithLog(httpResponse.Body)

	body, err := io.ReadAll(io.LimitReader(httpResponse.Body, maxResponseBodySize))
	if err != nil {
		return nil, Classify(ctx, fmt.Errorf("error reading response body: %w", err))
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventHTTPResponse,
			observability.Int(observability.AttrHTTPStatusCode, httpResponse.StatusCode),
			observability.Int(observability.AttrHTTPResponseSize, len(body)),
		)
	}

	if httpResponse.StatusCode >= 400 {
		return nil, &HTTPError{StatusCode: httpResponse.StatusCode, Header: httpResponse.Header, Body: body}
	}
	return &Response{StatusCode: httpResponse.StatusCode, Header: httpResponse.Header, Body: body}, nil
}

// Stream is an open streaming exchange. The body stays readable until Close,
// the resource timeout, or cancellation of the parent context.
type Stream struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser

	ctx    context.Context
	cancel context.CancelFunc
}

// Context is the context governing the connection; read errors should be
// classified against it.
func (s *Stream) Context() context.Context { return s.ctx }

// Close cancels the connection and releases the body.
func (s *Stream) Close() error {
	s.cancel()
	return s.Body.Close()
}

// Open performs the request and returns the open stream once headers arrive.
// On a status ≥ 400 the error body is read, the connection closed and an
// *HTTPError returned.
func (c *Client) Open(ctx context.Context, request Request) (*Stream, error) {
	ctx, cancel := c.exchangeContext(ctx)

	httpResponse, err := c.send(ctx, request, true)
	if err != nil {
		cancel()
		return nil, err
	}

	if httpResponse.StatusCode >= 400 {
		defer cancel()
		defer utils.CloseWithLog(httpResponse.Body)
		body, readErr := io.ReadAll(io.LimitReader(httpResponse.Body, maxResponseBodySize))
		if readErr != nil {
			body = []byte(readErr.Error())
		}
		return nil, &HTTPError{StatusCode: httpResponse.StatusCode, Header: httpResponse.Header, Body: body}
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventHTTPResponse,
			observability.Int(observability.AttrHTTPStatusCode, httpResponse.StatusCode),
			observability.Bool(observability.AttrStreaming, true),
		)
	}

	return &Stream{
		StatusCode: httpResponse.StatusCode,
		Header:     httpResponse.Header,
		Body:       httpResponse.Body,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// exchangeContext derives the context bounding one exchange by the resource timeout.
func (c *Client) exchangeContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeoutCause(parent, c.resourceTimeout, ErrResourceTimeout)
}

// send issues the request and waits for headers, bounded by the request timeout.
func (c *Client) send(ctx context.Context, request Request, streaming bool) (*http.Response, error) {
	method := request.Method
	if method == "" {
		method = http.MethodPost
	}

	// headerCtx is cancelled with ErrRequestTimeout if headers are late. It
	// stays the request's context afterwards, so it must not be cancelled on
	// the success path; the exchange context's cancel releases it.
	headerCtx, cancelHeaders := context.WithCancelCause(ctx)
	timer := time.AfterFunc(c.requestTimeout, func() { cancelHeaders(ErrRequestTimeout) })

	httpRequest, err := http.NewRequestWithContext(headerCtx, method, request.URL, bytes.NewReader(request.Body))
	if err != nil {
		timer.Stop()
		cancelHeaders(nil)
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	for key, values := range request.Header {
		for _, value := range values {
			httpRequest.Header.Add(key, value)
		}
	}
	if httpRequest.Header.Get("Content-Type") == "" {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	if streaming && httpRequest.Header.Get("Accept") == "" {
		httpRequest.Header.Set("Accept", "text/event-stream")
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventHTTPRequest,
			observability.String(observability.AttrHTTPMethod, method),
			observability.String(observability.AttrHTTPURL, request.URL),
			observability.Int(observability.AttrHTTPRequestSize, len(request.Body)),
		)
	}

	start := time.Now()
	httpResponse, err := c.httpClient.Do(httpRequest)
	headersArrived := timer.Stop()
	if err != nil {
		classified := Classify(headerCtx, err)
		cancelHeaders(nil)
		if observer := observability.ObserverFromContext(ctx); observer != nil {
			observer.Debug(ctx, "http request failed",
				observability.String(observability.AttrHTTPURL, request.URL),
				observability.Duration(observability.AttrHTTPDuration, time.Since(start)),
				observability.Error(err),
			)
		}
		return nil, classified
	}
	if !headersArrived && context.Cause(headerCtx) == ErrRequestTimeout {
		// The timer fired just as headers arrived; the request context is
		// already cancelled, so the body is unusable.
		utils.CloseWithLog(httpResponse.Body)
		return nil, Classify(headerCtx, context.Canceled)
	}
	return httpResponse, nil
}
