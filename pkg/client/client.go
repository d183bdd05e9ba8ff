// Package client is the HTTP transport of the keys API, a thin wrapper around resty.
// Each Send is exactly one round trip, retries are disabled.
package client

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/keboola/etcd-keys-client/internal/pkg/build"
)

const (
	RequestTimeout        = 30 * time.Second
	HTTPTimeout           = 30 * time.Second
	IdleConnTimeout       = 90 * time.Second
	TLSHandshakeTimeout   = 10 * time.Second
	ExpectContinueTimeout = 2 * time.Second
	KeepAlive             = 20 * time.Second
	MaxIdleConns          = 32
	DebugBodyLimit        = 32 * 1024
)

// Client - http client.
type Client struct {
	logger           *Logger
	resty            *resty.Client // wrapped http client
	timeout          time.Duration // timeout of a request, long poll requests are not limited
	requestIDCounter *atomic.Int64 // each request has unique ID -> for logs
}

type config struct {
	verbose bool
	timeout time.Duration
}

type Option func(c *config)

// WithVerbose logs full request and response, secrets are hidden.
func WithVerbose(verbose bool) Option {
	return func(c *config) {
		c.verbose = verbose
	}
}

// WithTimeout sets timeout of a request, zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.timeout = timeout
	}
}

// New creates the client, nil logger discards all logs.
func New(logger *zap.SugaredLogger, opts ...Option) *Client {
	cfg := config{timeout: RequestTimeout}
	for _, o := range opts {
		o(&cfg)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	client := &Client{}
	client.logger = NewLogger(logger)
	client.timeout = cfg.timeout
	client.resty = createHTTPClient(client.logger)
	client.requestIDCounter = atomic.NewInt64(0)
	setupLogs(client, cfg.verbose)
	return client
}

// SetTransport replaces the round tripper, for example by a mocked one.
func (c *Client) SetTransport(transport http.RoundTripper) *Client {
	c.resty.SetTransport(transport)
	return c
}

func (c *Client) Logger() *zap.SugaredLogger {
	return c.logger.logger
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

func (c *Client) NewRequest(ctx context.Context, method string, url string) *Request {
	r := c.resty.R()
	r.Method = method
	r.URL = url
	r.SetContext(ctx)
	return newRequest(int(c.requestIDCounter.Inc()), r)
}

// Send performs exactly one round trip. The result contains the transport error, if any.
func (c *Client) Send(request *Request) *Response {
	request.lock.Lock()
	if request.sent {
		request.lock.Unlock()
		panic(fmt.Errorf(`request[%d] %s "%s" has already been sent`, request.id, request.Method, request.URL))
	}
	request.sent = true
	longPoll := request.longPoll
	request.lock.Unlock()

	// Long poll waits for a server event, it must not be limited by the request timeout
	if !longPoll && c.timeout > 0 {
		ctx, cancel := context.WithTimeout(request.Context(), c.timeout)
		defer cancel()
		request.Request.SetContext(ctx)
	}

	restyResponse, err := request.Request.Send()
	return newResponse(request, restyResponse, err)
}

func createHTTPClient(logger *Logger) *resty.Client {
	r := resty.New()
	r.SetLogger(logger)
	r.SetHeader("User-Agent", build.UserAgent())
	r.SetRetryCount(0)
	r.SetTransport(createTransport())
	return r
}

// createTransport with custom timeouts.
func createTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   HTTPTimeout,
		KeepAlive: KeepAlive,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          MaxIdleConns,
		IdleConnTimeout:       IdleConnTimeout,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
		MaxIdleConnsPerHost:   MaxIdleConns,
	}
}

func setupLogs(client *Client, verbose bool) {
	// Debug full request and response if verbose = true
	// Secrets are hidden see Logger
	if verbose {
		client.resty.SetDebug(true)
		client.resty.SetDebugBodyLimit(DebugBodyLimit)
	}

	// Log each request when done, HTTP error codes are not errors, the body is decoded by the caller
	client.resty.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		client.logger.Debugf("%s", responseToLog(res))
		return nil
	})

	// Log network errors
	client.resty.OnError(func(req *resty.Request, err error) {
		client.logger.Debugf("%s %s | error: %s", req.Method, urlForLog(req), err)
	})
}

func responseToLog(res *resty.Response) string {
	req := res.Request
	return fmt.Sprintf("%s %s | %d | %s", req.Method, urlForLog(req), res.StatusCode(), res.Time())
}

func urlForLog(request *resty.Request) string {
	if request.RawRequest != nil {
		return request.RawRequest.URL.String()
	}

	// Request has not been sent -> compose query for logs
	url := request.URL
	if len(request.QueryParam) > 0 {
		url += "?" + request.QueryParam.Encode()
	}
	if len(request.FormData) > 0 {
		url += " | form: " + strings.ReplaceAll(request.FormData.Encode(), "&", ", ")
	}
	return url
}
