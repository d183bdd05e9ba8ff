// Package keys is a client of the etcd v2 keys API.
//
// Each operation is exactly one HTTP round trip to "{endpoint}/v2/keys/{key}".
// The store errors are returned as data, see Response.IsError,
// network failures and malformed bodies are returned as *TransportError and *DecodeError.
package keys

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/keboola/etcd-keys-client/internal/pkg/utils/errors"
	"github.com/keboola/etcd-keys-client/pkg/client"
)

// Client of the keys API, safe for concurrent use.
type Client struct {
	root      *url.URL
	transport *client.Client
	logger    *zap.SugaredLogger
	clock     clockwork.Clock

	watchesLock *sync.Mutex
	watches     map[*Watch]struct{}
	watchGroup  *sync.WaitGroup
	closed      bool
}

type config struct {
	clock  clockwork.Clock
	logger *zap.SugaredLogger
}

type Option func(c *config)

func WithClock(clock clockwork.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithLogger overrides the logger, by default the transport logger is used.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// New creates the client. Only scheme, user and host of the endpoint are used, the path is ignored.
func New(endpoint string, transport *client.Client, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, errors.New("transport must be set")
	}

	root, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, `invalid endpoint "%s"`, endpoint)
	}
	if root.Scheme == "" || root.Host == "" {
		return nil, errors.Errorf(`invalid endpoint "%s": expected "scheme://host[:port]"`, endpoint)
	}

	cfg := config{clock: clockwork.NewRealClock(), logger: transport.Logger()}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop().Sugar()
	}

	return &Client{
		root:        &url.URL{Scheme: root.Scheme, User: root.User, Host: root.Host},
		transport:   transport,
		logger:      cfg.logger,
		clock:       cfg.clock,
		watchesLock: &sync.Mutex{},
		watches:     make(map[*Watch]struct{}),
		watchGroup:  &sync.WaitGroup{},
	}, nil
}

// Endpoint returns the root URL of the store.
func (c *Client) Endpoint() string {
	return c.root.String()
}

// URL returns the absolute URL of the key.
func (c *Client) URL(key string) string {
	return Resolve(c.root, key).String()
}

// Set value of the key. The key expires after ttl seconds, ttl <= 0 means no expiration.
func (c *Client) Set(ctx context.Context, key, value string, ttl int) (*Response, error) {
	params := Params{"value": value}
	if ttl > 0 {
		params["ttl"] = ttl
	}
	return c.execute(ctx, http.MethodPut, key, params)
}

// CreateDir creates a directory. The directory expires after ttl seconds, ttl <= 0 means no expiration.
func (c *Client) CreateDir(ctx context.Context, key string, ttl int) (*Response, error) {
	params := Params{"dir": true}
	if ttl > 0 {
		params["ttl"] = ttl
	}
	return c.execute(ctx, http.MethodPut, key, params)
}

type getConfig struct {
	sorted    bool
	recursive bool
}

type GetOption func(c *getConfig)

// WithSorted sorts children of a directory by key.
func WithSorted() GetOption {
	return func(c *getConfig) {
		c.sorted = true
	}
}

// WithRecursive loads all descendants of a directory.
func WithRecursive() GetOption {
	return func(c *getConfig) {
		c.recursive = true
	}
}

// Get the key or the directory listing. Hidden keys are not listed.
func (c *Client) Get(ctx context.Context, key string, opts ...GetOption) (*Response, error) {
	cfg := getConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	params := Params{}
	if cfg.sorted {
		params["sorted"] = true
	}
	if cfg.recursive {
		params["recursive"] = true
	}
	return c.execute(ctx, http.MethodGet, key, params)
}

// Queue creates an in-order child of the directory key.
// The response node contains the key assigned by the server.
func (c *Client) Queue(ctx context.Context, key, value string) (*Response, error) {
	return c.execute(ctx, http.MethodPost, key, Params{"value": value})
}

// Delete the key, use DeleteDir for a directory.
func (c *Client) Delete(ctx context.Context, key string) (*Response, error) {
	return c.execute(ctx, http.MethodDelete, key, nil)
}

// DeleteDir deletes the directory. A non-empty directory is deleted only if recursive is true,
// otherwise the server responds with the ErrCodeDirNotEmpty envelope.
func (c *Client) DeleteDir(ctx context.Context, key string, recursive bool) (*Response, error) {
	params := Params{"dir": true}
	if recursive {
		params["recursive"] = true
	}
	return c.execute(ctx, http.MethodDelete, key, params)
}

// Close cancels all outstanding watches and waits until their goroutines end.
// Close is idempotent, a new watch on a closed client fails immediately.
func (c *Client) Close() {
	c.watchesLock.Lock()
	c.closed = true
	watches := make([]*Watch, 0, len(c.watches))
	for w := range c.watches {
		watches = append(watches, w)
	}
	c.watchesLock.Unlock()

	for _, w := range watches {
		w.Cancel()
	}
	c.watchGroup.Wait()
}
