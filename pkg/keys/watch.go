package keys

import (
	"context"
	"net/http"

	"go.uber.org/atomic"

	"github.com/keboola/etcd-keys-client/internal/pkg/utils/errors"
)

// ErrClosed is returned by a watch created on a closed client.
var ErrClosed = errors.New("keys client is closed")

// WatchCallback receives the decoded response of a watch, a success or an error envelope.
type WatchCallback func(response *Response)

type watchConfig struct {
	recursive bool
	waitIndex uint64
}

type WatchOption func(c *watchConfig)

// WithRecursiveWatch resolves the watch on a change of any descendant of the key.
func WithRecursiveWatch() WatchOption {
	return func(c *watchConfig) {
		c.recursive = true
	}
}

// WithWaitIndex resolves the watch on the first change with modified index >= index,
// including changes made before the watch has been created.
func WithWaitIndex(index uint64) WatchOption {
	return func(c *watchConfig) {
		c.waitIndex = index
	}
}

// States of the callback, a watch leaves the pending state at most once.
const (
	watchPending int32 = iota
	watchFired
	watchCancelled
)

// Watch is one outstanding long poll.
type Watch struct {
	key      string
	cancel   context.CancelFunc
	done     chan struct{}
	state    *atomic.Int32
	response *Response
	err      error
}

func newWatch(key string, cancel context.CancelFunc) *Watch {
	return &Watch{
		key:    NormalizeKey(key),
		cancel: cancel,
		done:   make(chan struct{}),
		state:  atomic.NewInt32(watchPending),
	}
}

// Key returns the watched key.
func (w *Watch) Key() string {
	return w.key
}

// Done is closed when the long poll ends and the callback, if any, has returned.
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

// Cancel aborts the long poll.
// The callback is not called after Cancel, unless it has already been started.
func (w *Watch) Cancel() {
	w.state.CompareAndSwap(watchPending, watchCancelled)
	w.cancel()
}

// Wait blocks until the watch ends.
// The response is the decoded envelope, the error is *TransportError, *DecodeError or ErrClosed.
func (w *Watch) Wait() (*Response, error) {
	<-w.done
	return w.response, w.err
}

// Fired returns true if the callback has been called.
func (w *Watch) Fired() bool {
	return w.state.Load() == watchFired
}

// claim reserves the callback call, it fails if the watch has been cancelled or already fired.
func (w *Watch) claim() bool {
	return w.state.CompareAndSwap(watchPending, watchFired)
}

// Watch waits for the next change of the key, it does not block.
//
// Exactly one long poll request is sent, the watch is not re-armed.
// The onComplete callback is called at most once, on another goroutine,
// when a response is decoded. It is not called on cancellation, network failure or a malformed body,
// use Watch.Wait to get these errors. Callbacks of multiple watches are not ordered,
// any state shared with the callback must be synchronized by the caller.
//
// The long poll is not limited by the transport timeout, it ends on ctx cancellation,
// Watch.Cancel or Client.Close.
func (c *Client) Watch(ctx context.Context, key string, onComplete WatchCallback, opts ...WatchOption) *Watch {
	cfg := watchConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	params := Params{"wait": true}
	if cfg.recursive {
		params["recursive"] = true
	}
	if cfg.waitIndex > 0 {
		params["waitIndex"] = cfg.waitIndex
	}

	ctx, cancel := context.WithCancel(ctx)
	w := newWatch(key, cancel)

	c.watchesLock.Lock()
	if c.closed {
		c.watchesLock.Unlock()
		cancel()
		w.err = ErrClosed
		close(w.done)
		return w
	}
	c.watches[w] = struct{}{}
	c.watchGroup.Add(1)
	c.watchesLock.Unlock()

	request := c.newRequest(ctx, http.MethodGet, key, params).SetLongPoll()
	startTime := c.clock.Now()
	c.logger.Debugf(`watch "%s" armed`, w.key)

	go func() {
		defer c.watchGroup.Done()
		defer c.forgetWatch(w)
		defer close(w.done)
		defer cancel()

		w.response, w.err = c.send(request)
		switch {
		case ctx.Err() != nil:
			c.logger.Debugf(`watch "%s" cancelled after %s`, w.key, c.clock.Since(startTime))
			if w.err == nil {
				w.err = &TransportError{Method: http.MethodGet, URL: request.URL, Err: ctx.Err()}
				w.response = nil
			}
		case w.err != nil:
			c.logger.Debugf(`watch "%s" failed after %s: %s`, w.key, c.clock.Since(startTime), w.err)
		default:
			c.logger.Debugf(`watch "%s" resolved after %s`, w.key, c.clock.Since(startTime))
			switch {
			case onComplete == nil:
			case w.claim():
				onComplete(w.response)
			default:
				// Cancelled after the response has been decoded
				w.err = &TransportError{Method: http.MethodGet, URL: request.URL, Err: context.Canceled}
				w.response = nil
			}
		}
	}()

	return w
}

func (c *Client) forgetWatch(w *Watch) {
	c.watchesLock.Lock()
	defer c.watchesLock.Unlock()
	delete(c.watches, w)
}

// Watches returns the number of outstanding watches.
func (c *Client) Watches() int {
	c.watchesLock.Lock()
	defer c.watchesLock.Unlock()
	return len(c.watches)
}
