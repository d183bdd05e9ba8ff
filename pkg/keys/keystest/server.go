// Package keystest provides an in-memory fake of the etcd v2 keys API for tests.
//
// The fake supports set, get, mkdir, delete, in-order keys and long poll watches,
// including TTL. Expired nodes are removed lazily, on the next request.
// GET responses are labelled "text/plain", as some etcd versions do.
package keystest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/atomic"

	"github.com/keboola/etcd-keys-client/pkg/keys"
)

const historyLimit = 1000

type Server struct {
	*httptest.Server
	clock     clockwork.Clock
	requests  *atomic.Int64
	closed    chan struct{}
	closeOnce *sync.Once

	lock     *sync.Mutex
	index    uint64
	raftTerm uint64
	root     *node
	history  []*event
	waiters  map[*waiter]struct{}
}

type waiter struct {
	key        string
	recursive  bool
	sinceIndex uint64
	ch         chan *event
}

type Option func(s *Server)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// NewServer starts the fake server, it is closed by t.Cleanup in the caller or by Close.
func NewServer(opts ...Option) *Server {
	s := &Server{
		clock:     clockwork.NewRealClock(),
		requests:  atomic.NewInt64(0),
		closed:    make(chan struct{}),
		closeOnce: &sync.Once{},
		lock:      &sync.Mutex{},
		raftTerm:  1,
		root:      newDir("/", 0),
		waiters:   make(map[*waiter]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// Close aborts pending long polls and stops the server.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.Server.Close()
	})
}

// Requests returns the number of received requests.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// Index returns the current store index.
func (s *Server) Index() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.index
}

// Waiters returns the number of pending long polls.
func (s *Server) Waiters() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.waiters)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.requests.Inc()

	if !strings.HasPrefix(r.URL.Path, keys.Prefix) {
		http.NotFound(w, r)
		return
	}
	key := keys.NormalizeKey(strings.TrimPrefix(r.URL.Path, keys.Prefix))

	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, newStoreError(210, err.Error(), s.Index()))
		return
	}

	switch r.Method {
	case http.MethodGet:
		if r.Form.Get("wait") == "true" {
			s.handleWait(w, r, key)
		} else {
			s.handleGet(w, r, key)
		}
	case http.MethodPut:
		s.handleSet(w, r, key)
	case http.MethodPost:
		s.handleQueue(w, r, key)
	case http.MethodDelete:
		s.handleDelete(w, r, key)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, key string) {
	s.lock.Lock()
	now := s.clock.Now()
	s.expire(now)
	n, err := s.find(key)
	if err != nil {
		s.lock.Unlock()
		s.writeError(w, r, err)
		return
	}

	depth := 1
	if r.Form.Get("recursive") == "true" {
		depth = int(^uint(0) >> 1)
	}
	ev := &event{Action: "get", Node: n.view(now, depth, r.Form.Get("sorted") == "true")}
	s.lock.Unlock()

	s.writeJSON(w, r, http.StatusOK, ev)
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request, key string) {
	ttl, err := s.parseTTL(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.lock.Lock()
	ev, err := s.set(key, r.Form.Get("value"), r.Form.Get("dir") == "true", ttl)
	s.lock.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if ev.PrevNode == nil {
		status = http.StatusCreated
	}
	s.writeJSON(w, r, status, ev)
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request, key string) {
	ttl, err := s.parseTTL(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.lock.Lock()
	ev, err := s.queue(key, r.Form.Get("value"), ttl)
	s.lock.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, ev)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, key string) {
	s.lock.Lock()
	ev, err := s.delete(key, r.Form.Get("dir") == "true", r.Form.Get("recursive") == "true")
	s.lock.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, ev)
}

func (s *Server) handleWait(w http.ResponseWriter, r *http.Request, key string) {
	recursive := r.Form.Get("recursive") == "true"

	s.lock.Lock()
	s.expire(s.clock.Now())

	// Search history
	var waitIndex uint64
	if str := r.Form.Get("waitIndex"); str != "" {
		var err error
		waitIndex, err = strconv.ParseUint(str, 10, 64)
		if err != nil {
			err := newStoreError(203, "waitIndex", s.index)
			s.lock.Unlock()
			s.writeError(w, r, err)
			return
		}
		if waitIndex <= s.index {
			if len(s.history) > 0 && waitIndex < s.history[0].index {
				err := newStoreError(401, "the requested history has been cleared", s.index)
				s.lock.Unlock()
				s.writeError(w, r, err)
				return
			}
			for _, ev := range s.history {
				if ev.index >= waitIndex && ev.matches(key, recursive) {
					s.lock.Unlock()
					s.writeJSON(w, r, http.StatusOK, ev)
					return
				}
			}
		}
	}

	wt := &waiter{key: key, recursive: recursive, sinceIndex: waitIndex, ch: make(chan *event, 1)}
	s.waiters[wt] = struct{}{}
	s.lock.Unlock()

	select {
	case ev := <-wt.ch:
		s.writeJSON(w, r, http.StatusOK, ev)
	case <-r.Context().Done():
		s.removeWaiter(wt)
	case <-s.closed:
		s.removeWaiter(wt)
	}
}

func (s *Server) removeWaiter(wt *waiter) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.waiters, wt)
}

func (s *Server) parseTTL(r *http.Request) (*time.Duration, *storeError) {
	str := r.Form.Get("ttl")
	if str == "" {
		return nil, nil
	}
	seconds, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return nil, newStoreError(202, "", s.Index())
	}
	ttl := time.Duration(seconds) * time.Second
	return &ttl, nil
}

// find returns the node or the KeyNotFound error, the lock must be held.
func (s *Server) find(key string) (*node, *storeError) {
	n := s.root
	if key == "/" {
		return n, nil
	}
	for _, name := range strings.Split(strings.TrimPrefix(key, "/"), "/") {
		if !n.dir {
			return nil, newStoreError(100, key, s.index)
		}
		child, found := n.children[name]
		if !found {
			return nil, newStoreError(100, key, s.index)
		}
		n = child
	}
	return n, nil
}

// parent returns the parent directory of the key, missing directories are created if index > 0.
// The lock must be held.
func (s *Server) parent(key string, index uint64) (*node, *storeError) {
	n := s.root
	names := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for _, name := range names[:len(names)-1] {
		child, found := n.children[name]
		switch {
		case !found && index == 0:
			return nil, nil
		case !found:
			child = newDir(strings.TrimSuffix(n.key, "/")+"/"+name, index)
			n.addChild(child)
		case !child.dir:
			return nil, newStoreError(104, child.key, s.index)
		}
		n = child
	}
	return n, nil
}

func (s *Server) set(key, value string, dir bool, ttl *time.Duration) (*event, *storeError) {
	if key == "/" {
		return nil, newStoreError(107, "/", s.index)
	}
	now := s.clock.Now()
	s.expire(now)

	// Check before modification
	parent, err := s.parent(key, 0)
	if err != nil {
		return nil, err
	}
	var prev *node
	if parent != nil {
		prev = parent.children[key[strings.LastIndex(key, "/")+1:]]
		if prev != nil && prev.dir {
			return nil, newStoreError(102, key, s.index)
		}
	}

	index := s.index + 1
	parent, err = s.parent(key, index)
	if err != nil {
		return nil, err
	}
	s.index = index

	n := &node{key: key, value: value, createdIndex: index, modifiedIndex: index}
	if dir {
		n = newDir(key, index)
	}
	if ttl != nil {
		expiration := now.Add(*ttl)
		n.expiration = &expiration
	}
	parent.addChild(n)

	ev := &event{Action: "set", Node: n.view(now, 0, false), index: index}
	if prev != nil {
		ev.PrevNode = prev.view(now, 0, false)
	}
	s.publish(ev)
	return ev, nil
}

func (s *Server) queue(key, value string, ttl *time.Duration) (*event, *storeError) {
	now := s.clock.Now()
	s.expire(now)

	index := s.index + 1
	dir, err := s.find(key)
	if err != nil {
		// Create the directory
		if _, err := s.parent(key, 0); err != nil {
			return nil, err
		}
		parent, err := s.parent(key, index)
		if err != nil {
			return nil, err
		}
		dir = newDir(key, index)
		parent.addChild(dir)
	} else if !dir.dir {
		return nil, newStoreError(104, key, s.index)
	}
	s.index = index

	// In-order key, sortable as a string
	n := &node{key: fmt.Sprintf("%s/%020d", strings.TrimSuffix(key, "/"), index), value: value, createdIndex: index, modifiedIndex: index}
	if ttl != nil {
		expiration := now.Add(*ttl)
		n.expiration = &expiration
	}
	dir.addChild(n)

	ev := &event{Action: "create", Node: n.view(now, 0, false), index: index}
	s.publish(ev)
	return ev, nil
}

func (s *Server) delete(key string, dir, recursive bool) (*event, *storeError) {
	if key == "/" {
		return nil, newStoreError(107, "/", s.index)
	}
	now := s.clock.Now()
	s.expire(now)

	n, err := s.find(key)
	if err != nil {
		return nil, err
	}
	if n.dir && !dir && !recursive {
		return nil, newStoreError(102, key, s.index)
	}
	if n.dir && len(n.children) > 0 && !recursive {
		return nil, newStoreError(108, key, s.index)
	}

	return s.remove(n, "delete", now), nil
}

// remove the node and publish the event, the lock must be held.
func (s *Server) remove(n *node, action string, now time.Time) *event {
	parent, _ := s.parent(n.key, 0)
	parent.removeChild(n.name())
	s.index++

	view := &nodeView{Key: n.key, Dir: n.dir, CreatedIndex: n.createdIndex, ModifiedIndex: s.index}
	ev := &event{Action: action, Node: view, PrevNode: n.view(now, 0, false), index: s.index}
	s.publish(ev)
	return ev
}

// expire removes expired nodes, the lock must be held.
func (s *Server) expire(now time.Time) {
	var expired []*node
	var walk func(n *node)
	walk = func(n *node) {
		for _, name := range n.order {
			child := n.children[name]
			if child.expired(now) {
				expired = append(expired, child)
			} else if child.dir {
				walk(child)
			}
		}
	}
	walk(s.root)

	for _, n := range expired {
		s.remove(n, "expire", now)
	}
}

// publish the event to history and waiters, the lock must be held.
func (s *Server) publish(ev *event) {
	s.history = append(s.history, ev)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
	for wt := range s.waiters {
		if ev.index >= wt.sinceIndex && ev.matches(wt.key, wt.recursive) {
			wt.ch <- ev
			delete(s.waiters, wt)
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err *storeError) {
	s.writeJSON(w, r, err.status, err)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	s.lock.Lock()
	index := s.index
	s.lock.Unlock()

	contentType := "application/json"
	if r.Method == http.MethodGet {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Etcd-Index", strconv.FormatUint(index, 10))
	w.Header().Set("X-Raft-Index", strconv.FormatUint(index, 10))
	w.Header().Set("X-Raft-Term", strconv.FormatUint(s.raftTerm, 10))
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
