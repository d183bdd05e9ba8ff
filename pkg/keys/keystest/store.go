package keystest

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// storeError is the error envelope with the HTTP status.
type storeError struct {
	Code    int    `json:"errorCode"`
	Message string `json:"message"`
	Cause   string `json:"cause"`
	Index   uint64 `json:"index"`
	status  int
}

var errorMessages = map[int]string{
	100: "Key not found",
	101: "Compare failed",
	102: "Not a file",
	104: "Not a directory",
	105: "Key already exists",
	107: "The prefix of given key is a keyword in etcd",
	108: "Directory not empty",
	202: "The given TTL in POST form is not a number",
	203: "The given index in POST form is not a number",
	209: "Invalid field",
	401: "The event in requested index is outdated and cleared",
}

var errorStatuses = map[int]int{
	100: http.StatusNotFound,
	101: http.StatusPreconditionFailed,
	102: http.StatusForbidden,
	105: http.StatusPreconditionFailed,
	107: http.StatusForbidden,
	108: http.StatusForbidden,
}

func newStoreError(code int, cause string, index uint64) *storeError {
	status, found := errorStatuses[code]
	if !found {
		status = http.StatusBadRequest
	}
	return &storeError{Code: code, Message: errorMessages[code], Cause: cause, Index: index, status: status}
}

func (e *storeError) Error() string {
	return fmt.Sprintf("%d: %s (%s) [%d]", e.Code, e.Message, e.Cause, e.Index)
}

// node of the in-memory tree.
type node struct {
	key           string
	value         string
	dir           bool
	expiration    *time.Time
	children      map[string]*node
	order         []string // insertion order of children
	createdIndex  uint64
	modifiedIndex uint64
}

func newDir(key string, index uint64) *node {
	return &node{key: key, dir: true, children: make(map[string]*node), createdIndex: index, modifiedIndex: index}
}

func (n *node) name() string {
	return n.key[strings.LastIndex(n.key, "/")+1:]
}

func (n *node) addChild(child *node) {
	name := child.name()
	if _, found := n.children[name]; !found {
		n.order = append(n.order, name)
	}
	n.children[name] = child
}

func (n *node) removeChild(name string) {
	delete(n.children, name)
	for i, v := range n.order {
		if v == name {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

func (n *node) expired(now time.Time) bool {
	return n.expiration != nil && !now.Before(*n.expiration)
}

// view converts the node to the wire format.
// Children are included for depth > 0, hidden children are skipped.
func (n *node) view(now time.Time, depth int, sorted bool) *nodeView {
	out := &nodeView{Key: n.key, Dir: n.dir, CreatedIndex: n.createdIndex, ModifiedIndex: n.modifiedIndex}
	if !n.dir {
		value := n.value
		out.Value = &value
	}
	if n.expiration != nil {
		ttl := int64(n.expiration.Sub(now).Round(time.Second) / time.Second)
		if ttl < 1 {
			ttl = 1
		}
		expiration := n.expiration.UTC().Format(time.RFC3339Nano)
		out.TTL = &ttl
		out.Expiration = &expiration
	}
	if n.dir && depth > 0 {
		names := make([]string, len(n.order))
		copy(names, n.order)
		if sorted {
			sort.Strings(names)
		}
		for _, name := range names {
			if strings.HasPrefix(name, "_") {
				continue
			}
			out.Nodes = append(out.Nodes, n.children[name].view(now, depth-1, sorted))
		}
	}
	return out
}

type nodeView struct {
	Key           string      `json:"key"`
	Value         *string     `json:"value,omitempty"`
	Dir           bool        `json:"dir,omitempty"`
	Expiration    *string     `json:"expiration,omitempty"`
	TTL           *int64      `json:"ttl,omitempty"`
	Nodes         []*nodeView `json:"nodes,omitempty"`
	ModifiedIndex uint64      `json:"modifiedIndex"`
	CreatedIndex  uint64      `json:"createdIndex"`
}

type event struct {
	Action   string    `json:"action"`
	Node     *nodeView `json:"node"`
	PrevNode *nodeView `json:"prevNode,omitempty"`
	index    uint64
}

// matches returns true if the event is a change of the key, or of a descendant if recursive.
func (e *event) matches(key string, recursive bool) bool {
	if e.Node.Key == key {
		return true
	}
	// Deleted directory notifies watchers of the descendants
	if e.Node.Dir && (e.Action == "delete" || e.Action == "expire") && strings.HasPrefix(key, e.Node.Key+"/") {
		return true
	}
	return recursive && (key == "/" || strings.HasPrefix(e.Node.Key, key+"/"))
}
