package keys

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/keboola/etcd-keys-client/internal/pkg/utils/errors"
)

// Actions reported by the server in the success envelope.
const (
	ActionGet              = "get"
	ActionSet              = "set"
	ActionCreate           = "create"
	ActionDelete           = "delete"
	ActionUpdate           = "update"
	ActionExpire           = "expire"
	ActionCompareAndSwap   = "compareAndSwap"
	ActionCompareAndDelete = "compareAndDelete"
)

// Node is one entry of the keyspace, a leaf value or a directory.
// Children are owned by the parent directory, the tree is built fresh per response.
type Node struct {
	Key           string      `json:"key"`
	Value         string      `json:"value,omitempty"`
	Dir           bool        `json:"dir,omitempty"`
	Expiration    *Expiration `json:"expiration,omitempty"`
	TTL           *int64      `json:"ttl,omitempty"`
	Nodes         Nodes       `json:"nodes,omitempty"`
	ModifiedIndex uint64      `json:"modifiedIndex,omitempty"`
	CreatedIndex  uint64      `json:"createdIndex,omitempty"`
}

type Nodes []*Node

func (n *Node) String() string {
	if n.Dir {
		return fmt.Sprintf("{Key: %s, CreatedIndex: %d, ModifiedIndex: %d, TTL: %s, Dir: true, Nodes: %d}", n.Key, n.CreatedIndex, n.ModifiedIndex, n.ttlString(), len(n.Nodes))
	}
	return fmt.Sprintf("{Key: %s, CreatedIndex: %d, ModifiedIndex: %d, TTL: %s}", n.Key, n.CreatedIndex, n.ModifiedIndex, n.ttlString())
}

func (n *Node) ttlString() string {
	if n.TTL == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *n.TTL)
}

// HasTTL returns true if the node expires.
func (n *Node) HasTTL() bool {
	return n.TTL != nil
}

// Walk calls fn for the node and all its descendants, depth first, in the order of the tree.
func (n *Node) Walk(fn func(node *Node)) {
	fn(n)
	for _, child := range n.Nodes {
		child.Walk(fn)
	}
}

// Keys returns keys of the direct children.
func (ns Nodes) Keys() []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Key)
	}
	return out
}

// Response is the envelope of every operation result.
// The success variant contains Action and Node, the error variant contains ErrorCode and Message.
// IsError must be checked before Node is used.
type Response struct {
	// Success
	Action   string `json:"action,omitempty"`
	Node     *Node  `json:"node,omitempty"`
	PrevNode *Node  `json:"prevNode,omitempty"`
	// Error
	ErrorCode *int    `json:"errorCode,omitempty"`
	Cause     string  `json:"cause,omitempty"`
	Index     *uint64 `json:"index,omitempty"`
	Message   string  `json:"message,omitempty"`
	// Transport metadata, not part of the body
	StatusCode int    `json:"-"`
	EtcdIndex  uint64 `json:"-"`
	RaftIndex  uint64 `json:"-"`
	RaftTerm   uint64 `json:"-"`
}

// IsError returns true if the server responded with the error envelope.
func (r *Response) IsError() bool {
	return r.ErrorCode != nil
}

// Err converts the error envelope to a Go error, it returns nil for a success response.
func (r *Response) Err() error {
	if !r.IsError() {
		return nil
	}
	err := &StoreError{Code: *r.ErrorCode, Cause: r.Cause, Message: r.Message}
	if r.Index != nil {
		err.Index = *r.Index
	}
	return err
}

func (r *Response) validate() error {
	switch {
	case r.IsError():
		return nil
	case r.Action == "":
		return errors.New(`neither "action" nor "errorCode" is present`)
	case r.Node == nil:
		return errors.Errorf(`action "%s" without "node"`, r.Action)
	default:
		return nil
	}
}

// Well-known error codes of the store.
const (
	ErrCodeKeyNotFound  = 100
	ErrCodeTestFailed   = 101
	ErrCodeNotFile      = 102
	ErrCodeNotDir       = 104
	ErrCodeNodeExist    = 105
	ErrCodeRootROnly    = 107
	ErrCodeDirNotEmpty  = 108
	ErrCodeUnauthorized = 110

	ErrCodePrevValueRequired = 201
	ErrCodeTTLNaN            = 202
	ErrCodeIndexNaN          = 203
	ErrCodeInvalidField      = 209
	ErrCodeInvalidForm       = 210

	ErrCodeRaftInternal = 300
	ErrCodeLeaderElect  = 301

	ErrCodeWatcherCleared    = 400
	ErrCodeEventIndexCleared = 401
)

// StoreError is the error envelope as a Go error.
type StoreError struct {
	Code    int
	Cause   string
	Index   uint64
	Message string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%d: %s (%s) [%d]", e.Code, e.Message, e.Cause, e.Index)
}

// IsStoreErrorCode returns true if the err is a StoreError with the code.
func IsStoreErrorCode(err error, code int) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Code == code
}

// TransportError is a network failure, no response has been decoded.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf(`request %s "%s" failed: %s`, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is a response body that cannot be decoded to the envelope.
type DecodeError struct {
	StatusCode int
	Body       string // excerpt
	Err        error
}

const decodeErrorBodyLimit = 256

func newDecodeError(statusCode int, body []byte, err error) *DecodeError {
	excerpt := strings.TrimSpace(string(body))
	if len(excerpt) > decodeErrorBodyLimit {
		// Cut at a rune boundary
		end := decodeErrorBodyLimit
		for end > 0 && !utf8.RuneStart(excerpt[end]) {
			end--
		}
		excerpt = excerpt[:end] + "..."
	}
	return &DecodeError{StatusCode: statusCode, Body: excerpt, Err: err}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf(`cannot decode response, status code %d: %s, body: "%s"`, e.StatusCode, e.Err, e.Body)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
