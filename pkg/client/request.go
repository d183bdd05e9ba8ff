package client

import (
	"sync"

	"github.com/go-resty/resty/v2"
)

const ContentTypeJSON = "application/json"

type Request struct {
	*resty.Request
	lock     *sync.Mutex
	id       int
	sent     bool
	longPoll bool
}

func newRequest(id int, request *resty.Request) *Request {
	return &Request{
		Request: request,
		lock:    &sync.Mutex{},
		id:      id,
	}
}

func (r *Request) SetHeader(header string, value string) *Request {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Request.SetHeader(header, value)
	return r
}

func (r *Request) SetQueryParam(param, value string) *Request {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Request.SetQueryParam(param, value)
	return r
}

// SetFormData sends the values as the "application/x-www-form-urlencoded" body.
func (r *Request) SetFormData(data map[string]string) *Request {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Request.SetHeader("Content-Type", "application/x-www-form-urlencoded")
	r.Request.SetFormData(data)
	return r
}

// ForceJSON interprets the response body as JSON, even if the server sends another content type.
func (r *Request) ForceJSON() *Request {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Request.SetHeader("Accept", ContentTypeJSON)
	r.Request.ForceContentType(ContentTypeJSON)
	return r
}

// SetLongPoll disables the request timeout, the server may block the response until an event occurs.
func (r *Request) SetLongPoll() *Request {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.longPoll = true
	return r
}
