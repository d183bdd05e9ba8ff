package client

import (
	"net/http"

	"github.com/go-resty/resty/v2"
)

type Response struct {
	*resty.Response
	request *Request
	err     error // transport error, the HTTP status code is not checked
}

func newResponse(request *Request, response *resty.Response, err error) *Response {
	return &Response{Response: response, request: request, err: err}
}

func (r *Response) HasResponse() bool {
	return r.Response != nil && r.Response.RawResponse != nil
}

func (r *Response) HasError() bool {
	return r.err != nil
}

func (r *Response) Err() error {
	return r.err
}

func (r *Response) StatusCode() int {
	if !r.HasResponse() {
		return 0
	}
	return r.Response.StatusCode()
}

func (r *Response) Header() http.Header {
	if !r.HasResponse() {
		return http.Header{}
	}
	return r.Response.Header()
}

func (r *Response) Body() []byte {
	if r.Response == nil {
		return nil
	}
	return r.Response.Body()
}

func (r *Response) Method() string {
	return r.request.Method
}

func (r *Response) URL() string {
	if r.request.RawRequest != nil {
		return r.request.RawRequest.URL.String()
	}
	return r.request.URL
}
