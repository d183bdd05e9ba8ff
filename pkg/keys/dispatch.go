package keys

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/spf13/cast"

	"github.com/keboola/etcd-keys-client/pkg/client"
)

// Params of an operation, values are converted to strings.
type Params map[string]any

func (p Params) strings() map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = cast.ToString(v)
	}
	return out
}

// newRequest composes the request, parameters are sent as the form body for PUT/POST, otherwise as the query string.
func (c *Client) newRequest(ctx context.Context, method, key string, params Params) *client.Request {
	request := c.transport.NewRequest(ctx, method, c.URL(key))
	switch method {
	case http.MethodPut, http.MethodPost:
		if len(params) > 0 {
			request.SetFormData(params.strings())
		}
	default:
		for name, value := range params.strings() {
			request.SetQueryParam(name, value)
		}
	}

	// The server may label the JSON body as "text/plain"
	return request.ForceJSON()
}

// execute performs exactly one round trip and decodes the envelope.
// The error envelope is returned as the response, the error is *TransportError or *DecodeError.
func (c *Client) execute(ctx context.Context, method, key string, params Params) (*Response, error) {
	return c.send(c.newRequest(ctx, method, key, params))
}

func (c *Client) send(request *client.Request) (*Response, error) {
	result := c.transport.Send(request)
	if result.HasError() {
		return nil, &TransportError{Method: result.Method(), URL: result.URL(), Err: result.Err()}
	}
	return decode(result)
}

func decode(result *client.Response) (*Response, error) {
	body := result.Body()
	response := &Response{}
	if err := json.Unmarshal(body, response); err != nil {
		return nil, newDecodeError(result.StatusCode(), body, err)
	}
	if err := response.validate(); err != nil {
		return nil, newDecodeError(result.StatusCode(), body, err)
	}

	header := result.Header()
	response.StatusCode = result.StatusCode()
	response.EtcdIndex = headerUint(header, "X-Etcd-Index")
	response.RaftIndex = headerUint(header, "X-Raft-Index")
	response.RaftTerm = headerUint(header, "X-Raft-Term")
	return response, nil
}

// headerUint returns 0 if the header is missing or invalid.
func headerUint(header http.Header, name string) uint64 {
	v, err := strconv.ParseUint(header.Get(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
