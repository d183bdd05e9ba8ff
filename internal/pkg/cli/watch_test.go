package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/etcd-keys-client/internal/pkg/log"
	"github.com/keboola/etcd-keys-client/pkg/client"
	"github.com/keboola/etcd-keys-client/pkg/keys"
)

const mockedEndpoint = "http://etcd.local:2379"

// mockedWatch replies to the long polls in order, the query of each poll is recorded.
type mockedWatch struct {
	lock      sync.Mutex
	responses []httpmock.Responder
	queries   []string
}

func (m *mockedWatch) responder(req *http.Request) (*http.Response, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	index := len(m.queries)
	m.queries = append(m.queries, req.URL.RawQuery)
	if index >= len(m.responses) {
		return nil, fmt.Errorf("unexpected request %d", index+1)
	}
	return m.responses[index](req)
}

func newMockedWatcher(t *testing.T, flags watchFlags, responses ...httpmock.Responder) (*watcher, *mockedWatch, *bytes.Buffer, *[]string) {
	t.Helper()
	transport := client.New(log.NewNopLogger())
	httpTransport := httpmock.NewMockTransport()
	transport.SetTransport(httpTransport)
	c, err := keys.New(mockedEndpoint, transport)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	mocked := &mockedWatch{responses: responses}
	httpTransport.RegisterResponder(http.MethodGet, mockedEndpoint+"/v2/keys/foo", mocked.responder)

	out := &bytes.Buffer{}
	var warnings []string
	w := &watcher{
		client:  c,
		key:     "foo",
		flags:   flags,
		out:     out,
		backoff: backoff.NewConstantBackOff(time.Millisecond),
		warnf: func(template string, args ...any) {
			warnings = append(warnings, fmt.Sprintf(template, args...))
		},
	}
	return w, mocked, out, &warnings
}

func TestWatchForeverRetriesFailures(t *testing.T) {
	t.Parallel()
	w, mocked, out, warnings := newMockedWatcher(t, watchFlags{forever: true, limit: 1},
		httpmock.NewErrorResponder(errors.New("connection reset")),
		httpmock.NewStringResponder(http.StatusOK, `not json`),
		httpmock.NewStringResponder(http.StatusOK, `{"action":"set","node":{"key":"/foo","value":"v","modifiedIndex":5,"createdIndex":5}}`),
	)

	require.NoError(t, w.forever(context.Background()))

	// Each failure is retried with the same query
	assert.Equal(t, []string{"wait=true", "wait=true", "wait=true"}, mocked.queries)
	require.Len(t, *warnings, 2)
	assert.Contains(t, (*warnings)[0], "Watch failed, retrying in 1ms:")
	assert.Contains(t, (*warnings)[0], "connection reset")
	assert.Contains(t, (*warnings)[1], "Watch failed, retrying in 1ms:")
	assert.Contains(t, (*warnings)[1], "cannot decode response")

	// Only the change is printed
	responses := decodeOutput(t, out.String())
	require.Len(t, responses, 1)
	assert.Equal(t, "v", responses[0].Node.Value)
}

func TestWatchForeverStopsOnBackoffStop(t *testing.T) {
	t.Parallel()
	w, mocked, out, _ := newMockedWatcher(t, watchFlags{forever: true},
		httpmock.NewErrorResponder(errors.New("connection reset")),
	)
	w.backoff = &backoff.StopBackOff{}

	err := w.forever(context.Background())
	var transportErr *keys.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Len(t, mocked.queries, 1)
	assert.Empty(t, out.String())
}

func TestWatchForeverHistoryCleared(t *testing.T) {
	t.Parallel()
	w, mocked, out, warnings := newMockedWatcher(t, watchFlags{forever: true, limit: 1, waitIndex: 2},
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"errorCode":401,"message":"The event in requested index is outdated and cleared","cause":"the requested history has been cleared [1008/2]","index":2007}`),
		httpmock.NewStringResponder(http.StatusOK, `{"action":"set","node":{"key":"/foo","value":"v","modifiedIndex":2010,"createdIndex":2010}}`),
	)

	require.NoError(t, w.forever(context.Background()))

	// The watch continues after the current index
	assert.Equal(t, []string{"wait=true&waitIndex=2", "wait=true&waitIndex=2008"}, mocked.queries)
	require.Len(t, *warnings, 1)
	assert.Contains(t, (*warnings)[0], "Some changes have been missed:")

	// Both envelopes are printed
	responses := decodeOutput(t, out.String())
	require.Len(t, responses, 2)
	assert.True(t, responses[0].IsError())
	assert.Equal(t, keys.ErrCodeEventIndexCleared, *responses[0].ErrorCode)
	assert.Equal(t, "v", responses[1].Node.Value)
}

func TestWatchForeverStopsOnStoreError(t *testing.T) {
	t.Parallel()
	w, mocked, _, _ := newMockedWatcher(t, watchFlags{forever: true},
		httpmock.NewStringResponder(http.StatusNotFound, `{"errorCode":100,"message":"Key not found","cause":"/foo","index":3}`),
	)

	err := w.forever(context.Background())
	assert.True(t, keys.IsStoreErrorCode(err, keys.ErrCodeKeyNotFound))
	assert.Len(t, mocked.queries, 1)
}
