// Package testkit holds small helpers for handler tests: fire a JSON request
// at an http.Handler and assert on the envelope it returns.
package testkit

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DoJSON sends a request with the given JSON body to handler and returns the
// recorded response. A nil body sends no payload.
func DoJSON(t *testing.T, handler http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// Envelope is the decoded response wrapper every endpoint writes.
type Envelope struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// DecodeEnvelope asserts the status code and parses the response envelope.
func DecodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, wantCode int) Envelope {
	t.Helper()

	assert.Equal(t, wantCode, rec.Code, "HTTP status code mismatch\nbody: %s", rec.Body.String())

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env),
		"response is not valid JSON\nbody: %s", rec.Body.String())
	return env
}

// DecodeData asserts the status code and unmarshals the envelope's data field
// into dest.
func DecodeData(t *testing.T, rec *httptest.ResponseRecorder, wantCode int, dest interface{}) {
	t.Helper()

	env := DecodeEnvelope(t, rec, wantCode)
	require.NotNil(t, env.Data, "response envelope has no data field\nbody: %s", rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dest))
}
