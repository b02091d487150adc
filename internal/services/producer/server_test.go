package producer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/domain/settings"
)

func newTestServer(t *testing.T) (*httptest.Server, fixture) {
	t.Helper()
	f := newFixture(t)
	mux := http.NewServeMux()
	NewServer(zap.NewNop(), f.uc, f.settings).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, f
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServer_CreateStatusCodes(t *testing.T) {
	srv, _ := newTestServer(t)

	const literal = `{"recipient_id":"A","sender_id":"B","type":"follow","title":"t","message":"m",
		"created_at":"2026-05-01T09:00:00Z","nonce":"n0nce1234"}`

	resp := do(t, http.MethodPost, srv.URL+"/v1/notifications", literal)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var res Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.Created)
	require.NotNil(t, res.Notification)
	assert.Equal(t, "follow_B_A_none_1777626000000_n0nce1234", res.Notification.ID)

	resp = do(t, http.MethodPost, srv.URL+"/v1/notifications", literal)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/v1/notifications", `{"recipient_id":"A","sender_id":"A","type":"star"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/v1/notifications", `{"recipient_id":"A","type":"poke"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/v1/notifications", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Settings(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPatch, srv.URL+"/v1/users/A/settings", `{"enabled":{"star":false}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/v1/users/A/settings", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st settings.Settings
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.False(t, st.Allows(notification.TypeStar))
	assert.True(t, st.Allows(notification.TypeFollow))

	resp = do(t, http.MethodPatch, srv.URL+"/v1/users/A/settings", `{"enabled":{"poke":false}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/v1/notifications", `{"recipient_id":"A","sender_id":"B","type":"star"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}
