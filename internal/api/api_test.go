package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"norse/internal/protocol"
)

func newTestServer(t *testing.T, token string) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(token, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Close()
	})
	return s, ts
}

func snapshot(frame uint64) protocol.StatesPayload {
	return protocol.StatesPayload{
		Session: "6f1c2b9e-0000-4000-8000-000000000000",
		Frame:   frame,
		Actions: []protocol.ActionState{
			{Set: "default", Action: "fire", Type: "boolean_input", Value: "on", Active: true, Changed: true},
		},
	}
}

func getJSON(t *testing.T, url, token string, v any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK && v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHealth_SkipsAuth(t *testing.T) {
	_, ts := newTestServer(t, "secret")

	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", "", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatus_RequiresToken(t *testing.T) {
	s, ts := newTestServer(t, "secret")
	s.Publish(snapshot(7))

	assert.Equal(t, http.StatusUnauthorized, getJSON(t, ts.URL+"/api/status", "", nil))
	assert.Equal(t, http.StatusUnauthorized, getJSON(t, ts.URL+"/api/status", "wrong", nil))

	var got protocol.StatesPayload
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/status", "secret", &got))
	assert.Equal(t, snapshot(7), got)
}

func TestStatus_MethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, "")

	resp, err := http.Post(ts.URL+"/api/status", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebSocket_ReceivesPublishedStates(t *testing.T) {
	s, ts := newTestServer(t, "")

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	hello, err := protocol.NewMessage(protocol.TypeHello, protocol.HelloPayload{Session: "observer", Version: "test"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(hello))

	require.Eventually(t, func() bool { return s.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.Publish(snapshot(3))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg protocol.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, protocol.TypeStates, msg.Type)

	var got protocol.StatesPayload
	require.NoError(t, msg.Decode(&got))
	assert.Equal(t, uint64(3), got.Frame)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, "on", got.Actions[0].Value)
}

func TestWebSocket_DisconnectUnregisters(t *testing.T) {
	s, ts := newTestServer(t, "")

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_StartAndClose(t *testing.T) {
	s := NewServer("", nil)
	assert.Empty(t, s.Addr())
	require.NoError(t, s.Start("127.0.0.1:0"))
	assert.NotEmpty(t, s.Addr())

	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, "http://"+s.Addr()+"/health", "", &body))
	require.NoError(t, s.Close())

	// publishing after close must not block
	done := make(chan struct{})
	go func() {
		s.Publish(snapshot(1))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after Close")
	}
}
