package conversation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChatServer(t *testing.T, provider ModelProvider) *httptest.Server {
	t.Helper()
	o := NewOrchestrator(provider, echoRegistry(t), NewMemorySessionStore(time.Hour, 100), nil, nil, nil, OrchestratorConfig{
		SystemPrompt: "assistant",
		CallTimeout:  5 * time.Second,
	})
	h := NewHandler(o, nil)

	r := chi.NewRouter()
	r.Post("/chat", h.Chat)
	r.Get("/chat/{sessionID}", h.History)
	r.Delete("/chat/{sessionID}", h.DeleteHistory)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postChat(t *testing.T, srv *httptest.Server, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/chat", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestChatEndpoint(t *testing.T) {
	srv := newTestChatServer(t, &scriptedProvider{replies: []Reply{{Text: "Hi! How can I help?"}}})

	resp := postChat(t, srv, ChatRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Hi! How can I help?", out.Message)
	assert.NotEmpty(t, out.SessionID)
	assert.Len(t, out.History, 2)
}

func TestChatEndpointValidation(t *testing.T) {
	srv := newTestChatServer(t, &scriptedProvider{replies: []Reply{{Text: "x"}}})

	resp := postChat(t, srv, ChatRequest{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	raw, err := http.Post(srv.URL+"/chat", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestHistoryEndpointLifecycle(t *testing.T) {
	srv := newTestChatServer(t, &scriptedProvider{replies: []Reply{{Text: "Noted."}}})

	resp := postChat(t, srv, ChatRequest{Message: "remember me"})
	var out ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	histResp, err := http.Get(srv.URL + "/chat/" + out.SessionID)
	require.NoError(t, err)
	defer histResp.Body.Close()
	require.Equal(t, http.StatusOK, histResp.StatusCode)

	var session Session
	require.NoError(t, json.NewDecoder(histResp.Body).Decode(&session))
	assert.Equal(t, out.SessionID, session.ID)
	assert.Len(t, session.Turns, 2)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/chat/"+out.SessionID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	gone, err := http.Get(srv.URL + "/chat/" + out.SessionID)
	require.NoError(t, err)
	defer gone.Body.Close()
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
}

func TestHistoryEndpointUnknownSession(t *testing.T) {
	srv := newTestChatServer(t, &scriptedProvider{replies: []Reply{{Text: "x"}}})

	resp, err := http.Get(srv.URL + "/chat/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
