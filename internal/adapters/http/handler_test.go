package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/PabloGalante/insight-agent/internal/adapters/http"
	"github.com/PabloGalante/insight-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/insight-agent/internal/app/conversation"
	"github.com/PabloGalante/insight-agent/internal/app/router"
	"github.com/PabloGalante/insight-agent/internal/app/transition"
	"github.com/PabloGalante/insight-agent/internal/domain"
)

func newTestService(t *testing.T) *conversation.Service {
	t.Helper()

	return conversation.NewService(
		router.NewDefault(),
		transition.New(transition.DefaultStep),
		memory.NewSessionStore(),
		memory.NewMessageStore(),
		conversation.WithStepDelay(0),
	)
}

func newTestServer(t *testing.T) (http.Handler, *conversation.Service) {
	t.Helper()
	svc := newTestService(t)
	return httpadapter.NewServer(svc, httpadapter.Options{}), svc
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	}
	req = req.WithContext(context.Background())
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createSession(t *testing.T, srv http.Handler) string {
	t.Helper()
	w := do(t, srv, http.MethodPost, "/sessions", `{"user_id":"test-user","title":"Test"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	session := body["session"].(map[string]any)
	assert.Equal(t, "default", session["mode"])
	assert.NotEmpty(t, body["greeting"])
	return session["id"].(string)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestCreateSessionRequiresUser(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/sessions", `{"title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPost, "/sessions", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessageSwitchesDashboard(t *testing.T) {
	tests := []struct {
		text     string
		intent   string
		mode     string
		firstVal float64
	}{
		{"S25 검증해줘", "causal", "causal", 2.0},
		{"매체 기여도 분석", "attribution", "attribution", 90},
		{"안녕", "unknown", "default", 10000},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			srv, _ := newTestServer(t)
			id := createSession(t, srv)

			w := do(t, srv, http.MethodPost, "/sessions/"+id+"/messages", `{"user_id":"test-user","text":"`+tt.text+`"}`)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			body := decode(t, w)
			assert.Equal(t, tt.intent, body["decision"].(map[string]any)["intent"])
			session := body["session"].(map[string]any)
			assert.Equal(t, tt.mode, session["mode"])
			assert.Nil(t, session["pending"], "transition must have settled")

			w = do(t, srv, http.MethodGet, "/sessions/"+id+"/dashboard", "")
			require.Equal(t, http.StatusOK, w.Code)
			panel := decode(t, w)["panel"].(map[string]any)
			assert.Equal(t, tt.mode, panel["mode"])
			first := panel["series"].([]any)[0].(map[string]any)["values"].([]any)[0]
			assert.Equal(t, tt.firstVal, first)
		})
	}
}

func TestTimelineAndHome(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	for _, text := range []string{"기여도", "안녕"} {
		w := do(t, srv, http.MethodPost, "/sessions/"+id+"/messages", `{"text":"`+text+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := do(t, srv, http.MethodGet, "/sessions/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 4)
	assert.Equal(t, "user", msgs[0].(map[string]any)["author"])
	assert.Equal(t, "agent", msgs[1].(map[string]any)["author"])
	assert.Equal(t, "attribution", body["session"].(map[string]any)["mode"])

	w = do(t, srv, http.MethodGet, "/sessions/"+id+"?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["messages"].([]any), 1)

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/home", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "default", decode(t, w)["session"].(map[string]any)["mode"])
}

func TestHomeFinishesPendingTransition(t *testing.T) {
	srv, svc := newTestServer(t)
	id := createSession(t, srv)

	// start a transition without driving it
	_, err := svc.SendMessage(context.Background(), conversation.SendMessageInput{
		SessionID: domain.SessionID(id),
		Text:      "검증",
	})
	require.NoError(t, err)

	w := do(t, srv, http.MethodGet, "/sessions/"+id+"/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode(t, w)["session"].(map[string]any)["pending"].(map[string]any)
	assert.Equal(t, "causal", pending["target"])
	assert.Equal(t, float64(0), pending["progress"])

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/home", "")
	require.Equal(t, http.StatusOK, w.Code)
	session := decode(t, w)["session"].(map[string]any)
	assert.Equal(t, "default", session["mode"])
	assert.Nil(t, session["pending"])

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/messages", `{"text":"기여도"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attribution", decode(t, w)["session"].(map[string]any)["mode"])
}

func TestDashboardModePreview(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	w := do(t, srv, http.MethodGet, "/sessions/"+id+"/dashboard?mode=mta", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "attribution", body["panel"].(map[string]any)["mode"])
	assert.Equal(t, "default", body["session"].(map[string]any)["mode"], "preview leaves the view alone")

	w = do(t, srv, http.MethodGet, "/sessions/"+id+"/dashboard?mode=weekly", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodGet, "/sessions/missing/dashboard?mode=causal", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSessions(t *testing.T) {
	srv, _ := newTestServer(t)
	createSession(t, srv)
	createSession(t, srv)

	w := do(t, srv, http.MethodGet, "/sessions?user_id=test-user&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["sessions"].([]any), 2)

	w = do(t, srv, http.MethodGet, "/sessions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodGet, "/sessions?user_id=x&limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotFoundAndMethodErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/sessions/missing", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/sessions/missing/messages", `{"text":"a"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/sessions/missing/unknown", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/sessions/", "").Code)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodDelete, "/sessions", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodGet, "/sessions/x/messages", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodPost, "/sessions/x/dashboard", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, http.MethodOptions, "/sessions", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	srv := httpadapter.NewServer(newTestService(t), httpadapter.Options{RateLimitPerMin: 1, RateLimitBurst: 2})

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, srv, http.MethodGet, "/healthz", "").Code)
}
