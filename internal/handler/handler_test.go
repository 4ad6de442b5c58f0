package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabhub/internal/app/collab"
	"collabhub/internal/app/user"
	"collabhub/internal/configs"
	"collabhub/internal/pkg/auth/jwt"
	"collabhub/internal/pkg/errs"
	"collabhub/internal/pkg/metrics"
	"collabhub/internal/pkg/randx"
)

type wireFrame struct {
	Type      collab.EventType `json:"type"`
	Payload   json.RawMessage  `json:"payload"`
	Timestamp int64            `json:"timestamp"`
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testConfig() *configs.AppConfig {
	return &configs.AppConfig{
		Environment:     "development",
		Port:            8080,
		AuthMode:        configs.AuthModeTrust,
		SendQueueSize:   64,
		OverflowPolicy:  configs.OverflowDropOldest,
		MaxMessageBytes: 1 << 16,
		EventRate:       1000,
		EventBurst:      1000,
		UpgradeRate:     100,
		UpgradeBurst:    100,
	}
}

func setupServer(t *testing.T, cfg *configs.AppConfig) (*httptest.Server, *AppDeps) {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, reg)

	deps := &AppDeps{
		Manager: collab.NewManager(cfg, nil, m),
		Config:  cfg,
		Metrics: m,
	}

	srv := httptest.NewServer(Router(deps))
	t.Cleanup(func() {
		deps.Manager.Shutdown()
		srv.Close()
	})

	return srv, deps
}

func wsURL(srv *httptest.Server, query string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, query), nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, eventType collab.EventType, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(collab.InboundFrame{Type: eventType, Payload: raw}))
}

// readUntil reads frames until one of eventType arrives, skipping everything else.
func readUntil(t *testing.T, conn *websocket.Conn, eventType collab.EventType) wireFrame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f wireFrame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == eventType {
			return f
		}
	}
}

func authenticate(t *testing.T, conn *websocket.Conn, id, name string) {
	t.Helper()

	sendFrame(t, conn, collab.TypeAuthenticate, user.User{ID: id, Name: name})
	readUntil(t, conn, collab.TypeAuthenticated)
}

func getJSON(t *testing.T, url string) (int, apiResponse) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestCollaborationOverWebSocket(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	alice := dial(t, srv, "")
	bob := dial(t, srv, "")
	authenticate(t, alice, "user-a", "Alice")
	authenticate(t, bob, "user-b", "Bob")

	sendFrame(t, alice, collab.TypeJoinRoom, collab.JoinRoomPayload{RoomID: "doc-1"})
	readUntil(t, alice, collab.TypeRoomJoined)

	sendFrame(t, bob, collab.TypeJoinRoom, collab.JoinRoomPayload{RoomID: "doc-1"})
	joined := readUntil(t, bob, collab.TypeRoomJoined)

	var snap collab.Snapshot
	require.NoError(t, json.Unmarshal(joined.Payload, &snap))
	assert.Equal(t, 2, snap.Room.MemberCount)

	var ev collab.UserEventPayload
	require.NoError(t, json.Unmarshal(readUntil(t, alice, collab.TypeUserJoined).Payload, &ev))
	assert.Equal(t, "user-b", ev.User.ID)
	assert.Equal(t, 2, ev.UserCount)

	sendFrame(t, alice, collab.TypeStateUpdate, map[string]any{
		"roomId": "doc-1",
		"update": map[string]any{"path": []string{"title"}, "value": "Hello"},
	})

	var patch collab.StateSyncPayload
	require.NoError(t, json.Unmarshal(readUntil(t, bob, collab.TypeStateSync).Payload, &patch))
	assert.Equal(t, []string{"title"}, patch.Update.Path)
	assert.JSONEq(t, `"Hello"`, string(patch.Update.Value))

	status, body := getJSON(t, srv.URL+"/api/stats")
	assert.Equal(t, http.StatusOK, status)
	var stats collab.Stats
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	assert.Equal(t, 2, stats.ConnectedClients)
	assert.Equal(t, 1, stats.ActiveRooms)
	require.Len(t, stats.Rooms, 1)
	assert.Equal(t, "doc-1", stats.Rooms[0].RoomID)

	status, body = getJSON(t, srv.URL+"/api/rooms/doc-1")
	assert.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &snap))
	assert.JSONEq(t, `{"title":"Hello"}`, mustMarshal(t, snap.State))

	require.NoError(t, alice.Close())

	require.NoError(t, json.Unmarshal(readUntil(t, bob, collab.TypeUserLeft).Payload, &ev))
	assert.Equal(t, "user-a", ev.User.ID)
	assert.Equal(t, 1, ev.UserCount)
}

func TestRoomLookupNotFound(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	status, body := getJSON(t, srv.URL+"/api/rooms/missing")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, errs.ErrRoomNotFound, body.Code)
}

func TestRoomLookupRejectsOversizedID(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	status, body := getJSON(t, srv.URL+"/api/rooms/"+strings.Repeat("x", randx.MaxRoomIDLength+1))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, errs.ErrInvalidParams, body.Code)
}

func TestErrorFrameGoesToSenderOnly(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	conn := dial(t, srv, "")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join-room","payload":{"roomId":"r"}}`)))

	var p collab.ErrorPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, collab.TypeError).Payload, &p))
	assert.Equal(t, errs.ErrUnauthenticated, p.Code)

	// The connection survives a failed frame.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, json.Unmarshal(readUntil(t, conn, collab.TypeError).Payload, &p))
	assert.Equal(t, errs.ErrInvalidJSONFormat, p.Code)
}

func TestUpgradeWithToken(t *testing.T) {
	cfg := testConfig()
	cfg.AuthMode = configs.AuthModeJWT
	cfg.JWTSecret = "test-secret"
	srv, deps := setupServer(t, cfg)

	token, err := jwt.GenerateToken(jwt.FromUser(user.User{ID: "user-a", Name: "Alice"}), cfg.JWTSecret, time.Minute)
	require.NoError(t, err)

	conn := dial(t, srv, jwt.TokenQueryParam+"="+token)

	var ack collab.AuthenticatedPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, collab.TypeAuthenticated).Payload, &ack))
	require.NotNil(t, ack.User)
	assert.Equal(t, "user-a", ack.User.ID)
	assert.Eventually(t, func() bool { return deps.Manager.Registry().IdentityCount() == 1 }, time.Second, 10*time.Millisecond)

	// A bad token leaves the connection unauthenticated rather than refusing it.
	anon := dial(t, srv, jwt.TokenQueryParam+"=garbage")
	sendFrame(t, anon, collab.TypeJoinRoom, collab.JoinRoomPayload{RoomID: "r"})

	var p collab.ErrorPayload
	require.NoError(t, json.Unmarshal(readUntil(t, anon, collab.TypeError).Payload, &p))
	assert.Equal(t, errs.ErrUnauthenticated, p.Code)
}

func TestUpgradeRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.UpgradeRate = 0.001
	cfg.UpgradeBurst = 1
	srv, _ := setupServer(t, cfg)

	dial(t, srv, "")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestOriginCheck(t *testing.T) {
	cfg := testConfig()
	cfg.Environment = "production"
	cfg.AllowedOrigins = []string{"https://app.example"}
	srv, _ := setupServer(t, cfg)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), http.Header{"Origin": {"https://app.example"}})
	require.NoError(t, err)
	resp.Body.Close()
	conn.Close()

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv, ""), http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestShutdownNoticeAndRefusal(t *testing.T) {
	srv, deps := setupServer(t, testConfig())

	conn := dial(t, srv, "")
	authenticate(t, conn, "user-a", "Alice")

	deps.Manager.Shutdown()

	readUntil(t, conn, collab.TypeServerShutdown)

	var f wireFrame
	err := conn.ReadJSON(&f)
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), err.Error())

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	status, body := getJSON(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, body.Code)

	dial(t, srv, "")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "collabhub_connections")
	assert.Contains(t, string(data), `collabhub_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func mustMarshal(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
