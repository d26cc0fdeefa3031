package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-dialogue/internal/adjust"
	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
	"github.com/nerrad567/gray-logic-dialogue/internal/catalog/catalogtest"
	"github.com/nerrad567/gray-logic-dialogue/internal/dialogue"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/logging"
)

// recordingDispatcher captures the commands the engine sends.
type recordingDispatcher struct {
	mu       sync.Mutex
	commands []adjust.Command
}

func (d *recordingDispatcher) Dispatch(_ context.Context, cmd adjust.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, cmd)
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.commands)
}

type mapReader map[string]adjust.DeviceState

func (m mapReader) State(_ context.Context, id string) (adjust.DeviceState, error) {
	st, ok := m[id]
	if !ok {
		return adjust.DeviceState{}, adjust.ErrStateUnavailable
	}
	return st, nil
}

// switchableSource serves the fixture house until failing is set.
type switchableSource struct {
	failing atomic.Bool
}

func (s *switchableSource) Load(context.Context) (catalog.Inventory, error) {
	if s.failing.Load() {
		return catalog.Inventory{}, catalog.ErrSourceUnavailable
	}
	return catalogtest.Inventory(), nil
}

type failingChecker struct{}

func (failingChecker) HealthCheck(context.Context) error { return errors.New("broker unreachable") }

type testEnv struct {
	srv      *Server
	router   http.Handler
	source   *switchableSource
	dispatch *recordingDispatcher
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
}

// testServer creates a Server over the fixture house with auto submit on.
func testServer(t *testing.T) *testEnv {
	t.Helper()

	source := &switchableSource{}
	store := catalog.NewStore(source)
	if _, err := store.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	reader := mapReader{
		catalogtest.Lamp: {State: adjust.StateOn, Attributes: map[string]any{"brightness": 0.6}},
	}
	d := &recordingDispatcher{}
	engine := adjust.NewEngine(store, d, reader, adjust.Options{})
	svc := dialogue.NewService(store, dialogue.NewSessions(0), dialogue.NewSubmitter(engine), dialogue.ServiceOptions{
		AutoSubmit: true,
	})

	log := testLogger()
	hub := NewHub(testWSConfig(), log)
	svc.AddObserver(hub)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS:       testWSConfig(),
		Logger:   log,
		Dialogue: svc,
		Catalogs: store,
		Hub:      hub,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return &testEnv{srv: srv, router: srv.buildRouter(), source: source, dispatch: d}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// replyBody is the subset of a reply response the tests inspect.
type replyBody struct {
	Conversation struct {
		ID    string `json:"id"`
		Form  string `json:"form"`
		Slots struct {
			Device   []string `json:"device"`
			Location []string `json:"location"`
		} `json:"slots"`
	} `json:"conversation"`
	Outcome struct {
		Status    string `json:"status"`
		Requested string `json:"requested"`
	} `json:"outcome"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return v
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	resp := decode[map[string]any](t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestHealth_DegradedComponent(t *testing.T) {
	env := testServer(t)
	env.srv.health = map[string]HealthChecker{"mqtt": failingChecker{}}

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want 503", w.Code)
	}

	resp := decode[struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}](t, w)
	if resp.Status != "degraded" || resp.Components["mqtt"] != "broker unreachable" {
		t.Errorf("resp = %+v", resp)
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestNotFound(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/nonexistent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Conversation Tests ────────────────────────────────────────────

func TestStartConversation_AsksFirstSlot(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/conversations", `{"form":"adjust"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	resp := decode[replyBody](t, w)
	if resp.Conversation.ID == "" {
		t.Error("conversation id is empty")
	}
	if resp.Outcome.Requested != dialogue.SlotAction {
		t.Errorf("requested = %q, want %q", resp.Outcome.Requested, dialogue.SlotAction)
	}
	if resp.Message != dialogue.Prompt(dialogue.SlotAction) {
		t.Errorf("message = %q", resp.Message)
	}

	get := env.do(t, http.MethodGet, "/api/v1/conversations/"+resp.Conversation.ID, "")
	if get.Code != http.StatusOK {
		t.Errorf("GET status = %d", get.Code)
	}
}

func TestStartConversation_WithInput(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/conversations",
		`{"form":"adjust","input":{"device":"lamp","action":"turn off"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	resp := decode[replyBody](t, w)
	if resp.Message != "Turned off 1 device" {
		t.Errorf("message = %q, want %q", resp.Message, "Turned off 1 device")
	}
	if env.dispatch.count() != 1 {
		t.Errorf("dispatched %d commands, want 1", env.dispatch.count())
	}
}

func TestStartConversation_UnknownForm(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/conversations", `{"form":"dance"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp := decode[Error](t, w); resp.Code != ErrCodeUnknownForm {
		t.Errorf("code = %q, want %q", resp.Code, ErrCodeUnknownForm)
	}
}

func TestStartConversation_InvalidJSON(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/conversations", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestConversation_ConfirmFlow(t *testing.T) {
	env := testServer(t)

	start := decode[replyBody](t, env.do(t, http.MethodPost, "/api/v1/conversations", `{}`))
	base := "/api/v1/conversations/" + start.Conversation.ID

	w := env.do(t, http.MethodPost, base+"/turns", `{"device":"light","action":"turn on"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("turn status = %d, body %s", w.Code, w.Body.String())
	}
	turn := decode[replyBody](t, w)
	if turn.Outcome.Status != string(dialogue.StatusConfirm) {
		t.Fatalf("status = %q, want confirm", turn.Outcome.Status)
	}
	if turn.ErrorCode != OutcomeAmbiguous {
		t.Errorf("error_code = %q, want %q", turn.ErrorCode, OutcomeAmbiguous)
	}

	w = env.do(t, http.MethodPost, base+"/confirm", `{"confirm":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body %s", w.Code, w.Body.String())
	}
	if got := decode[replyBody](t, w).Message; got != "Turned on 3 devices" {
		t.Errorf("message = %q, want %q", got, "Turned on 3 devices")
	}
	if env.dispatch.count() != 3 {
		t.Errorf("dispatched %d commands, want 3", env.dispatch.count())
	}
}

func TestConversation_ConfirmNoAsksLocation(t *testing.T) {
	env := testServer(t)

	start := decode[replyBody](t, env.do(t, http.MethodPost, "/api/v1/conversations", `{}`))
	base := "/api/v1/conversations/" + start.Conversation.ID
	env.do(t, http.MethodPost, base+"/turns", `{"device":"light","action":"turn on"}`)

	resp := decode[replyBody](t, env.do(t, http.MethodPost, base+"/confirm", `{"confirm":false}`))
	if resp.Outcome.Requested != dialogue.SlotLocation {
		t.Errorf("requested = %q, want location", resp.Outcome.Requested)
	}

	resp = decode[replyBody](t, env.do(t, http.MethodPost, base+"/turns", `{"location":"kitchen"}`))
	if resp.Message != "Turned on 1 device" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestConversation_UnknownLocation(t *testing.T) {
	env := testServer(t)

	start := decode[replyBody](t, env.do(t, http.MethodPost, "/api/v1/conversations", `{}`))
	w := env.do(t, http.MethodPost, "/api/v1/conversations/"+start.Conversation.ID+"/turns",
		`{"location":"attic","device":"light","action":"turn on"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	resp := decode[replyBody](t, w)
	if resp.ErrorCode != OutcomeUnknownLocation {
		t.Errorf("error_code = %q, want %q", resp.ErrorCode, OutcomeUnknownLocation)
	}
	if len(resp.Conversation.Slots.Location) != 0 {
		t.Errorf("location slot = %v, want cleared", resp.Conversation.Slots.Location)
	}
	if env.dispatch.count() != 0 {
		t.Errorf("dispatched %d commands, want 0", env.dispatch.count())
	}
}

func TestConversation_SubmitNotResolved(t *testing.T) {
	env := testServer(t)

	start := decode[replyBody](t, env.do(t, http.MethodPost, "/api/v1/conversations", `{}`))
	w := env.do(t, http.MethodPost, "/api/v1/conversations/"+start.Conversation.ID+"/submit", "")
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestConversation_End(t *testing.T) {
	env := testServer(t)

	start := decode[replyBody](t, env.do(t, http.MethodPost, "/api/v1/conversations", `{}`))
	path := "/api/v1/conversations/" + start.Conversation.ID

	if w := env.do(t, http.MethodDelete, path, ""); w.Code != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", w.Code)
	}
	if w := env.do(t, http.MethodDelete, path, ""); w.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodPost, path+"/turns", `{"device":"lamp"}`); w.Code != http.StatusNotFound {
		t.Errorf("turn on ended conversation status = %d, want 404", w.Code)
	}
}

// ─── Match Tests ───────────────────────────────────────────────────

func TestMatch(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/match", `{"locations":["Kitchen"],"devices":["light"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	resp := decode[struct {
		Count  int `json:"count"`
		Result struct {
			Devices []string `json:"devices"`
		} `json:"result"`
	}](t, w)
	if resp.Count != 1 || len(resp.Result.Devices) != 1 || resp.Result.Devices[0] != catalogtest.Ceiling {
		t.Errorf("resp = %+v, want the kitchen ceiling light", resp)
	}
}

func TestMatch_FloorID(t *testing.T) {
	env := testServer(t)

	resp := decode[struct {
		Count int `json:"count"`
	}](t, env.do(t, http.MethodPost, "/api/v1/match", `{"locations":["ground"],"devices":["light"]}`))
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2 ground floor lights", resp.Count)
	}
}

func TestMatch_UnknownLocation(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/match", `{"locations":["attic"]}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if resp := decode[Error](t, w); resp.Code != ErrCodeUnknownLocation {
		t.Errorf("code = %q", resp.Code)
	}
}

// ─── Catalog Tests ─────────────────────────────────────────────────

func TestCatalogStats(t *testing.T) {
	env := testServer(t)

	stats := decode[catalog.Stats](t, env.do(t, http.MethodGet, "/api/v1/catalog", ""))
	if stats.Devices != 8 || stats.Areas != 3 || stats.Floors != 2 {
		t.Errorf("stats = %+v, want 8 devices, 3 areas, 2 floors", stats)
	}
}

func TestListDevices_FilterByLocation(t *testing.T) {
	env := testServer(t)

	resp := decode[struct {
		Count int `json:"count"`
	}](t, env.do(t, http.MethodGet, "/api/v1/catalog/devices?location=kitchen", ""))
	if resp.Count != 3 {
		t.Errorf("count = %d, want 3 kitchen devices", resp.Count)
	}

	w := env.do(t, http.MethodGet, "/api/v1/catalog/devices?location=attic", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown location status = %d, want 422", w.Code)
	}
}

func TestGetDevice(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/catalog/devices/"+catalogtest.Lamp, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if d := decode[catalog.Device](t, w); d.Domain != "light" || d.Name() != "lamp" {
		t.Errorf("device = %+v", d)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/catalog/devices/light.nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing device status = %d, want 404", w.Code)
	}
}

func TestListAreasAndFloors(t *testing.T) {
	env := testServer(t)

	areas := decode[struct {
		Count int `json:"count"`
	}](t, env.do(t, http.MethodGet, "/api/v1/catalog/areas", ""))
	if areas.Count != 3 {
		t.Errorf("areas = %d, want 3", areas.Count)
	}

	floors := decode[struct {
		Count int `json:"count"`
	}](t, env.do(t, http.MethodGet, "/api/v1/catalog/floors", ""))
	if floors.Count != 2 {
		t.Errorf("floors = %d, want 2", floors.Count)
	}
}

func TestCatalogAnomalies_Empty(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/catalog/anomalies", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, `"anomalies":[]`) {
		t.Errorf("body = %s, want an empty anomalies list", body)
	}
}

func TestCatalogReload(t *testing.T) {
	env := testServer(t)

	if w := env.do(t, http.MethodPost, "/api/v1/catalog/reload", ""); w.Code != http.StatusOK {
		t.Errorf("reload status = %d, want 200", w.Code)
	}

	env.source.failing.Store(true)
	w := env.do(t, http.MethodPost, "/api/v1/catalog/reload", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("failed reload status = %d, want 503", w.Code)
	}

	// The previous snapshot keeps serving.
	stats := decode[catalog.Stats](t, env.do(t, http.MethodGet, "/api/v1/catalog", ""))
	if stats.Devices != 8 {
		t.Errorf("devices after failed reload = %d, want 8", stats.Devices)
	}
}

// ─── Hub Tests ─────────────────────────────────────────────────────

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelConversationTurn: {}},
	}
	other := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{"catalog.reloaded": {}},
	}
	hub.Register(client)
	hub.Register(other)

	hub.ObserveTurn(dialogue.Conversation{ID: "c1"}, dialogue.Outcome{
		Status: dialogue.StatusFailed,
		Err:    dialogue.ErrNoMatchingDevices,
	})

	select {
	case msg := <-client.send:
		var ev struct {
			EventType string    `json:"event_type"`
			Payload   TurnEvent `json:"payload"`
		}
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.EventType != ChannelConversationTurn {
			t.Errorf("event_type = %q", ev.EventType)
		}
		if ev.Payload.Conversation.ID != "c1" || ev.Payload.ErrorCode != OutcomeNoMatch {
			t.Errorf("payload = %+v", ev.Payload)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}

	select {
	case <-other.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}

// ─── WebSocket Tests ───────────────────────────────────────────────

func connectWebSocket(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(env.router)
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	t.Cleanup(func() { ws.Close() }) //nolint:errcheck // Test cleanup
	return ws
}

type wsReply struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

func readWS(t *testing.T, ws *websocket.Conn) wsReply {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // Test deadline
	var msg wsReply
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebSocket_Ping(t *testing.T) {
	env := testServer(t)
	ws := connectWebSocket(t, env)

	if err := ws.WriteJSON(map[string]any{"type": WSTypePing, "id": "p1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readWS(t, ws); msg.Type != WSTypePong || msg.ID != "p1" {
		t.Errorf("got %+v, want pong p1", msg)
	}
}

func TestWebSocket_ConversationRoundTrip(t *testing.T) {
	env := testServer(t)
	ws := connectWebSocket(t, env)

	ws.WriteJSON(map[string]any{ //nolint:errcheck // Checked by the read below
		"type":    WSTypeSubscribe,
		"id":      "s1",
		"payload": map[string]any{"channels": []string{ChannelConversationTurn}},
	})
	if msg := readWS(t, ws); msg.Type != WSTypeResponse || msg.ID != "s1" {
		t.Fatalf("subscribe reply = %+v", msg)
	}

	ws.WriteJSON(map[string]any{ //nolint:errcheck // Checked by the read below
		"type":    WSTypeStart,
		"id":      "m1",
		"payload": map[string]any{"form": "adjust", "input": map[string]string{"device": "lamp", "action": "turn off"}},
	})

	// The turn event and the reply may arrive in either order.
	var gotReply, gotEvent bool
	for range 2 {
		msg := readWS(t, ws)
		switch msg.Type {
		case WSTypeReply:
			gotReply = true
			var body replyBody
			if err := json.Unmarshal(msg.Payload, &body); err != nil {
				t.Fatalf("unmarshal reply: %v", err)
			}
			if msg.ID != "m1" || body.Message != "Turned off 1 device" {
				t.Errorf("reply id %q message %q", msg.ID, body.Message)
			}
		case WSTypeEvent:
			gotEvent = msg.EventType == ChannelConversationTurn
		default:
			t.Errorf("unexpected message %+v", msg)
		}
	}
	if !gotReply || !gotEvent {
		t.Errorf("reply = %v, event = %v, want both", gotReply, gotEvent)
	}
}

func TestWebSocket_Errors(t *testing.T) {
	env := testServer(t)
	ws := connectWebSocket(t, env)

	tests := []struct {
		name string
		send string
		code string
	}{
		{"invalid JSON", `{not json`, ErrCodeBadRequest},
		{"unknown type", `{"type":"dance","id":"x"}`, ErrCodeBadRequest},
		{"missing conversation", `{"type":"turn","id":"x","payload":{"input":{"device":"lamp"}}}`, ErrCodeBadRequest},
		{"unknown conversation", `{"type":"turn","id":"x","payload":{"conversation_id":"nope"}}`, ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ws.WriteMessage(websocket.TextMessage, []byte(tt.send)); err != nil {
				t.Fatalf("write: %v", err)
			}
			msg := readWS(t, ws)
			if msg.Type != WSTypeError {
				t.Fatalf("type = %q, want error", msg.Type)
			}
			var p map[string]string
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if p["code"] != tt.code {
				t.Errorf("code = %q, want %q", p["code"], tt.code)
			}
		})
	}
}

// ─── Server Lifecycle Tests ────────────────────────────────────────

func TestServer_HealthCheckBeforeStart(t *testing.T) {
	env := testServer(t)

	if err := env.srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() = nil before Start")
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New(empty deps) error = nil")
	}
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New(without dialogue) error = nil")
	}
}
