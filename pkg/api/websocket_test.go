package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	server := httptest.NewServer(NewWebSocketHandler(hub))
	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})
	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	return msg
}

// -----------------------------------------------------------------------------
// Hub Tests
// -----------------------------------------------------------------------------

func TestHub_RunAndStop(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	hub.Stop()
	hub.Stop() // second Stop must not panic

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Hub.Run did not stop after Stop was called")
	}
}

func TestHub_ClientLifecycle(t *testing.T) {
	hub, url := startHub(t)

	conn := dial(t, url)
	waitFor(t, "registration", func() bool { return hub.ClientCount() == 1 })

	conn.Close()
	waitFor(t, "unregistration", func() bool { return hub.ClientCount() == 0 })
}

// expectGoingAway reads from conn until the server's close frame arrives.
func expectGoingAway(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
			t.Fatalf("read error = %v, want going-away close", err)
		}
		return
	}
}

func TestHub_StopClosesConnectedClients(t *testing.T) {
	hub, url := startHub(t)
	before := runtime.NumGoroutine()

	conn := dial(t, url+"?channels=simulation")
	waitFor(t, "registration", func() bool { return hub.ClientCount() == 1 })

	hub.Stop()
	expectGoingAway(t, conn)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after Stop, want 0", hub.ClientCount())
	}

	// Both pumps and the hub loop exit.
	waitFor(t, "client goroutines to exit", func() bool { return runtime.NumGoroutine() < before })

	// Broadcasting to a dropped client must not panic.
	if err := hub.BroadcastToChannel(ChannelSimulation, newMessage(EventTypeSimulationStep, 1)); err != nil {
		t.Fatal(err)
	}
}

func TestHub_ConnectAfterStop(t *testing.T) {
	hub, url := startHub(t)
	hub.Stop()

	conn := dial(t, url)
	expectGoingAway(t, conn)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

func TestClient_EnqueueAfterClose(t *testing.T) {
	client := NewClient(NewHub(), nil)
	client.close()
	client.close()

	client.handleMessage([]byte(`{"type":"ping"}`))
	select {
	case <-client.send:
		t.Error("closed client should not queue replies")
	default:
	}
}

// -----------------------------------------------------------------------------
// Client Tests
// -----------------------------------------------------------------------------

func TestClient_Subscribe(t *testing.T) {
	client := NewClient(NewHub(), nil)

	accepted := client.Subscribe(ChannelAnalyses, "bogus")
	if len(accepted) != 1 || accepted[0] != ChannelAnalyses {
		t.Errorf("accepted = %v, want [analyses]", accepted)
	}
	if !client.IsSubscribed(ChannelAnalyses) {
		t.Error("expected subscription to analyses")
	}
	if client.IsSubscribed("bogus") {
		t.Error("unknown channel should be ignored")
	}

	client.Subscribe(ChannelSimulation)
	if got := client.Subscriptions(); len(got) != 2 || got[0] != ChannelAnalyses || got[1] != ChannelSimulation {
		t.Errorf("Subscriptions() = %v", got)
	}

	client.Unsubscribe(ChannelAnalyses)
	if client.IsSubscribed(ChannelAnalyses) {
		t.Error("expected analyses to be unsubscribed")
	}
}

func TestClient_HandleMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		wantCode string
	}{
		{"ping", `{"type":"ping"}`, EventTypePong, ""},
		{"subscribe", `{"type":"subscribe","channels":["simulation"]}`, EventTypeSubscribe, ""},
		{"unsubscribe", `{"type":"unsubscribe","channels":["simulation"]}`, EventTypeUnsubscribe, ""},
		{"invalid json", `{not json`, EventTypeError, "invalid_json"},
		{"no channels", `{"type":"subscribe"}`, EventTypeError, "invalid_subscribe"},
		{"unknown channel", `{"type":"subscribe","channels":["sessions"]}`, EventTypeError, "invalid_subscribe"},
		{"unknown type", `{"type":"dance"}`, EventTypeError, "unknown_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(NewHub(), nil)
			client.handleMessage([]byte(tt.input))

			select {
			case data := <-client.send:
				var msg struct {
					Type string            `json:"type"`
					Data map[string]string `json:"data"`
				}
				if err := json.Unmarshal(data, &msg); err != nil {
					t.Fatalf("reply is not JSON: %v", err)
				}
				if msg.Type != tt.wantType {
					t.Errorf("type = %q, want %q", msg.Type, tt.wantType)
				}
				if tt.wantCode != "" && msg.Data["code"] != tt.wantCode {
					t.Errorf("code = %q, want %q", msg.Data["code"], tt.wantCode)
				}
			default:
				t.Fatal("expected a reply")
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Integration Tests
// -----------------------------------------------------------------------------

func TestWebSocket_PingPong(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)

	if err := conn.WriteJSON(WSMessage{Type: EventTypePing}); err != nil {
		t.Fatalf("Failed to send ping: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != EventTypePong {
		t.Errorf("Expected pong, got %q", msg.Type)
	}
}

func TestWebSocket_ChannelRouting(t *testing.T) {
	hub, url := startHub(t)

	analyses := dial(t, url+"?channels=analyses")
	simulation := dial(t, url)
	if err := simulation.WriteJSON(WSMessage{Type: EventTypeSubscribe, Channels: []string{ChannelSimulation}}); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, simulation); msg.Type != EventTypeSubscribe {
		t.Fatalf("expected subscribe ack, got %q", msg.Type)
	}
	waitFor(t, "two clients", func() bool { return hub.ClientCount() == 2 })

	b := NewHubEventBroadcaster(hub)
	if err := b.BroadcastSimulationStep(&SimulationStepEvent{RunID: "r1", Iteration: 10, Total: 20}); err != nil {
		t.Fatal(err)
	}
	if err := b.BroadcastAnalysisComplete(&AnalysisCompleteEvent{RunID: "r1", Hash: "abc"}); err != nil {
		t.Fatal(err)
	}

	if msg := readMessage(t, simulation); msg.Type != EventTypeSimulationStep {
		t.Errorf("simulation client got %q, want simulation_step", msg.Type)
	}
	msg := readMessage(t, analyses)
	if msg.Type != EventTypeAnalysisComplete {
		t.Fatalf("analyses client got %q, want analysis_complete", msg.Type)
	}
	data, _ := msg.Data.(map[string]interface{})
	if data["runId"] != "r1" || data["hash"] != "abc" {
		t.Errorf("unexpected data %v", msg.Data)
	}
	if msg.Timestamp == "" {
		t.Error("expected a timestamp")
	}
}

func TestHub_ConcurrentBroadcast(t *testing.T) {
	hub, url := startHub(t)
	for i := 0; i < 3; i++ {
		dial(t, url+"?channels=simulation")
	}
	waitFor(t, "three clients", func() bool { return hub.ClientCount() == 3 })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = hub.BroadcastToChannel(ChannelSimulation, newMessage(EventTypeSimulationStep, i))
		}(i)
	}
	wg.Wait()
}

func TestSetUpgraderCheckOrigin(t *testing.T) {
	original := upgrader.CheckOrigin
	defer func() { upgrader.CheckOrigin = original }()

	check := makeOriginChecker([]string{"http://localhost:5173"})
	SetUpgraderCheckOrigin(check)

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := upgrader.CheckOrigin(req); got != tt.want {
			t.Errorf("CheckOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}

	if !makeOriginChecker([]string{"*"})(httptest.NewRequest(http.MethodGet, "/ws", nil)) {
		t.Error("wildcard should allow any origin")
	}
}
