package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/your-org/faceaccess/pkg/dto"
)

func newHubServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", hub.HandleWS)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) dto.WSEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var evt dto.WSEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return evt
}

func TestHub_BroadcastHonoursFilter(t *testing.T) {
	hub, srv := newHubServer(t)
	all := dial(t, srv, "")
	unknownOnly := dial(t, srv, "?recognized=false")
	waitForClients(t, hub, 2)

	recognized := dto.AccessLogEntryResponse{ID: uuid.New(), Name: "Ana", Recognized: true}
	unknown := dto.AccessLogEntryResponse{ID: uuid.New(), Name: "Unknown"}
	hub.Broadcast(recognized)
	hub.Broadcast(unknown)

	if evt := readEvent(t, all); evt.Type != "access" || evt.Entry.ID != recognized.ID {
		t.Errorf("first event = %+v, want %s", evt, recognized.ID)
	}
	if evt := readEvent(t, all); evt.Entry.ID != unknown.ID {
		t.Errorf("second event = %+v, want %s", evt, unknown.ID)
	}
	if evt := readEvent(t, unknownOnly); evt.Entry.ID != unknown.ID {
		t.Errorf("filtered client got %+v, want only %s", evt, unknown.ID)
	}
}

func TestHub_InvalidFilter(t *testing.T) {
	_, srv := newHubServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?recognized=maybe"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Dial() succeeded, want handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("response = %v, want 400", resp)
	}
}

func TestHub_RunStopsOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// Broadcast must not block once the loop is gone.
	for i := 0; i < 300; i++ {
		hub.Broadcast(dto.AccessLogEntryResponse{ID: uuid.New()})
	}
}
