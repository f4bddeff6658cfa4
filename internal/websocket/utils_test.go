package websocket_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gws "github.com/gorilla/websocket"

	ws "github.com/ctroy978/edmpc/internal/websocket"
)

// dialTestServer upgrades a connection on an httptest server, hands the
// server side to serve, and returns the client side.
func dialTestServer(t *testing.T, serve func(*gws.Conn)) *gws.Conn {
	t.Helper()

	upgrader := gws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestWriteTyped(t *testing.T) {
	client := dialTestServer(t, func(conn *gws.Conn) {
		if err := ws.WriteTyped(conn, ws.JobStatusResponse{
			Event:  ws.EventJobStatus,
			JobID:  "job-1",
			Status: "SCANNED",
		}); err != nil {
			t.Errorf("WriteTyped: %v", err)
		}
	})

	var got ws.JobStatusResponse
	if err := client.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Event != ws.EventJobStatus {
		t.Errorf("event = %q, want %q", got.Event, ws.EventJobStatus)
	}
	if got.JobID != "job-1" || got.Status != "SCANNED" {
		t.Errorf("payload = %+v", got)
	}
}

func TestWriteError(t *testing.T) {
	client := dialTestServer(t, func(conn *gws.Conn) {
		if err := ws.WriteError(conn, "malformed status event"); err != nil {
			t.Errorf("WriteError: %v", err)
		}
	})

	var got ws.ErrorResponse
	if err := client.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Event != ws.EventError {
		t.Errorf("event = %q, want %q", got.Event, ws.EventError)
	}
	if got.Error != "malformed status event" {
		t.Errorf("error = %q, want %q", got.Error, "malformed status event")
	}
}
