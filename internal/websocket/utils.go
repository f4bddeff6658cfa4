package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds how long a single frame write may block on a slow client.
const writeWait = 10 * time.Second

// WriteTyped sends one typed event frame, abandoning clients that cannot
// drain a frame within writeWait.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends an error event frame.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}
