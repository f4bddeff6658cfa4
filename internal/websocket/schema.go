package websocket

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventJobStatus Event = "job_status"
	EventError     Event = "error"
)

// JobStatusResponse relays a job state transition to a watcher.
type JobStatusResponse struct {
	Event     Event  `json:"event"`
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ErrorResponse reports a failure on the socket.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
