package model

import (
	"encoding/json"
	"time"
)

// JobStatus enumerates the grading job state machine. Transitions are
// one-directional (CREATED → UPLOADED → SCANNING → SCANNED → GRADING →
// COMPLETED) except for explicit re-processing, which resets an UPLOADED or
// SCANNING job back to SCANNING and discards its prior response rows. Any
// stage can fall to the terminal ERROR state.
type JobStatus string

const (
	JobStatusCreated   JobStatus = "CREATED"
	JobStatusUploaded  JobStatus = "UPLOADED"
	JobStatusScanning  JobStatus = "SCANNING"
	JobStatusScanned   JobStatus = "SCANNED"
	JobStatusGrading   JobStatus = "GRADING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusError     JobStatus = "ERROR"
)

// GradingJob tracks one batch of scanned sheets through scan and grade.
type GradingJob struct {
	ID           string          `json:"id"`
	TestID       string          `json:"test_id"`
	Status       JobStatus       `json:"status"`
	NumPages     int             `json:"num_pages"`
	NumStudents  int             `json:"num_students"`
	NumErrors    int             `json:"num_errors"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Stats        json.RawMessage `json:"stats,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ScanStatus marks whether a page decoded to a usable student sheet.
type ScanStatus string

const (
	ScanStatusOK    ScanStatus = "OK"
	ScanStatusError ScanStatus = "ERROR"
)

// StudentResponse is one decoded page of a job. Answers is a JSON object
// mapping question number to the comma-joined selection string.
type StudentResponse struct {
	ID           int64           `json:"id"`
	JobID        string          `json:"job_id"`
	PageNumber   int             `json:"page_number"`
	StudentID    string          `json:"student_id"`
	Answers      json.RawMessage `json:"answers"`
	ScanStatus   ScanStatus      `json:"scan_status"`
	ScanWarnings []string        `json:"scan_warnings,omitempty"`
	Score        *float64        `json:"score,omitempty"`
	PercentGrade *float64        `json:"percent_grade,omitempty"`
}

// GradingReport is a generated artifact of a completed job, currently only
// the gradebook CSV.
type GradingReport struct {
	ID         int64     `json:"id"`
	JobID      string    `json:"job_id"`
	ReportType string    `json:"report_type"`
	Filename   string    `json:"filename"`
	Content    []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
