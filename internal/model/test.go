package model

import (
	"encoding/json"
	"time"
)

// TestStatus enumerates the lifecycle states of a bubble test.
type TestStatus string

const (
	TestStatusActive   TestStatus = "ACTIVE"
	TestStatusArchived TestStatus = "ARCHIVED"
)

// BubbleTest is a test definition that owns a sheet layout and an answer key.
type BubbleTest struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      TestStatus `json:"status"`
	HasLayout   bool       `json:"has_layout"`
	HasKey      bool       `json:"has_key"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateTestRequest is the payload for creating a test.
type CreateTestRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}

// PutLayoutRequest carries a layout document for a test. The document is
// validated by the layout parser before it is stored.
type PutLayoutRequest struct {
	Layout json.RawMessage `json:"layout" binding:"required"`
}

// PutAnswerKeyRequest carries an answer-key document for a test. Entries are
// validated by the grading engine's key parser before they are stored.
type PutAnswerKeyRequest struct {
	Key json.RawMessage `json:"key" binding:"required"`
}
