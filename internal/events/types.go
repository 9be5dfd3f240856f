package events

import "time"

// EventType represents the type of event streamed to dashboard clients.
type EventType string

const (
	// EventTypeJobCompleted is emitted after a masking job finishes.
	EventTypeJobCompleted EventType = "job_completed"
	// EventTypePreview is emitted when a preview is generated.
	EventTypePreview EventType = "preview_generated"
	// EventTypeScore is emitted when an effectiveness score is calculated.
	EventTypeScore EventType = "score_calculated"
	// EventTypeConnection represents client connection events.
	EventTypeConnection EventType = "connection"
)

// Event is the envelope sent to WebSocket clients.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data"`
}

// JobCompletedEvent summarizes a finished masking job. It carries counts
// only; masked or original field values never leave the engine through the
// event stream.
type JobCompletedEvent struct {
	JobID            string        `json:"job_id"`
	Entity           string        `json:"entity"`
	Records          int           `json:"records"`
	MaskedFieldCount int           `json:"masked_field_count"`
	Duration         time.Duration `json:"duration"`
}

// PreviewEvent notes that a preview was produced for an entity.
type PreviewEvent struct {
	Entity        string `json:"entity"`
	SampleRecords int    `json:"sample_records"`
	ShowOriginal  bool   `json:"show_original"`
}

// ScoreEvent carries an effectiveness score headline.
type ScoreEvent struct {
	PolicyID string `json:"policy_id"`
	Score    int    `json:"score"`
	Gaps     int    `json:"gaps"`
}

// ConnectionEvent represents WebSocket connection changes.
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected" or "disconnected"
	ClientID string `json:"client_id"`
}
