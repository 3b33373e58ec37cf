package storage

import "time"

// Event is one answered turn: the visitor's utterance, the reply the selector
// picked and the topic path it came from.
type Event struct {
	Timestamp         time.Time `json:"timestamp"`
	SessionID         string    `json:"session_id"`
	Transport         string    `json:"transport,omitempty"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	Topic             string    `json:"topic,omitempty"`
}

// Recorder is the append-only interaction log read back by the daily report.
// Events come back oldest first, and implementations are shared between
// transports.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}
