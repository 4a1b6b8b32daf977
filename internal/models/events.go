package models

// DoneMarker is the payload of the terminal stream event.
const DoneMarker = "[DONE]"

// StreamErrorEvent is the payload the gateway injects into a stream when the
// upstream body fails mid-read.
type StreamErrorEvent struct {
	Error  string         `json:"error"`
	Answer string         `json:"answer"`
	Debug  map[string]any `json:"debug,omitempty"`
}

// Socket event types for the WebSocket relay.
const (
	SocketEventChunk = "chunk"
	SocketEventDone  = "done"
	SocketEventError = "error"
)

// SocketEvent is one message sent to a WebSocket client.
type SocketEvent struct {
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data"`
}
