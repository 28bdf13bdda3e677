package gateway

import "encoding/json"

// Inbound message types on the coaching socket.
const (
	MsgTranscriptChunk = "transcript_chunk"
	MsgPing            = "ping"
	MsgEndSession      = "end_session"
)

// Application close codes. 4000-class codes signal fatal, non-retryable
// connect attempts, distinct from normal closure.
const (
	CloseMissingParam = 4000
	CloseAuthFailed   = 4001
)

// Envelope is the wire shape in both directions: {type, payload}.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type sessionStartedPayload struct {
	MeetingID string `json:"meetingId"`
	SessionID string `json:"sessionId"`
	Config    any    `json:"config"`
}

type pongPayload struct {
	Timestamp int64 `json:"timestamp"`
}
