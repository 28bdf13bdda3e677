package models

import "time"

// Event type names pushed to clients over the coaching socket.
const (
	EventSessionStarted     = "session_started"
	EventPong               = "pong"
	EventTalkTime           = "talk_time_update"
	EventPattern            = "pattern_detected"
	EventCompetitorAlert    = "competitor_alert"
	EventSentiment          = "sentiment_update"
	EventSuggestedQuestions = "suggested_questions"
)

// Pattern kinds emitted by the pattern detector.
const (
	PatternQuestion  = "question_asked"
	PatternObjection = "objection_raised"
	PatternMonologue = "monologue"
)

// Event is one derived signal produced by an analyzer and fanned out to
// every connection attached to the session.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// PatternEvent is immutable once emitted; recomputing patterns over the
// same window yields the same set.
type PatternEvent struct {
	Kind       string    `json:"kind"`
	Speaker    string    `json:"speaker,omitempty"`
	FirstSeq   int64     `json:"firstSeq"`
	LastSeq    int64     `json:"lastSeq"`
	Excerpt    string    `json:"excerpt,omitempty"`
	DetectedAt time.Time `json:"detectedAt"`
}

// AlertEvent reports a watched term spoken in a fragment. At most one
// alert is emitted per distinct term per fragment.
type AlertEvent struct {
	Competitor string `json:"competitor"`
	Speaker    string `json:"speaker"`
	Context    string `json:"context"`
	Seq        int64  `json:"seq"`
}

// TalkTimeParticipant is one speaker's share of the conversation.
type TalkTimeParticipant struct {
	Seconds    float64 `json:"seconds"`
	Percentage int     `json:"percentage"`
}

// TalkTimeReport is the talk-time analyzer output. Balance is in [0,1]
// where 1.0 means perfectly even distribution across speakers.
type TalkTimeReport struct {
	Participants   map[string]TalkTimeParticipant `json:"participants"`
	TotalSeconds   float64                        `json:"totalSeconds"`
	Balance        float64                        `json:"balance"`
	Recommendation string                         `json:"recommendation,omitempty"`
}

// SentimentResult mirrors the NLP service response shape.
type SentimentResult struct {
	Score      float64 `json:"score"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}
