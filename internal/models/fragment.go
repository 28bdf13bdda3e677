package models

import "time"

// Fragment is one unit of transcribed speech with speaker attribution.
// Seq is the arrival order assigned by the ingestion pipeline; Timestamp
// is seconds from session start, monotonic within one producer stream.
type Fragment struct {
	Text       string    `json:"text"`
	Speaker    string    `json:"speaker"`
	Timestamp  float64   `json:"timestamp"`
	Duration   float64   `json:"duration,omitempty"`
	Seq        int64     `json:"seq"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Ledger maps speaker label to accumulated speaking seconds. Values are
// monotonically non-decreasing for the lifetime of a session.
type Ledger map[string]float64

// Total returns the sum of all speakers' accumulated seconds.
func (l Ledger) Total() float64 {
	var t float64
	for _, v := range l {
		t += v
	}
	return t
}
