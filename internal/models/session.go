package models

import "time"

// SessionConfig is the effective analyzer configuration for one session.
// It is sent to clients in the session_started event.
type SessionConfig struct {
	Analyzers          []string `json:"analyzers"`
	Competitors        []string `json:"competitors"`
	ObjectionKeywords  []string `json:"objectionKeywords"`
	MonologueThreshold int      `json:"monologueThreshold"`
	DominancePercent   int      `json:"dominancePercent"`
}

// AnalyzerEnabled reports whether the named analyzer is in the enabled set.
func (c SessionConfig) AnalyzerEnabled(name string) bool {
	for _, a := range c.Analyzers {
		if a == name {
			return true
		}
	}
	return false
}

// Session is the live analytic state scoped to one meeting. Identity is
// (MeetingID, OrgID); ID is generated at creation.
type Session struct {
	ID        string        `json:"id"`
	MeetingID string        `json:"meetingId"`
	OrgID     string        `json:"organizationId"`
	CreatedAt time.Time     `json:"createdAt"`
	Config    SessionConfig `json:"config"`
}

// Key returns the store key identity for a meeting within an organization.
func Key(meetingID, orgID string) string {
	return orgID + ":" + meetingID
}
