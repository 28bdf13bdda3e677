package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/meetsense/coachd/internal/models"
)

// presenterHints match speaker labels that usually belong to the person
// running the meeting. Inference is a deliberate heuristic: no match is
// a normal outcome and simply suppresses the dominance recommendation.
var presenterHints = []string{"host", "rep", "sales", "presenter", "account", "owner"}

type TalkTime struct{}

func NewTalkTime() *TalkTime { return &TalkTime{} }

func (a *TalkTime) Name() string { return NameTalkTime }

// Analyze computes each speaker's share of accumulated talk time and a
// balance score in [0,1], 1.0 meaning perfectly even distribution.
func (a *TalkTime) Analyze(ctx context.Context, snap Snapshot) ([]models.Event, error) {
	report := Report(snap.Ledger, snap.Config.DominancePercent)
	if report == nil {
		return nil, nil
	}
	return []models.Event{{Type: models.EventTalkTime, Payload: report}}, nil
}

// Report builds a talk-time report from a ledger. Exposed separately so
// the admin API can serve it outside the live socket flow.
func Report(ledger models.Ledger, dominancePercent int) *models.TalkTimeReport {
	total := ledger.Total()
	if total <= 0 {
		return nil
	}
	if dominancePercent <= 0 {
		dominancePercent = 70
	}

	report := &models.TalkTimeReport{
		Participants: make(map[string]models.TalkTimeParticipant, len(ledger)),
		TotalSeconds: total,
		Balance:      balance(ledger, total),
	}
	for speaker, secs := range ledger {
		report.Participants[speaker] = models.TalkTimeParticipant{
			Seconds:    secs,
			Percentage: int(math.Round(secs / total * 100)),
		}
	}

	for speaker, p := range report.Participants {
		if p.Percentage > dominancePercent && inferRole(speaker) == "presenter" {
			report.Recommendation = fmt.Sprintf(
				"%s is speaking %d%% of the time; try asking an open question to hand the floor over",
				speaker, p.Percentage)
			break
		}
	}
	return report
}

// balance is 1 - stddev(shares)/maxStddev(N). Equal shares give 1.0 for
// any speaker count; a single speaker holding everything gives 0.
func balance(ledger models.Ledger, total float64) float64 {
	n := float64(len(ledger))
	if n <= 1 {
		return 1.0
	}

	mean := 1.0 / n
	var variance float64
	for _, secs := range ledger {
		share := secs / total
		variance += (share - mean) * (share - mean)
	}
	variance /= n

	maxStd := math.Sqrt(n-1) / n
	b := 1.0 - math.Sqrt(variance)/maxStd
	if b < 0 {
		b = 0
	}
	return b
}

// inferRole maps a speaker label to a coarse role tag, or "" when the
// label gives no signal.
func inferRole(speaker string) string {
	lower := strings.ToLower(speaker)
	for _, hint := range presenterHints {
		if strings.Contains(lower, hint) {
			return "presenter"
		}
	}
	return ""
}
