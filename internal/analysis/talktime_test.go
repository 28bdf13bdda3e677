package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/meetsense/coachd/internal/models"
)

func TestReport_TwoSpeakersEqual(t *testing.T) {
	report := Report(models.Ledger{"alice": 30, "bob": 30}, 70)
	if report == nil {
		t.Fatal("report is nil")
	}
	if report.Balance != 1.0 {
		t.Errorf("Balance = %f, want 1.0", report.Balance)
	}
	for speaker, p := range report.Participants {
		if p.Percentage != 50 {
			t.Errorf("%s percentage = %d, want 50", speaker, p.Percentage)
		}
	}
}

func TestReport_SixtyForty(t *testing.T) {
	report := Report(models.Ledger{"A": 60, "B": 40}, 70)
	if report == nil {
		t.Fatal("report is nil")
	}
	if got := report.Participants["A"].Percentage; got != 60 {
		t.Errorf("A percentage = %d, want 60", got)
	}
	if got := report.Participants["B"].Percentage; got != 40 {
		t.Errorf("B percentage = %d, want 40", got)
	}
	if report.Balance >= 1.0 {
		t.Errorf("Balance = %f, want < 1.0", report.Balance)
	}
}

func TestReport_BalanceIndependentOfSpeakerCount(t *testing.T) {
	two := Report(models.Ledger{"a": 10, "b": 10}, 70)
	four := Report(models.Ledger{"a": 10, "b": 10, "c": 10, "d": 10}, 70)
	if two.Balance != 1.0 || four.Balance != 1.0 {
		t.Errorf("equal shares: balance two=%f four=%f, want 1.0 both", two.Balance, four.Balance)
	}
}

func TestReport_SingleSpeakerDominatesFully(t *testing.T) {
	report := Report(models.Ledger{"a": 100, "b": 0, "c": 0}, 70)
	if math.Abs(report.Balance) > 1e-9 {
		t.Errorf("Balance = %f, want 0", report.Balance)
	}
}

func TestReport_EmptyLedger(t *testing.T) {
	if report := Report(models.Ledger{}, 70); report != nil {
		t.Errorf("report = %+v, want nil", report)
	}
}

func TestReport_DominanceRecommendation(t *testing.T) {
	report := Report(models.Ledger{"Sales Rep": 80, "Prospect": 20}, 70)
	if report.Recommendation == "" {
		t.Error("expected a recommendation for dominant presenter")
	}
}

func TestReport_NoRecommendationWhenRoleAmbiguous(t *testing.T) {
	// Same dominance, but the label gives no role signal.
	report := Report(models.Ledger{"Speaker 1": 80, "Speaker 2": 20}, 70)
	if report.Recommendation != "" {
		t.Errorf("Recommendation = %q, want empty for ambiguous role", report.Recommendation)
	}
}

func TestReport_NoRecommendationBelowThreshold(t *testing.T) {
	report := Report(models.Ledger{"Sales Rep": 60, "Prospect": 40}, 70)
	if report.Recommendation != "" {
		t.Errorf("Recommendation = %q, want empty below threshold", report.Recommendation)
	}
}

func TestTalkTime_Analyze(t *testing.T) {
	a := NewTalkTime()
	snap := NewSnapshot("s1", nil, models.Ledger{"a": 10, "b": 10}, models.SessionConfig{DominancePercent: 70})

	events, err := a.Analyze(context.Background(), snap)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(events) != 1 || events[0].Type != models.EventTalkTime {
		t.Fatalf("events = %v", events)
	}
}

func TestInferRole(t *testing.T) {
	cases := []struct {
		speaker string
		want    string
	}{
		{"Sales Rep", "presenter"},
		{"Host", "presenter"},
		{"Account Executive", "presenter"},
		{"Speaker 2", ""},
		{"Jordan", ""},
	}
	for _, tc := range cases {
		if got := inferRole(tc.speaker); got != tc.want {
			t.Errorf("inferRole(%q) = %q, want %q", tc.speaker, got, tc.want)
		}
	}
}
