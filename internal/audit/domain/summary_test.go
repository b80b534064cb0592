package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummaryTalliesExemptAsValid(t *testing.T) {
	s := NewSummary()
	s.Add(Result{PartnerName: "A", Outcome: OutcomeExempt})
	s.Add(Result{PartnerName: "B", Outcome: OutcomeValid, MemberCount: 120})
	s.Add(Result{PartnerName: "C", Outcome: OutcomeWarned, MemberCount: 10, RemainingHours: 62})
	s.Add(Result{PartnerName: "D", Outcome: OutcomeInvalid, Detail: "Unknown Invite"})
	s.Add(Result{PartnerName: "E", Outcome: OutcomePending, MemberCount: 5})

	assert.Equal(t, 2, s.ValidCount)
	assert.Equal(t, 1, s.WarnedCount)
	assert.Equal(t, 1, s.InvalidCount)
	assert.Equal(t, 1, s.PendingCount)
	assert.Equal(t, []string{
		"A: exempt from requirements",
		"B: valid (120 members)",
		"C: 62h left in grace period (10 members)",
		"D: invalid (Unknown Invite)",
		"E: pending review (5 members)",
	}, s.Lines())
}

func TestSummaryStringIncludesDetails(t *testing.T) {
	s := NewSummary()
	s.Add(Result{PartnerName: "A", Outcome: OutcomeWarned, MemberCount: 50, NewWarning: true})

	out := s.String()
	assert.True(t, strings.HasPrefix(out, "Audit completed"))
	assert.Contains(t, out, "Warned partners: 1")
	assert.Contains(t, out, "A: warning issued (50 members)")
	assert.NotContains(t, out, "Pending applications")
}

func TestEmptySummary(t *testing.T) {
	s := NewSummary()
	assert.Empty(t, s.Results)
	assert.NotNil(t, s.Results)
	assert.NotContains(t, s.String(), "Details")
}

func TestInvalidWithoutDetail(t *testing.T) {
	r := Result{PartnerName: "X", Outcome: OutcomeInvalid}
	assert.Equal(t, "X: invalid (unknown error)", r.String())
}
