package domain

import (
	"fmt"
	"strings"
)

// Result is one partner's line in the audit report.
type Result struct {
	PartnerName    string  `json:"partner_name"`
	Outcome        Outcome `json:"outcome"`
	MemberCount    int     `json:"member_count"`
	RemainingHours int     `json:"remaining_hours,omitempty"`
	Terminated     bool    `json:"terminated,omitempty"`
	NewWarning     bool    `json:"new_warning,omitempty"`
	Detail         string  `json:"detail,omitempty"`
}

func (r Result) String() string {
	switch r.Outcome {
	case OutcomeExempt:
		return fmt.Sprintf("%s: exempt from requirements", r.PartnerName)
	case OutcomeValid:
		return fmt.Sprintf("%s: valid (%d members)", r.PartnerName, r.MemberCount)
	case OutcomeWarned:
		if r.NewWarning {
			return fmt.Sprintf("%s: warning issued (%d members)", r.PartnerName, r.MemberCount)
		}
		return fmt.Sprintf("%s: %dh left in grace period (%d members)", r.PartnerName, r.RemainingHours, r.MemberCount)
	case OutcomeInvalid:
		if r.Terminated {
			return fmt.Sprintf("%s: partnership ended, grace period expired (%d members)", r.PartnerName, r.MemberCount)
		}
		return fmt.Sprintf("%s: invalid (%s)", r.PartnerName, detailOrUnknown(r.Detail))
	case OutcomePending:
		if r.Detail != "" {
			return fmt.Sprintf("%s: pending review, lookup failed (%s)", r.PartnerName, r.Detail)
		}
		return fmt.Sprintf("%s: pending review (%d members)", r.PartnerName, r.MemberCount)
	default:
		return fmt.Sprintf("%s: %s", r.PartnerName, r.Outcome)
	}
}

func detailOrUnknown(detail string) string {
	if strings.TrimSpace(detail) == "" {
		return "unknown error"
	}
	return detail
}

// Summary is the result of a completed audit run. Exempt partners count as valid.
type Summary struct {
	ValidCount   int      `json:"valid_count"`
	WarnedCount  int      `json:"warned_count"`
	InvalidCount int      `json:"invalid_count"`
	PendingCount int      `json:"pending_count"`
	Results      []Result `json:"results"`
}

func NewSummary() *Summary {
	return &Summary{Results: []Result{}}
}

func (s *Summary) Add(r Result) {
	switch r.Outcome {
	case OutcomeValid, OutcomeExempt:
		s.ValidCount++
	case OutcomeWarned:
		s.WarnedCount++
	case OutcomeInvalid:
		s.InvalidCount++
	case OutcomePending:
		s.PendingCount++
	}
	s.Results = append(s.Results, r)
}

// Lines returns one human-readable line per partner in processing order.
func (s *Summary) Lines() []string {
	lines := make([]string, 0, len(s.Results))
	for _, r := range s.Results {
		lines = append(lines, r.String())
	}
	return lines
}

func (s *Summary) String() string {
	var b strings.Builder
	b.WriteString("Audit completed\n\n")
	fmt.Fprintf(&b, "Valid partners: %d\n", s.ValidCount)
	fmt.Fprintf(&b, "Warned partners: %d\n", s.WarnedCount)
	fmt.Fprintf(&b, "Invalid partners: %d\n", s.InvalidCount)
	if s.PendingCount > 0 {
		fmt.Fprintf(&b, "Pending applications: %d\n", s.PendingCount)
	}
	if len(s.Results) > 0 {
		b.WriteString("\nDetails:\n")
		b.WriteString(strings.Join(s.Lines(), "\n"))
	}
	return b.String()
}
