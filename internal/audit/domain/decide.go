package domain

import (
	"math"
	"time"

	"github.com/smallbiznis/partnerbot/internal/config"
	partnerdomain "github.com/smallbiznis/partnerbot/internal/partner/domain"
)

type Outcome string

const (
	OutcomeValid   Outcome = "valid"
	OutcomeWarned  Outcome = "warned"
	OutcomeInvalid Outcome = "invalid"
	OutcomeExempt  Outcome = "exempt"
	OutcomePending Outcome = "pending"
)

// Decision is everything the engine needs to apply one partner's audit step.
type Decision struct {
	Next    partnerdomain.Lifecycle
	Outcome Outcome
	// MemberCount is the value to store. Ignored when Persist is false.
	MemberCount int
	// RemainingHours is set for partners still inside their grace period.
	RemainingHours int
	// Terminated marks a warned partner whose grace period ran out.
	Terminated bool
	// Persist is false when the stored record must be left untouched.
	Persist bool

	NotifyWarning    bool
	NotifyRestored   bool
	NotifyTerminated bool
	RevokeRole       bool
}

// Decide runs the lifecycle state machine for one partner. It is pure: the
// caller performs the lookup, side effects and persistence.
func Decide(current partnerdomain.Lifecycle, exempt bool, res Resolution, now time.Time, policy config.Policy) Decision {
	if exempt {
		return Decision{Next: current, Outcome: OutcomeExempt}
	}

	if _, pending := current.(partnerdomain.Pending); pending {
		return decidePending(res, policy)
	}

	if !res.Valid {
		return Decision{
			Next:        partnerdomain.Invalid{},
			Outcome:     OutcomeInvalid,
			MemberCount: 0,
			Persist:     true,
		}
	}

	if res.MemberCount >= policy.MinMembers {
		_, wasWarned := current.(partnerdomain.Warned)
		return Decision{
			Next:           partnerdomain.Active{},
			Outcome:        OutcomeValid,
			MemberCount:    res.MemberCount,
			Persist:        true,
			NotifyRestored: wasWarned,
		}
	}

	warned, isWarned := current.(partnerdomain.Warned)
	if !isWarned {
		return Decision{
			Next:           partnerdomain.Warned{Since: now},
			Outcome:        OutcomeWarned,
			MemberCount:    res.MemberCount,
			RemainingHours: ceilHours(policy.GracePeriod),
			Persist:        true,
			NotifyWarning:  true,
		}
	}

	elapsed := now.Sub(warned.Since)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= policy.GracePeriod {
		return Decision{
			Next:             partnerdomain.Invalid{},
			Outcome:          OutcomeInvalid,
			MemberCount:      res.MemberCount,
			Terminated:       true,
			Persist:          true,
			NotifyTerminated: true,
			RevokeRole:       true,
		}
	}
	return Decision{
		Next:           warned,
		Outcome:        OutcomeWarned,
		MemberCount:    res.MemberCount,
		RemainingHours: ceilHours(policy.GracePeriod - elapsed),
		Persist:        true,
	}
}

// Pending applications are only moved by accept or deny. The audit refreshes
// their member count and never warns them.
func decidePending(res Resolution, policy config.Policy) Decision {
	if !res.Valid {
		if policy.InvalidatePendingOnFailedLookup {
			return Decision{Next: partnerdomain.Invalid{}, Outcome: OutcomeInvalid, Persist: true}
		}
		return Decision{Next: partnerdomain.Pending{}, Outcome: OutcomePending, Persist: true}
	}
	outcome := OutcomePending
	if res.MemberCount >= policy.MinMembers {
		outcome = OutcomeValid
	}
	return Decision{
		Next:        partnerdomain.Pending{},
		Outcome:     outcome,
		MemberCount: res.MemberCount,
		Persist:     true,
	}
}

func ceilHours(d time.Duration) int {
	return int(math.Ceil(d.Hours()))
}
