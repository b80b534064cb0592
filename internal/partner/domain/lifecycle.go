package domain

import "time"

// Lifecycle is the closed set of states a partner can be in. Warned carries the
// start of its grace period, so a warned partner without one cannot be built.
type Lifecycle interface {
	Status() Status
	isLifecycle()
}

type Pending struct{}

type Active struct{}

type Warned struct {
	Since time.Time
}

type Invalid struct{}

func (Pending) Status() Status { return StatusPending }
func (Active) Status() Status  { return StatusActive }
func (Warned) Status() Status  { return StatusWarned }
func (Invalid) Status() Status { return StatusInvalid }

func (Pending) isLifecycle() {}
func (Active) isLifecycle()  {}
func (Warned) isLifecycle()  {}
func (Invalid) isLifecycle() {}

// Lifecycle decodes the stored status. A warned row without a timestamp is
// treated as active; an unknown status is treated as invalid.
func (p Partner) Lifecycle() Lifecycle {
	switch p.Status {
	case StatusPending:
		return Pending{}
	case StatusActive:
		return Active{}
	case StatusWarned:
		if p.WarningIssuedAt == nil {
			return Active{}
		}
		return Warned{Since: p.WarningIssuedAt.UTC()}
	default:
		return Invalid{}
	}
}

// SetLifecycle writes status and warning timestamp together.
func (p *Partner) SetLifecycle(l Lifecycle) {
	p.Status = l.Status()
	if w, ok := l.(Warned); ok {
		since := w.Since.UTC()
		p.WarningIssuedAt = &since
		return
	}
	p.WarningIssuedAt = nil
}
