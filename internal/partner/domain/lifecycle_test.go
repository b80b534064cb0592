package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleRoundTrip(t *testing.T) {
	since := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	cases := []Lifecycle{Pending{}, Active{}, Warned{Since: since}, Invalid{}}

	for _, l := range cases {
		var p Partner
		p.SetLifecycle(l)
		assert.Equal(t, l, p.Lifecycle())
		assert.Equal(t, l.Status() == StatusWarned, p.WarningIssuedAt != nil)
	}
}

func TestWarnedWithoutTimestampDecodesAsActive(t *testing.T) {
	p := Partner{Status: StatusWarned}
	assert.Equal(t, Active{}, p.Lifecycle())
}

func TestUnknownStatusDecodesAsInvalid(t *testing.T) {
	p := Partner{Status: Status("archived")}
	assert.Equal(t, Invalid{}, p.Lifecycle())
	assert.False(t, p.Status.Valid())
}

func TestSetLifecycleClearsWarning(t *testing.T) {
	since := time.Now()
	p := Partner{Status: StatusWarned, WarningIssuedAt: &since}
	p.SetLifecycle(Active{})
	assert.Nil(t, p.WarningIssuedAt)
	assert.Equal(t, StatusActive, p.Status)
}
