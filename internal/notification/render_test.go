package notification

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderWarningMentionsCountsAndGrace(t *testing.T) {
	msg := Render(KindWarningIssued, Payload{
		PartnerName:     "Cozy Corner",
		MemberCount:     42,
		RequiredMembers: 100,
		GracePeriod:     72 * time.Hour,
	})

	assert.Equal(t, LevelWarning, msg.Level)
	assert.True(t, strings.Contains(msg.Body, "42 of 100"))
	assert.True(t, strings.Contains(msg.Body, "72 hours"))
}

func TestRenderEveryKindHasTitle(t *testing.T) {
	kinds := []Kind{
		KindWarningIssued,
		KindPartnershipTerminated,
		KindRequirementsRestored,
		KindApplicationReceived,
		KindApplicationAccepted,
		KindApplicationDenied,
	}
	for _, kind := range kinds {
		msg := Render(kind, Payload{PartnerName: "x"})
		assert.NotEmpty(t, msg.Title, kind)
		assert.Contains(t, msg.Body, "x", kind)
	}
}
