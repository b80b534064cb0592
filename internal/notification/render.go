package notification

import (
	"fmt"
	"math"
)

// Render turns a direct-message kind into a message.
func Render(kind Kind, p Payload) Message {
	switch kind {
	case KindWarningIssued:
		return Message{
			Title: "Partnership warning",
			Body: fmt.Sprintf("Your server %s no longer meets the partner requirements (%d of %d members). "+
				"You have %d hours to meet them again before the partnership ends.",
				p.PartnerName, p.MemberCount, p.RequiredMembers, hours(p)),
			Level: LevelWarning,
		}
	case KindPartnershipTerminated:
		return Message{
			Title: "Partnership ended",
			Body: fmt.Sprintf("The partnership with %s has ended because the requirements were not met within %d hours. "+
				"You are welcome to apply again once your server qualifies.", p.PartnerName, hours(p)),
			Level: LevelError,
		}
	case KindRequirementsRestored:
		return Message{
			Title: "Requirements met again",
			Body:  fmt.Sprintf("Your server %s meets all partner requirements again. The warning has been lifted.", p.PartnerName),
			Level: LevelSuccess,
		}
	case KindApplicationReceived:
		return Message{
			Title: "Application under review",
			Body:  fmt.Sprintf("Your application for %s was submitted. You will be notified once it has been reviewed.", p.PartnerName),
			Level: LevelWarning,
		}
	case KindApplicationAccepted:
		return Message{
			Title: "Partnership accepted",
			Body: fmt.Sprintf("Your application for %s was accepted. Keep at least %d members to stay a partner.",
				p.PartnerName, p.RequiredMembers),
			Level: LevelSuccess,
		}
	case KindApplicationDenied:
		return Message{
			Title: "Partnership denied",
			Body:  fmt.Sprintf("Your application for %s was denied. You are welcome to apply again later.", p.PartnerName),
			Level: LevelError,
		}
	default:
		return Message{Title: string(kind), Body: p.PartnerName, Level: LevelInfo}
	}
}

func hours(p Payload) int {
	return int(math.Ceil(p.GracePeriod.Hours()))
}
