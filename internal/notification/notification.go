// Package notification defines the best-effort side-effect channel used by the
// partner lifecycle: direct messages, role changes and channel announcements.
package notification

import (
	"context"
	"time"
)

type Kind string

const (
	KindWarningIssued         Kind = "warning_issued"
	KindPartnershipTerminated Kind = "partnership_terminated"
	KindRequirementsRestored  Kind = "requirements_restored"
	KindApplicationReceived   Kind = "application_received"
	KindApplicationAccepted   Kind = "application_accepted"
	KindApplicationDenied     Kind = "application_denied"
)

type Payload struct {
	PartnerName     string
	InviteReference string
	Description     string
	MemberCount     int
	RequiredMembers int
	GracePeriod     time.Duration
}

// Level colours an announcement; adapters map it to whatever their medium supports.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Field struct {
	Name   string
	Value  string
	Inline bool
}

type Message struct {
	Title  string
	Body   string
	Level  Level
	Fields []Field
}

// Sink delivers notifications. Every method may fail independently; a nil error
// means the side effect was delivered. Callers treat failures as non-fatal.
type Sink interface {
	DirectMessage(ctx context.Context, userID string, kind Kind, payload Payload) error
	SetRole(ctx context.Context, userID, roleID string, present bool) error
	Announce(ctx context.Context, channelID string, msg Message) error
}
