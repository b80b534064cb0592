package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusWarned  Status = "warned"
	StatusInvalid Status = "invalid"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusWarned, StatusInvalid:
		return true
	default:
		return false
	}
}

type Partner struct {
	ID                     snowflake.ID `gorm:"primaryKey" json:"id"`
	Name                   string       `gorm:"type:varchar(100);not null;uniqueIndex:ux_partners_name" json:"name"`
	Slug                   string       `gorm:"type:varchar(120);not null;uniqueIndex:ux_partners_slug" json:"slug"`
	InviteReference        string       `gorm:"column:invite_reference;type:text;not null" json:"invite_reference"`
	Description            string       `gorm:"type:text;not null" json:"description"`
	Status                 Status       `gorm:"type:varchar(16);not null;index" json:"status"`
	MemberCount            int          `gorm:"column:member_count;not null;default:0" json:"member_count"`
	ApplicantID            *string      `gorm:"column:applicant_id" json:"applicant_id,omitempty"`
	ExemptFromRequirements bool         `gorm:"column:exempt_from_requirements;not null;default:false" json:"exempt_from_requirements"`
	WarningIssuedAt        *time.Time   `gorm:"column:warning_issued_at" json:"warning_issued_at,omitempty"`
	LastAuditAt            *time.Time   `gorm:"column:last_audit_at" json:"last_audit_at,omitempty"`
	CreatedAt              time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time    `gorm:"not null" json:"updated_at"`
}

func (Partner) TableName() string { return "partners" }

// Applicant returns the applicant id or "" for manually added partners.
func (p Partner) Applicant() string {
	if p.ApplicantID == nil {
		return ""
	}
	return *p.ApplicantID
}
