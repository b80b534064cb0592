package domain

import "time"

const GlobalKey = "global"

// Settings is the singleton row of bot-wide switches.
type Settings struct {
	Key              string    `gorm:"primaryKey;type:varchar(32)" json:"-"`
	ApplicationsOpen bool      `gorm:"column:applications_open;not null;default:false" json:"applications_open"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (Settings) TableName() string { return "settings" }
