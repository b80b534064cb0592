package scheduler

import (
	"time"

	"github.com/smallbiznis/partnerbot/internal/config"
)

const (
	JobPartnerAudit   = "partner_audit"
	JobAdvertisements = "advertisements"
)

// Config controls the scheduler tick and the job cadences.
type Config struct {
	RunInterval    time.Duration
	AuditHourUTC   int
	AuditInterval  time.Duration
	AdvertInterval time.Duration
	AuditTimeout   time.Duration
	AdvertTimeout  time.Duration
	EnabledJobs    []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:    time.Minute,
		AuditHourUTC:   12,
		AuditInterval:  24 * time.Hour,
		AdvertInterval: 6 * time.Hour,
		AuditTimeout:   2 * time.Hour,
		AdvertTimeout:  30 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:    cfg.Jobs.TickInterval,
		AuditHourUTC:   cfg.Jobs.AuditHourUTC,
		AuditInterval:  cfg.Jobs.AuditInterval,
		AdvertInterval: cfg.Jobs.AdvertInterval,
		AuditTimeout:   cfg.Jobs.AuditTimeout,
		AdvertTimeout:  cfg.Jobs.AdvertTimeout,
		EnabledJobs:    cfg.Jobs.EnabledJobs,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.AuditHourUTC < 0 || c.AuditHourUTC > 23 {
		c.AuditHourUTC = defaults.AuditHourUTC
	}
	if c.AuditInterval <= 0 {
		c.AuditInterval = defaults.AuditInterval
	}
	if c.AdvertInterval <= 0 {
		c.AdvertInterval = defaults.AdvertInterval
	}
	if c.AuditTimeout <= 0 {
		c.AuditTimeout = defaults.AuditTimeout
	}
	if c.AdvertTimeout <= 0 {
		c.AdvertTimeout = defaults.AdvertTimeout
	}
	return c
}

// Schedule yields the first due time strictly after t.
type Schedule interface {
	Next(t time.Time) time.Time
}

// DailyAt fires once a day at the given UTC hour.
type DailyAt struct {
	Hour int
}

func (d DailyAt) Next(t time.Time) time.Time {
	t = t.UTC()
	next := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, 0, 0, 0, time.UTC)
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Every fires on multiples of Interval, aligned to UTC midnight for intervals
// that divide a day.
type Every struct {
	Interval time.Duration
}

func (e Every) Next(t time.Time) time.Time {
	t = t.UTC()
	return t.Truncate(e.Interval).Add(e.Interval)
}

func (c Config) auditSchedule() Schedule {
	if c.AuditInterval == 24*time.Hour {
		return DailyAt{Hour: c.AuditHourUTC}
	}
	return Every{Interval: c.AuditInterval}
}
