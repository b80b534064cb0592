package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/partnerbot/internal/advert"
	auditdomain "github.com/smallbiznis/partnerbot/internal/audit/domain"
	"github.com/smallbiznis/partnerbot/internal/clock"
	obsmetrics "github.com/smallbiznis/partnerbot/internal/observability/metrics"
	partnerdomain "github.com/smallbiznis/partnerbot/internal/partner/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAudit struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeAudit) RunAudit(ctx context.Context, partners []partnerdomain.Partner) (*auditdomain.Summary, error) {
	return auditdomain.NewSummary(), nil
}

func (f *fakeAudit) Run(ctx context.Context) (*auditdomain.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	summary := auditdomain.NewSummary()
	summary.Add(auditdomain.Result{PartnerName: "Alpha", Outcome: auditdomain.OutcomeValid, MemberCount: 120})
	return summary, nil
}

type fakePoster struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakePoster) Post(ctx context.Context) (advert.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return advert.Report{OwnPosted: true, Posted: 3}, f.err
}

type schedFixture struct {
	sched    *Scheduler
	clock    *clock.FakeClock
	audit    *fakeAudit
	poster   *fakePoster
	registry *prometheus.Registry
}

func newSchedFixture(t *testing.T, start time.Time, cfg Config) schedFixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := schedFixture{
		clock:    clock.NewFakeClock(start),
		audit:    &fakeAudit{},
		poster:   &fakePoster{},
		registry: prometheus.NewRegistry(),
	}
	f.sched, err = New(Params{
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   f.clock,
		Audit:   f.audit,
		Adverts: f.poster,
		Metrics: obsmetrics.NewSchedulerMetrics(f.registry, obsmetrics.Config{}),
		Config:  cfg,
	})
	require.NoError(t, err)
	return f
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, job string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if labelValue(m, "job") == job {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestDailyAt(t *testing.T) {
	d := DailyAt{Hour: 12}

	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), d.Next(time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC), d.Next(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC), d.Next(time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)))
}

func TestEveryAlignsToInterval(t *testing.T) {
	e := Every{Interval: 6 * time.Hour}

	assert.Equal(t, time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC), e.Next(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC), e.Next(time.Date(2025, 6, 1, 13, 10, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), e.Next(time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{AuditHourUTC: 30}.withDefaults()

	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.Equal(t, 12, cfg.AuditHourUTC)
	assert.Equal(t, 6*time.Hour, cfg.AdvertInterval)
	assert.Equal(t, DailyAt{Hour: 12}, cfg.auditSchedule())
	assert.Equal(t, Every{Interval: time.Hour}, Config{AuditInterval: time.Hour}.withDefaults().auditSchedule())
}

func TestRunOnceRunsOnlyDueJobs(t *testing.T) {
	f := newSchedFixture(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), Config{})

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Zero(t, f.audit.calls)
	assert.Zero(t, f.poster.calls)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, 1, f.audit.calls)
	assert.Equal(t, 1, f.poster.calls)

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, 1, f.audit.calls, "audit must not repeat within the day")

	f.clock.Advance(6 * time.Hour)
	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, 1, f.audit.calls)
	assert.Equal(t, 2, f.poster.calls)

	f.clock.Advance(18 * time.Hour)
	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, 2, f.audit.calls)
	assert.Equal(t, float64(2), counterValue(t, f.registry, "partnerbot_scheduler_job_runs_total", JobPartnerAudit))
}

func TestRunOnceIsolatesJobFailures(t *testing.T) {
	f := newSchedFixture(t, time.Date(2025, 6, 1, 11, 59, 0, 0, time.UTC), Config{})
	f.audit.err = errors.New("audit_aborted: save partner: disk full")
	f.poster.err = errors.New("load active partners: connection refused")

	f.clock.Advance(time.Minute)
	err := f.sched.RunOnce(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, f.audit.calls)
	assert.Equal(t, 1, f.poster.calls)
	assert.Contains(t, err.Error(), JobPartnerAudit)
	assert.Contains(t, err.Error(), JobAdvertisements)
	assert.Equal(t, float64(1), counterValue(t, f.registry, "partnerbot_scheduler_job_errors_total", JobPartnerAudit))
}

func TestAuditInProgressIsSkipped(t *testing.T) {
	f := newSchedFixture(t, time.Date(2025, 6, 1, 11, 59, 0, 0, time.UTC), Config{EnabledJobs: []string{JobPartnerAudit}})
	f.audit.err = auditdomain.ErrAuditInProgress

	f.clock.Advance(time.Minute)
	require.NoError(t, f.sched.RunOnce(context.Background()))

	assert.Equal(t, 1, f.audit.calls)
	assert.Zero(t, f.poster.calls)
	assert.Equal(t, float64(1), counterValue(t, f.registry, "partnerbot_scheduler_job_skipped_total", JobPartnerAudit))
	assert.Zero(t, counterValue(t, f.registry, "partnerbot_scheduler_job_errors_total", JobPartnerAudit))
}

func TestTimeoutsAreSoft(t *testing.T) {
	f := newSchedFixture(t, time.Date(2025, 6, 1, 5, 59, 0, 0, time.UTC), Config{EnabledJobs: []string{JobAdvertisements}})
	f.poster.err = context.DeadlineExceeded

	f.clock.Advance(time.Minute)
	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, float64(1), counterValue(t, f.registry, "partnerbot_scheduler_job_timeouts_total", JobAdvertisements))
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
