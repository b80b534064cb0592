package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerbot/internal/advert"
	auditdomain "github.com/smallbiznis/partnerbot/internal/audit/domain"
	"github.com/smallbiznis/partnerbot/internal/clock"
	obsmetrics "github.com/smallbiznis/partnerbot/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// AdvertPoster publishes the advertisement round.
type AdvertPoster interface {
	Post(ctx context.Context) (advert.Report, error)
}

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Audit   auditdomain.Service
	Adverts AdvertPoster
	Metrics *obsmetrics.SchedulerMetrics `optional:"true"`
	Config  Config                       `optional:"true"`
}

type job struct {
	name     string
	timeout  time.Duration
	schedule Schedule
	run      func(ctx context.Context) error
	next     time.Time
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *obsmetrics.SchedulerMetrics

	mu   sync.Mutex
	jobs []*job
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Audit == nil || p.Adverts == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	schedMetrics := p.Metrics
	if schedMetrics == nil {
		schedMetrics = obsmetrics.Scheduler()
	}
	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     cfg,
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: schedMetrics,
	}

	now := p.Clock.Now()
	candidates := []*job{
		{
			name:     JobPartnerAudit,
			timeout:  cfg.AuditTimeout,
			schedule: cfg.auditSchedule(),
			run: func(ctx context.Context) error {
				return s.auditJob(ctx, p.Audit)
			},
		},
		{
			name:     JobAdvertisements,
			timeout:  cfg.AdvertTimeout,
			schedule: Every{Interval: cfg.AdvertInterval},
			run: func(ctx context.Context) error {
				return s.advertJob(ctx, p.Adverts)
			},
		},
	}
	for _, j := range candidates {
		if !s.isJobEnabled(j.name) {
			continue
		}
		j.next = j.schedule.Next(now)
		s.jobs = append(s.jobs, j)
		s.log.Info("scheduler.job.scheduled", zap.String("job", j.name), zap.Time("next_run", j.next))
	}
	return s, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name)
	s.logJobStart(ctx, run)
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err != nil && !errors.Is(err, errJobSkipped) {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}
	if errors.Is(err, errJobSkipped) {
		s.metrics.IncJobSkipped(name)
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every job that is due. A failing job never keeps the others
// from running; their errors are joined.
func (s *Scheduler) RunOnce(parent context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	now := s.clock.Now()
	for _, j := range s.jobs {
		if now.Before(j.next) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, j.name, j.timeout, j.run))
		j.next = j.schedule.Next(now)
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if runLag := s.clock.Now().Sub(nextRun); runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// If EnabledJobs is empty, all jobs are enabled by default (monolith mode)
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

var errJobSkipped = errors.New("job_skipped")

func (s *Scheduler) auditJob(ctx context.Context, svc auditdomain.Service) error {
	summary, err := svc.Run(ctx)
	if errors.Is(err, auditdomain.ErrAuditInProgress) {
		s.logger(ctx).Info("scheduler.audit.skipped", zap.String("reason", "in_progress"))
		return errJobSkipped
	}
	if err != nil {
		return err
	}
	if run := jobRunFromContext(ctx); run != nil {
		run.AddProcessed(len(summary.Results))
	}
	return nil
}

func (s *Scheduler) advertJob(ctx context.Context, poster AdvertPoster) error {
	report, err := poster.Post(ctx)
	if run := jobRunFromContext(ctx); run != nil {
		run.AddProcessed(report.Posted)
		for i := 0; i < report.Failed; i++ {
			run.IncError()
		}
	}
	return err
}
