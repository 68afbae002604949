// Package scheduler drives the recurring compliance jobs: preserving
// accepted invoices, warning on expiring preservations and anonymizing
// documents past their retention period. Every job is idempotent and walks
// tenants sequentially; a second run over the same data is a no-op.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fattura/internal/clock"
	"github.com/smallbiznis/fattura/internal/notification"
	obsmetrics "github.com/smallbiznis/fattura/internal/observability/metrics"
	organizationdomain "github.com/smallbiznis/fattura/internal/organization/domain"
	preservationdomain "github.com/smallbiznis/fattura/internal/preservation/domain"
	retentiondomain "github.com/smallbiznis/fattura/internal/retention/domain"
	"github.com/smallbiznis/fattura/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log             *zap.Logger
	PreservationSvc preservationdomain.Service
	RetentionSvc    retentiondomain.Service
	Tenants         organizationdomain.TenantLister
	Notifier        notification.Notifier `optional:"true"`
	GenID           *snowflake.Node
	Clock           clock.Clock
	Config          Config `optional:"true"`
}

type Scheduler struct {
	log             *zap.Logger
	cfg             Config
	genID           *snowflake.Node
	clock           clock.Clock
	preservationSvc preservationdomain.Service
	retentionSvc    retentiondomain.Service
	tenants         organizationdomain.TenantLister
	notifier        notification.Notifier
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.PreservationSvc == nil || p.RetentionSvc == nil || p.Tenants == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	notifier := p.Notifier
	if notifier == nil {
		notifier = notification.Nop{}
	}
	return &Scheduler{
		log:             p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:             p.Config.withDefaults(),
		genID:           p.GenID,
		clock:           p.Clock,
		preservationSvc: p.PreservationSvc,
		retentionSvc:    p.RetentionSvc,
		tenants:         p.Tenants,
		notifier:        notifier,
	}, nil
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

	ctx, run, owner := s.ensureJobRun(ctx, name, s.cfg.BatchSize)
	if owner {
		s.logJobStart(run)
	}
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(run)
	}
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(name)
		schedMetrics.IncJobError(name, err)
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	schedMetrics.IncJobError(name, err)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{obsmetrics.JobPreserveAccepted, func(ctx context.Context) error {
			return s.runJob(ctx, obsmetrics.JobPreserveAccepted, 5*time.Minute, s.PreserveAcceptedJob)
		}},
		{obsmetrics.JobCheckExpiring, func(ctx context.Context) error {
			return s.runJob(ctx, obsmetrics.JobCheckExpiring, 5*time.Minute, s.CheckExpiringJob)
		}},
		{obsmetrics.JobAnonymizeExpired, func(ctx context.Context) error {
			return s.runJob(ctx, obsmetrics.JobAnonymizeExpired, 5*time.Minute, s.AnonymizeExpiredJob)
		}},
	}

	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// Empty EnabledJobs means all jobs run (monolith mode).
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

// PreserveAcceptedJob walks every tenant and preserves accepted invoices
// that have no preservation record yet.
func (s *Scheduler) PreserveAcceptedJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, obsmetrics.JobPreserveAccepted, s.cfg.BatchSize)
	if owner {
		s.logJobStart(run)
		defer s.logJobFinish(run)
	}
	schedMetrics := obsmetrics.Scheduler()

	tenantIDs, err := s.tenants.ListIDs(ctx)
	if err != nil {
		s.logSchedulerError(run, "scheduler.tenants.list.failed", obsmetrics.JobPreserveAccepted, 0, err)
		return err
	}

	var jobErr error
	for _, orgID := range tenantIDs {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		tctx := tenantctx.WithTenantID(ctx, orgID)

		for {
			eligible, err := s.preservationSvc.ListEligible(tctx, s.cfg.BatchSize)
			if err != nil {
				jobErr = errors.Join(jobErr, err)
				s.logSchedulerError(run, "preservation.list.failed", obsmetrics.JobPreserveAccepted, orgID, err)
				break
			}
			if len(eligible) == 0 {
				break
			}

			ids := make([]snowflake.ID, 0, len(eligible))
			for _, inv := range eligible {
				ids = append(ids, inv.ID)
			}

			result := s.preservationSvc.PreserveBatch(tctx, ids, false)
			run.AddProcessed(result.Success)
			schedMetrics.AddBatchProcessed(obsmetrics.JobPreserveAccepted, "invoices", result.Success)

			for _, item := range result.Errors {
				s.logSchedulerError(run, "preservation.item.failed", obsmetrics.JobPreserveAccepted, orgID, errors.New(item.Message),
					zap.String("transmission_id", item.TransmissionID),
				)
			}
			if result.Failed > 0 {
				jobErr = errors.Join(jobErr, fmt.Errorf("org %s: %d preservation failures", orgID, result.Failed))
			}
			// Failed items remain eligible; without forward progress a
			// retry this run would spin on them.
			if result.Success == 0 {
				break
			}
		}
	}

	return jobErr
}

// CheckExpiringJob reports preservations whose retention window closes soon,
// optionally re-verifying the stored artifacts before telling anyone.
func (s *Scheduler) CheckExpiringJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, obsmetrics.JobCheckExpiring, s.cfg.BatchSize)
	if owner {
		s.logJobStart(run)
		defer s.logJobFinish(run)
	}

	tenantIDs, err := s.tenants.ListIDs(ctx)
	if err != nil {
		s.logSchedulerError(run, "scheduler.tenants.list.failed", obsmetrics.JobCheckExpiring, 0, err)
		return err
	}

	var jobErr error
	for _, orgID := range tenantIDs {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		tctx := tenantctx.WithTenantID(ctx, orgID)

		expiring, err := s.preservationSvc.GetExpiringSoon(tctx, s.cfg.ExpiryWarningDays)
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			s.logSchedulerError(run, "preservation.expiring.failed", obsmetrics.JobCheckExpiring, orgID, err)
			continue
		}
		if len(expiring) == 0 {
			continue
		}

		var integrityErrors []string
		if s.cfg.VerifyExpiring {
			for _, inv := range expiring {
				report, err := s.preservationSvc.VerifyIntegrity(tctx, inv.ID)
				if err != nil {
					jobErr = errors.Join(jobErr, err)
					s.logSchedulerError(run, "preservation.verify.failed", obsmetrics.JobCheckExpiring, orgID, err,
						zap.String("transmission_id", inv.TransmissionID),
					)
					continue
				}
				if !report.Clean() {
					for _, msg := range report.Errors {
						integrityErrors = append(integrityErrors, fmt.Sprintf("%s: %s", inv.TransmissionID, msg))
					}
				}
			}
		}

		report := notification.Report{
			OrgID:           orgID,
			ExpiringCount:   len(expiring),
			IntegrityErrors: integrityErrors,
			GeneratedAt:     s.clock.Now(),
		}
		if err := s.notifier.SendComplianceReport(tctx, report); err != nil {
			jobErr = errors.Join(jobErr, err)
			s.logSchedulerError(run, "notification.send.failed", obsmetrics.JobCheckExpiring, orgID, err)
			continue
		}
		run.AddProcessed(len(expiring))

		s.log.Info("expiring preservations reported",
			zap.String("org_id", orgID.String()),
			zap.Int("expiring_count", len(expiring)),
			zap.Int("integrity_errors", len(integrityErrors)),
		)
	}

	return jobErr
}

// AnonymizeExpiredJob scrubs PII from documents past their retention period.
func (s *Scheduler) AnonymizeExpiredJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, obsmetrics.JobAnonymizeExpired, s.cfg.BatchSize)
	if owner {
		s.logJobStart(run)
		defer s.logJobFinish(run)
	}
	schedMetrics := obsmetrics.Scheduler()

	tenantIDs, err := s.tenants.ListIDs(ctx)
	if err != nil {
		s.logSchedulerError(run, "scheduler.tenants.list.failed", obsmetrics.JobAnonymizeExpired, 0, err)
		return err
	}

	var jobErr error
	for _, orgID := range tenantIDs {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		tctx := tenantctx.WithTenantID(ctx, orgID)

		result, err := s.retentionSvc.AnonymizeExpired(tctx, s.cfg.AnonymizeDryRun)
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			s.logSchedulerError(run, "retention.anonymize.failed", obsmetrics.JobAnonymizeExpired, orgID, err)
			continue
		}

		run.AddProcessed(result.Anonymized)
		schedMetrics.AddBatchProcessed(obsmetrics.JobAnonymizeExpired, "invoices", result.Anonymized)

		for _, item := range result.Errors {
			s.logSchedulerError(run, "retention.item.failed", obsmetrics.JobAnonymizeExpired, orgID, errors.New(item.Message),
				zap.String("transmission_id", item.TransmissionID),
			)
		}
		if result.Failed > 0 {
			jobErr = errors.Join(jobErr, fmt.Errorf("org %s: %d anonymization failures", orgID, result.Failed))
		}
	}

	return jobErr
}
