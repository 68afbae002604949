package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fattura/internal/clock"
	"github.com/smallbiznis/fattura/internal/config"
	invoicedomain "github.com/smallbiznis/fattura/internal/invoice/domain"
	retentiondomain "github.com/smallbiznis/fattura/internal/retention/domain"
	"github.com/smallbiznis/fattura/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// piiKeys are the snapshot fields scrubbed on anonymization. Amounts, VAT
// lines, document numbering and transmission IDs stay: they are fiscal data,
// not personal data.
var piiKeys = []string{
	"customer_name",
	"customer_address",
	"customer_email",
	"customer_phone",
	"customer_tax_code",
	"customer_vat",
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Config config.Config
}

type service struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	years         int
	nearMonths    int
	criticalRatio float64
}

func NewService(p ServiceParam) retentiondomain.Service {
	years := p.Config.RetentionYears
	if years <= 0 {
		years = 10
	}
	nearMonths := p.Config.NearExpiryMonths
	if nearMonths <= 0 {
		nearMonths = 3
	}
	ratio := p.Config.CriticalRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 0.5
	}
	return &service{
		db:            p.DB,
		log:           p.Log.Named("retention"),
		clock:         p.Clock,
		years:         years,
		nearMonths:    nearMonths,
		criticalRatio: ratio,
	}
}

func (s *service) Dashboard(ctx context.Context) (*retentiondomain.Dashboard, error) {
	orgID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return nil, invoicedomain.ErrMissingTenant
	}

	now := s.clock.Now()
	deadline := now.AddDate(-s.years, 0, 0)
	nearCutoff := deadline.AddDate(0, s.nearMonths, 0)

	var stats retentiondomain.Stats
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).
			Model(&invoicedomain.ElectronicInvoice{}).
			Where("org_id = ?", orgID)
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("created_at <= ? AND anonymized = ?", deadline, false).
		Count(&stats.ExpiredNotAnonymized).Error; err != nil {
		return nil, err
	}
	if err := base().Where("created_at > ? AND created_at <= ? AND anonymized = ?", deadline, nearCutoff, false).
		Count(&stats.NearExpiry).Error; err != nil {
		return nil, err
	}
	if err := base().Where("anonymized = ?", true).Count(&stats.AlreadyAnonymized).Error; err != nil {
		return nil, err
	}

	return &retentiondomain.Dashboard{
		RetentionYears:    s.years,
		RetentionDeadline: deadline,
		Stats:             stats,
		ComplianceStatus:  s.complianceStatus(stats),
		GeneratedAt:       now,
	}, nil
}

// complianceStatus grades the anonymized share of expired documents. Every
// expired document anonymized means compliant; below the critical ratio
// means critical; anything in between is a warning.
func (s *service) complianceStatus(stats retentiondomain.Stats) retentiondomain.ComplianceStatus {
	expiredTotal := stats.ExpiredNotAnonymized + stats.AlreadyAnonymized
	if expiredTotal == 0 || stats.ExpiredNotAnonymized == 0 {
		return retentiondomain.StatusCompliant
	}
	done := float64(stats.AlreadyAnonymized) / float64(expiredTotal)
	if done < s.criticalRatio {
		return retentiondomain.StatusCritical
	}
	return retentiondomain.StatusWarning
}

func (s *service) AnonymizeExpired(ctx context.Context, dryRun bool) (*retentiondomain.AnonymizeResult, error) {
	orgID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return nil, invoicedomain.ErrMissingTenant
	}

	deadline := s.clock.Now().AddDate(-s.years, 0, 0)

	var expired []invoicedomain.ElectronicInvoice
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND created_at <= ? AND anonymized = ?", orgID, deadline, false).
		Order("created_at ASC").
		Find(&expired).Error
	if err != nil {
		return nil, err
	}

	result := &retentiondomain.AnonymizeResult{TotalFound: len(expired), DryRun: dryRun}
	if dryRun {
		return result, nil
	}

	for i := range expired {
		if err := s.anonymizeOne(ctx, orgID, &expired[i]); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, retentiondomain.ItemError{
				TransmissionID: expired[i].TransmissionID,
				Message:        err.Error(),
			})
			continue
		}
		result.Anonymized++
	}

	s.log.Info("anonymization run finished",
		zap.Int("total_found", result.TotalFound),
		zap.Int("anonymized", result.Anonymized),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// ensureRetentionElapsed is the hard guard on the scrub path. It re-derives
// eligibility from the row itself so no caller flag can anonymize a document
// the law still requires intact.
func (s *service) ensureRetentionElapsed(inv *invoicedomain.ElectronicInvoice) error {
	deadline := inv.CreatedAt.AddDate(s.years, 0, 0)
	if s.clock.Now().Before(deadline) {
		return fmt.Errorf("%w: retained until %s", retentiondomain.ErrRetentionViolation, deadline.Format("2006-01-02"))
	}
	return nil
}

func (s *service) anonymizeOne(ctx context.Context, orgID snowflake.ID, inv *invoicedomain.ElectronicInvoice) error {
	if err := s.ensureRetentionElapsed(inv); err != nil {
		return err
	}

	snapshot := inv.Snapshot
	if snapshot == nil {
		snapshot = datatypes.JSONMap{}
	}
	for _, key := range piiKeys {
		delete(snapshot, key)
	}

	now := s.clock.Now()
	res := s.db.WithContext(ctx).
		Model(&invoicedomain.ElectronicInvoice{}).
		Where("org_id = ? AND id = ? AND anonymized = ?", orgID, inv.ID, false).
		Updates(map[string]any{
			"snapshot":        snapshot,
			"xml_payload":     nil,
			"pdf_payload":     nil,
			"receipt_payload": nil,
			"anonymized":      true,
			"anonymized_at":   now,
			"updated_at":      now,
		})
	if res.Error != nil {
		return res.Error
	}
	// RowsAffected 0 means a concurrent run already scrubbed it, which is
	// the outcome we wanted anyway.
	return nil
}
