package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fattura/internal/clock"
	"github.com/smallbiznis/fattura/internal/config"
	invoicedomain "github.com/smallbiznis/fattura/internal/invoice/domain"
	preservationdomain "github.com/smallbiznis/fattura/internal/preservation/domain"
	"github.com/smallbiznis/fattura/internal/preservation/storage"
	"github.com/smallbiznis/fattura/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Storage storage.Storage
	Config  config.Config
}

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	storage storage.Storage
	years   int
}

func NewService(p ServiceParam) preservationdomain.Service {
	years := p.Config.PreservationYears
	if years <= 0 {
		years = 10
	}
	return &service{
		db:      p.DB,
		log:     p.Log.Named("preservation"),
		clock:   p.Clock,
		storage: p.Storage,
		years:   years,
	}
}

func artifactKey(orgID snowflake.ID, transmissionID, artifact string) string {
	return fmt.Sprintf("%d/%s/%s", orgID, transmissionID, artifact)
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *service) loadInvoice(ctx context.Context, orgID, id snowflake.ID) (*invoicedomain.ElectronicInvoice, error) {
	var inv invoicedomain.ElectronicInvoice
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&inv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, invoicedomain.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (s *service) Preserve(ctx context.Context, invoiceID snowflake.ID, force bool) (bool, error) {
	orgID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return false, invoicedomain.ErrMissingTenant
	}

	inv, err := s.loadInvoice(ctx, orgID, invoiceID)
	if err != nil {
		return false, err
	}

	// Idempotent skip, not an error: preservation is driven by filters and
	// must tolerate concurrent re-invocation.
	if inv.Status != invoicedomain.StatusAccepted {
		return false, nil
	}
	if inv.PreservedAt != nil && !force {
		return false, nil
	}
	if len(inv.XMLPayload) == 0 {
		return false, preservationdomain.ErrMissingPayload
	}

	type artifact struct {
		name string
		data []byte
		hash string
	}
	artifacts := []artifact{{name: "xml", data: inv.XMLPayload, hash: hashBytes(inv.XMLPayload)}}
	if len(inv.PDFPayload) > 0 {
		artifacts = append(artifacts, artifact{name: "pdf", data: inv.PDFPayload, hash: hashBytes(inv.PDFPayload)})
	}
	if len(inv.ReceiptPayload) > 0 {
		artifacts = append(artifacts, artifact{name: "receipt", data: inv.ReceiptPayload, hash: hashBytes(inv.ReceiptPayload)})
	}

	// Blobs first, metadata second: a failure in between leaves the invoice
	// unpreserved and the orphan blob is rewritten on retry. Partial
	// preservation is never observable through the record.
	for _, a := range artifacts {
		if err := s.storage.Write(ctx, artifactKey(orgID, inv.TransmissionID, a.name), a.data); err != nil {
			return false, fmt.Errorf("write %s artifact: %w", a.name, err)
		}
	}

	now := s.clock.Now()
	expires := now.AddDate(s.years, 0, 0)

	updates := map[string]any{
		"preserved_at":            now,
		"preservation_expires_at": expires,
		"updated_at":              now,
	}
	for _, a := range artifacts {
		updates[a.name+"_hash"] = a.hash
	}

	stmt := s.db.WithContext(ctx).
		Model(&invoicedomain.ElectronicInvoice{}).
		Where("org_id = ? AND id = ?", orgID, invoiceID)
	if !force {
		stmt = stmt.Where("preserved_at IS NULL")
	}
	res := stmt.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// A concurrent run got there first.
		return false, nil
	}

	s.log.Info("invoice preserved",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("transmission_id", inv.TransmissionID),
		zap.Time("expires_at", expires),
	)
	return true, nil
}

func (s *service) PreserveBatch(ctx context.Context, invoiceIDs []snowflake.ID, force bool) preservationdomain.BatchResult {
	var result preservationdomain.BatchResult

	for _, id := range invoiceIDs {
		preserved, err := s.Preserve(ctx, id, force)
		if err != nil {
			result.Failed++
			transmissionID := id.String()
			if inv, loadErr := s.lookupTransmissionID(ctx, id); loadErr == nil {
				transmissionID = inv
			}
			result.Errors = append(result.Errors, preservationdomain.ItemError{
				TransmissionID: transmissionID,
				Message:        err.Error(),
			})
			continue
		}
		if preserved {
			result.Success++
		} else {
			result.Skipped++
		}
	}
	return result
}

func (s *service) lookupTransmissionID(ctx context.Context, id snowflake.ID) (string, error) {
	orgID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return "", invoicedomain.ErrMissingTenant
	}
	var transmissionID string
	err := s.db.WithContext(ctx).Raw(
		`SELECT transmission_id FROM electronic_invoices WHERE org_id = ? AND id = ?`,
		orgID, id,
	).Scan(&transmissionID).Error
	if err != nil || transmissionID == "" {
		return "", invoicedomain.ErrNotFound
	}
	return transmissionID, nil
}

func (s *service) VerifyIntegrity(ctx context.Context, invoiceID snowflake.ID) (*preservationdomain.IntegrityReport, error) {
	orgID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return nil, invoicedomain.ErrMissingTenant
	}

	inv, err := s.loadInvoice(ctx, orgID, invoiceID)
	if err != nil {
		return nil, err
	}

	report := &preservationdomain.IntegrityReport{}
	checks := []struct {
		name     string
		recorded string
		out      *preservationdomain.ArtifactCheck
	}{
		{"xml", inv.XMLHash, &report.XML},
		{"pdf", inv.PDFHash, &report.PDF},
		{"receipt", inv.ReceiptHash, &report.Receipt},
	}

	for _, c := range checks {
		if c.recorded == "" {
			// Never recorded, never checked.
			continue
		}
		c.out.Checked = true

		data, err := s.storage.Read(ctx, artifactKey(orgID, inv.TransmissionID, c.name))
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: read artifact: %v", c.name, err))
			continue
		}
		if hashBytes(data) != c.recorded {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: stored artifact does not match recorded hash", c.name))
			continue
		}
		c.out.OK = true
	}

	if !report.Clean() {
		s.log.Warn("integrity mismatch detected",
			zap.String("invoice_id", invoiceID.String()),
			zap.Strings("errors", report.Errors),
		)
	}
	return report, nil
}

func (s *service) GetExpiringSoon(ctx context.Context, days int) ([]invoicedomain.ElectronicInvoice, error) {
	orgID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return nil, invoicedomain.ErrMissingTenant
	}

	now := s.clock.Now()
	threshold := now.Add(time.Duration(days) * 24 * time.Hour)

	var items []invoicedomain.ElectronicInvoice
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND preservation_expires_at IS NOT NULL AND preservation_expires_at > ? AND preservation_expires_at <= ?", orgID, now, threshold).
		Order("preservation_expires_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *service) GetExpired(ctx context.Context) ([]invoicedomain.ElectronicInvoice, error) {
	orgID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return nil, invoicedomain.ErrMissingTenant
	}

	var items []invoicedomain.ElectronicInvoice
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND preservation_expires_at IS NOT NULL AND preservation_expires_at <= ?", orgID, s.clock.Now()).
		Order("preservation_expires_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *service) ListEligible(ctx context.Context, limit int) ([]invoicedomain.ElectronicInvoice, error) {
	orgID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return nil, invoicedomain.ErrMissingTenant
	}

	var items []invoicedomain.ElectronicInvoice
	stmt := s.db.WithContext(ctx).
		Where("org_id = ? AND sdi_status = ? AND preserved_at IS NULL", orgID, invoicedomain.StatusAccepted).
		Order("created_at ASC")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *service) ListAccepted(ctx context.Context, limit int) ([]invoicedomain.ElectronicInvoice, error) {
	orgID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return nil, invoicedomain.ErrMissingTenant
	}

	var items []invoicedomain.ElectronicInvoice
	stmt := s.db.WithContext(ctx).
		Where("org_id = ? AND sdi_status = ?", orgID, invoicedomain.StatusAccepted).
		Order("created_at ASC")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
