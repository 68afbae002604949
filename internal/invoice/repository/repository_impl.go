package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/fattura/internal/invoice/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) invoicedomain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, inv *invoicedomain.ElectronicInvoice) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*invoicedomain.ElectronicInvoice, error) {
	var inv invoicedomain.ElectronicInvoice
	err := r.db.WithContext(ctx).
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

func (r *repository) FindByTransmissionID(ctx context.Context, orgID snowflake.ID, transmissionID string) (*invoicedomain.ElectronicInvoice, error) {
	var inv invoicedomain.ElectronicInvoice
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND transmission_id = ?", orgID, transmissionID).
		First(&inv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, invoicedomain.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) List(ctx context.Context, orgID snowflake.ID, req invoicedomain.ListRequest) ([]invoicedomain.ElectronicInvoice, error) {
	var items []invoicedomain.ElectronicInvoice
	stmt := r.db.WithContext(ctx).
		Model(&invoicedomain.ElectronicInvoice{}).
		Where("org_id = ?", orgID)

	if req.Status != "" {
		stmt = stmt.Where("sdi_status = ?", req.Status)
	}
	if req.DocType != "" {
		stmt = stmt.Where("doc_type = ?", req.DocType)
	}
	if req.Anonymized != nil {
		stmt = stmt.Where("anonymized = ?", *req.Anonymized)
	}
	if req.Limit > 0 {
		stmt = stmt.Limit(req.Limit)
	}

	if err := stmt.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateStatus writes the status change only when the row still carries the
// expected previous status. The guarded WHERE clause is what makes
// concurrent re-invocation safe without cross-request locks.
func (r *repository) UpdateStatus(ctx context.Context, orgID, id snowflake.ID, from, to invoicedomain.SDIStatus, patch invoicedomain.StatusPatch) (bool, error) {
	updates := map[string]any{"sdi_status": to}
	if patch.SentAt != nil {
		updates["sent_at"] = *patch.SentAt
	}
	if patch.ExternalID != nil {
		updates["external_id"] = *patch.ExternalID
	}
	if patch.LastError != nil {
		updates["last_error"] = *patch.LastError
	}
	if patch.StatusUpdatedAt != nil {
		updates["sdi_status_updated_at"] = *patch.StatusUpdatedAt
	}

	res := r.db.WithContext(ctx).
		Model(&invoicedomain.ElectronicInvoice{}).
		Where("org_id = ? AND id = ? AND sdi_status = ?", orgID, id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) RecordAttempt(ctx context.Context, attempt *invoicedomain.TransmissionAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *repository) ListAttempts(ctx context.Context, orgID, invoiceID snowflake.ID) ([]invoicedomain.TransmissionAttempt, error) {
	var attempts []invoicedomain.TransmissionAttempt
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ?", orgID, invoiceID).
		Order("attempted_at ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
