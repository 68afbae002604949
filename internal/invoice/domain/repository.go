package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, inv *ElectronicInvoice) error
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*ElectronicInvoice, error)
	FindByTransmissionID(ctx context.Context, orgID snowflake.ID, transmissionID string) (*ElectronicInvoice, error)
	List(ctx context.Context, orgID snowflake.ID, req ListRequest) ([]ElectronicInvoice, error)

	// UpdateStatus moves sdi_status with an optimistic guard on the current
	// value. It returns false when the row was not in fromStatus anymore,
	// which callers treat as a lost race, not an error.
	UpdateStatus(ctx context.Context, orgID, id snowflake.ID, from, to SDIStatus, patch StatusPatch) (bool, error)

	RecordAttempt(ctx context.Context, attempt *TransmissionAttempt) error
	ListAttempts(ctx context.Context, orgID, invoiceID snowflake.ID) ([]TransmissionAttempt, error)
}

// StatusPatch carries the columns written together with a status change.
type StatusPatch struct {
	SentAt          *time.Time
	ExternalID      *string
	LastError       *string
	StatusUpdatedAt *time.Time
}
