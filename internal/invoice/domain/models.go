// Package domain contains persistence models for electronic invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SDIStatus represents the transmission lifecycle state of an invoice.
type SDIStatus string

const (
	StatusDraft     SDIStatus = "draft"
	StatusGenerated SDIStatus = "generated"
	StatusToSend    SDIStatus = "to_send"
	StatusSending   SDIStatus = "sending"
	StatusSent      SDIStatus = "sent"
	StatusDelivered SDIStatus = "delivered"
	StatusAccepted  SDIStatus = "accepted"
	StatusRejected  SDIStatus = "rejected"
)

// Terminal reports whether no further gateway transition is expected.
// Rejected is terminal too: recovery is an explicit operator action
// (regenerate then resend), never an automatic transition.
func (s SDIStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// DocType distinguishes invoices from credit notes.
type DocType string

const (
	DocTypeInvoice    DocType = "invoice"
	DocTypeCreditNote DocType = "credit_note"
)

// ElectronicInvoice is the fiscal document record. Rows are append-only from
// a legal standpoint: they are never deleted, only anonymized once the
// retention deadline has passed.
type ElectronicInvoice struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	OrgID          snowflake.ID  `gorm:"not null;index"`
	SaleID         snowflake.ID  `gorm:"not null;index"`
	DocType        DocType       `gorm:"type:text;not null;default:'invoice'"`
	CreditNoteOfID *snowflake.ID `gorm:"index"`

	Status         SDIStatus `gorm:"column:sdi_status;type:text;not null;default:'draft';index"`
	TransmissionID string    `gorm:"type:text;uniqueIndex"`
	ExternalID     string    `gorm:"type:text"`
	LastError      string    `gorm:"type:text"`

	// Snapshot holds the document content used for rendering and, after the
	// retention deadline, PII scrubbing. Fiscal aggregates inside it are
	// retained forever.
	Snapshot datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`

	XMLPayload     []byte `gorm:""`
	PDFPayload     []byte `gorm:""`
	ReceiptPayload []byte `gorm:""`

	XMLHash     string `gorm:"type:text"`
	PDFHash     string `gorm:"type:text"`
	ReceiptHash string `gorm:"type:text"`

	SentAt                *time.Time `gorm:""`
	StatusUpdatedAt       *time.Time `gorm:"column:sdi_status_updated_at"`
	PreservedAt           *time.Time `gorm:"index"`
	PreservationExpiresAt *time.Time `gorm:"index"`

	Anonymized   bool       `gorm:"not null;default:false;index"`
	AnonymizedAt *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ElectronicInvoice) TableName() string { return "electronic_invoices" }

// TransmissionAttempt is one send attempt against the exchange gateway.
// Failed attempts accumulate here as a visible history; the invoice state
// itself never advances on failure.
type TransmissionAttempt struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"not null;index"`
	InvoiceID   snowflake.ID `gorm:"not null;index"`
	AttemptedAt time.Time    `gorm:"not null"`
	Succeeded   bool         `gorm:"not null"`
	Error       string       `gorm:"type:text"`
}

// TableName sets the database table name.
func (TransmissionAttempt) TableName() string { return "transmission_attempts" }
