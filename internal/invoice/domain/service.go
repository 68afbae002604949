package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// SaleStatus mirrors the owning transaction's state at generation time.
type SaleStatus string

const (
	SaleStatusDraft     SaleStatus = "draft"
	SaleStatusFinalized SaleStatus = "finalized"
	SaleStatusCanceled  SaleStatus = "canceled"
)

// SaleLine is one line of the owning sale, snapshotted into the invoice.
type SaleLine struct {
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	UnitAmount  int64   `json:"unit_amount"`
	Amount      int64   `json:"amount"`
	VATRate     float64 `json:"vat_rate"`
	VATAmount   int64   `json:"vat_amount"`
}

// SaleRef carries everything the engine needs from the owning sale. Sales
// themselves live outside this engine.
type SaleRef struct {
	SaleID          snowflake.ID
	Status          SaleStatus
	DocumentNumber  string
	DocumentDate    string
	CustomerName    string
	CustomerAddress string
	CustomerEmail   string
	CustomerPhone   string
	CustomerTaxCode string
	CustomerVAT     string
	Lines           []SaleLine
}

// ListRequest filters invoice queries.
type ListRequest struct {
	Status     SDIStatus
	DocType    DocType
	Anonymized *bool
	Limit      int
}

type Service interface {
	// Generate builds the XML snapshot and moves draft -> generated.
	Generate(ctx context.Context, sale SaleRef) (*ElectronicInvoice, error)
	// Send submits to the exchange gateway; failures leave state unchanged
	// and are recorded as attempts. Retries are always caller-initiated.
	Send(ctx context.Context, invoiceID snowflake.ID) error
	// ApplyGatewayStatus lands an asynchronous gateway outcome (callback or
	// poll) on the invoice.
	ApplyGatewayStatus(ctx context.Context, transmissionID string, status SDIStatus, errText string) error
	// GenerateCreditNote creates a linked credit-note document for an
	// accepted invoice. The original is left unchanged.
	GenerateCreditNote(ctx context.Context, invoiceID snowflake.ID) (*ElectronicInvoice, error)

	GetByID(ctx context.Context, invoiceID snowflake.ID) (*ElectronicInvoice, error)
	List(ctx context.Context, req ListRequest) ([]ElectronicInvoice, error)
	ListAttempts(ctx context.Context, invoiceID snowflake.ID) ([]TransmissionAttempt, error)
}
