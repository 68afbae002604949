// Package domain defines the long-term legal archival contracts
// (conservazione sostitutiva).
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/fattura/internal/invoice/domain"
)

var (
	ErrIntegrity      = errors.New("integrity_mismatch")
	ErrMissingPayload = errors.New("missing_xml_payload")
)

// ItemError records one isolated per-item failure inside a batch.
type ItemError struct {
	TransmissionID string `json:"transmission_id"`
	Message        string `json:"message"`
}

// BatchResult is the fixed-shape outcome of a preservation batch. Partial
// success is always representable; per-item errors never abort the batch.
type BatchResult struct {
	Success int         `json:"success"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Errors  []ItemError `json:"errors,omitempty"`
}

// ArtifactCheck is the integrity outcome for one stored artifact. Artifacts
// without a recorded hash are not checked and never count as failures.
type ArtifactCheck struct {
	Checked bool `json:"checked"`
	OK      bool `json:"ok"`
}

// IntegrityReport is the result of re-hashing the stored artifacts of one
// preserved invoice.
type IntegrityReport struct {
	XML     ArtifactCheck `json:"xml"`
	PDF     ArtifactCheck `json:"pdf"`
	Receipt ArtifactCheck `json:"receipt"`
	Errors  []string      `json:"errors,omitempty"`
}

// Clean reports whether every checked artifact matched its recorded hash.
func (r IntegrityReport) Clean() bool {
	for _, c := range []ArtifactCheck{r.XML, r.PDF, r.Receipt} {
		if c.Checked && !c.OK {
			return false
		}
	}
	return true
}

type Service interface {
	// Preserve snapshots one accepted invoice into hashed artifacts. An
	// ineligible invoice is an idempotent skip (false, nil), not an error.
	Preserve(ctx context.Context, invoiceID snowflake.ID, force bool) (bool, error)
	// PreserveBatch preserves many invoices with per-item isolation.
	PreserveBatch(ctx context.Context, invoiceIDs []snowflake.ID, force bool) BatchResult
	// VerifyIntegrity recomputes stored-artifact hashes and compares them
	// to the values recorded at preservation time.
	VerifyIntegrity(ctx context.Context, invoiceID snowflake.ID) (*IntegrityReport, error)

	// GetExpiringSoon lists preserved invoices whose retention window ends
	// within the given number of days. Pure query, nothing is mutated.
	GetExpiringSoon(ctx context.Context, days int) ([]invoicedomain.ElectronicInvoice, error)
	// GetExpired lists preserved invoices past their retention window.
	GetExpired(ctx context.Context) ([]invoicedomain.ElectronicInvoice, error)
	// ListEligible lists accepted, not-yet-preserved invoices.
	ListEligible(ctx context.Context, limit int) ([]invoicedomain.ElectronicInvoice, error)
	// ListAccepted lists accepted invoices regardless of preservation
	// state. Forced re-preservation selects from this set.
	ListAccepted(ctx context.Context, limit int) ([]invoicedomain.ElectronicInvoice, error)
}
