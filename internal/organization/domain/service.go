package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound       = errors.New("organization_not_found")
	ErrInvalidVAT     = errors.New("invalid_vat_number")
	ErrInvalidTaxCode = errors.New("invalid_tax_code")
	ErrSlugTaken      = errors.New("slug_already_taken")
)

// CreateInput is the registration payload for a new tenant.
type CreateInput struct {
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	VATNumber     string `json:"vat_number"`
	TaxCode       string `json:"tax_code"`
	RecipientCode string `json:"recipient_code"`
	PECEmail      string `json:"pec_email"`
}

type Service interface {
	// Create registers a tenant after checksum-validating its fiscal
	// identifiers.
	Create(ctx context.Context, input CreateInput) (*Organization, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	List(ctx context.Context) ([]Organization, error)
}

// TenantLister is the narrow read surface batch drivers use to walk tenants.
type TenantLister interface {
	ListIDs(ctx context.Context) ([]snowflake.ID, error)
}
