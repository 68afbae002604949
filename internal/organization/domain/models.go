// Package domain contains persistence models for the tenant registry.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Organization represents a tenant: one Italian business subject emitting
// electronic invoices. Fiscal identifiers are validated at registration.
type Organization struct {
	ID   snowflake.ID `gorm:"primaryKey" json:"id"`
	Name string       `gorm:"type:text;not null" json:"name"`
	Slug string       `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`

	VATNumber string `gorm:"type:text;column:vat_number;not null" json:"vat_number"`
	TaxCode   string `gorm:"type:text;column:tax_code" json:"tax_code"`
	// RecipientCode is the seven-char codice destinatario used by the
	// exchange system to route inbound documents.
	RecipientCode string `gorm:"type:text;column:recipient_code" json:"recipient_code"`
	PECEmail      string `gorm:"type:text;column:pec_email" json:"pec_email"`

	CountryCode string            `gorm:"column:country_code;default:'IT'" json:"country_code"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }
