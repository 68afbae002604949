// Package domain defines the GDPR retention contracts: compliance reporting
// and anonymization of documents whose legal retention period has elapsed.
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrRetentionViolation is returned when anonymization is attempted on a
// document still inside its legal retention period. There is no override.
var ErrRetentionViolation = errors.New("retention_violation")

type ComplianceStatus string

const (
	StatusCompliant ComplianceStatus = "compliant"
	StatusWarning   ComplianceStatus = "warning"
	StatusCritical  ComplianceStatus = "critical"
)

// Stats is the per-tenant retention breakdown behind the dashboard.
type Stats struct {
	Total                int64 `json:"total"`
	ExpiredNotAnonymized int64 `json:"expired_not_anonymized"`
	NearExpiry           int64 `json:"near_expiry"`
	AlreadyAnonymized    int64 `json:"already_anonymized"`
}

// Dashboard is computed on demand from the live table, never cached.
type Dashboard struct {
	RetentionYears    int              `json:"retention_years"`
	RetentionDeadline time.Time        `json:"retention_deadline"`
	Stats             Stats            `json:"stats"`
	ComplianceStatus  ComplianceStatus `json:"compliance_status"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// ItemError records one isolated per-item anonymization failure.
type ItemError struct {
	TransmissionID string `json:"transmission_id"`
	Message        string `json:"message"`
}

// AnonymizeResult reports one anonymization run. A dry run selects the same
// rows as a real run but mutates nothing.
type AnonymizeResult struct {
	TotalFound int         `json:"total_found"`
	Anonymized int         `json:"anonymized"`
	Failed     int         `json:"failed"`
	DryRun     bool        `json:"dry_run"`
	Errors     []ItemError `json:"errors,omitempty"`
}

type Service interface {
	// Dashboard computes the tenant's current retention posture.
	Dashboard(ctx context.Context) (*Dashboard, error)
	// AnonymizeExpired scrubs PII from every invoice past the retention
	// deadline. Fiscal aggregates, document numbering and transmission IDs
	// survive; the customer identity does not.
	AnonymizeExpired(ctx context.Context, dryRun bool) (*AnonymizeResult, error)
}
