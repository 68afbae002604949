// Package notification delivers compliance reports to operators. The content
// is deliberately plain: what expires, what failed integrity, what the
// anonymization backlog looks like.
package notification

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Report is one per-tenant compliance summary assembled by the scheduler.
type Report struct {
	OrgID           snowflake.ID `json:"org_id"`
	ExpiringCount   int          `json:"expiring_count"`
	IntegrityErrors []string     `json:"integrity_errors,omitempty"`
	GeneratedAt     time.Time    `json:"generated_at"`
}

// HasIssues reports whether the report needs operator attention.
func (r Report) HasIssues() bool {
	return r.ExpiringCount > 0 || len(r.IntegrityErrors) > 0
}

type Notifier interface {
	SendComplianceReport(ctx context.Context, report Report) error
}

// Nop discards reports. Used when no SMTP transport is configured.
type Nop struct{}

func (Nop) SendComplianceReport(ctx context.Context, report Report) error { return nil }
