// Package vies validates EU VAT registrations against the European
// Commission VIES service. Checksum validation stays local; VIES answers the
// separate question of whether the number is actually registered.
package vies

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("vies_unavailable")

// CheckResult is the registration answer for one VAT number.
type CheckResult struct {
	CountryCode string `json:"country_code"`
	VATNumber   string `json:"vat_number"`
	Valid       bool   `json:"valid"`
	Name        string `json:"name,omitempty"`
	Address     string `json:"address,omitempty"`
}

type Checker interface {
	Check(ctx context.Context, countryCode, vatNumber string) (*CheckResult, error)
}

// Disabled is used when VIES lookups are turned off: every check errors so
// callers fall back to checksum-only validation explicitly.
type Disabled struct{}

func (Disabled) Check(ctx context.Context, countryCode, vatNumber string) (*CheckResult, error) {
	return nil, ErrUnavailable
}
