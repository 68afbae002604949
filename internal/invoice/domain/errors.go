package domain

import "errors"

var (
	ErrNotFound          = errors.New("not_found")
	ErrNotEligible       = errors.New("not_eligible")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidSaleStatus = errors.New("invalid_sale_status")
	ErrTransmission      = errors.New("transmission_failed")
	ErrNotCreditNotable  = errors.New("not_credit_notable")
	ErrUnknownStatus     = errors.New("unknown_sdi_status")
	ErrMissingTenant     = errors.New("missing_tenant")
)
