// Package guard holds the pure transition rules of the SDI state machine.
// Every status write in the engine goes through these checks; there is no
// direct field mutation elsewhere.
package guard

import (
	domain "github.com/smallbiznis/fattura/internal/invoice/domain"
)

// EnsureSaleCanGenerate rejects generation for draft or canceled sales.
func EnsureSaleCanGenerate(status domain.SaleStatus) error {
	switch status {
	case domain.SaleStatusDraft, domain.SaleStatusCanceled:
		return domain.ErrInvalidSaleStatus
	}
	return nil
}

// EnsureCanSend allows submission only from generated or to_send.
func EnsureCanSend(status domain.SDIStatus) error {
	switch status {
	case domain.StatusGenerated, domain.StatusToSend:
		return nil
	}
	return domain.ErrNotEligible
}

// EnsureGatewayOutcome validates a gateway-reported terminal-or-sent
// transition against the current state.
func EnsureGatewayOutcome(current, next domain.SDIStatus) error {
	switch next {
	case domain.StatusSent, domain.StatusDelivered, domain.StatusAccepted, domain.StatusRejected:
	default:
		return domain.ErrUnknownStatus
	}
	switch current {
	case domain.StatusSending, domain.StatusSent:
		return nil
	}
	return domain.ErrInvalidTransition
}

// EnsureCanCreditNote allows credit notes only against accepted invoices
// that are not themselves credit notes.
func EnsureCanCreditNote(inv *domain.ElectronicInvoice) error {
	if inv.DocType == domain.DocTypeCreditNote {
		return domain.ErrNotCreditNotable
	}
	if inv.Status != domain.StatusAccepted {
		return domain.ErrNotEligible
	}
	return nil
}
