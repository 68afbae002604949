// Package sdi is the boundary to the national exchange system. The engine
// owns the state transition on receipt of an outcome, never the transport.
package sdi

import "context"

// Submission is the gateway's acknowledgement of a submitted document.
type Submission struct {
	TransmissionID string
	ExternalID     string
}

// Gateway submits FatturaPA XML to the exchange system.
type Gateway interface {
	Submit(ctx context.Context, transmissionID string, xml []byte) (*Submission, error)
}
