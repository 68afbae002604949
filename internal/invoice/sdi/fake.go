package sdi

import (
	"context"
	"errors"
	"sync"
)

// FakeGateway is an in-memory Gateway for tests. Failures are scriptable
// per transmission ID.
type FakeGateway struct {
	mu        sync.Mutex
	submitted map[string][]byte
	failWith  map[string]error
	failAll   error
	seq       int
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		submitted: make(map[string][]byte),
		failWith:  make(map[string]error),
	}
}

// FailNext makes Submit fail for the given transmission ID.
func (g *FakeGateway) FailNext(transmissionID string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failWith[transmissionID] = err
}

// FailAll makes every Submit fail until reset with nil.
func (g *FakeGateway) FailAll(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failAll = err
}

func (g *FakeGateway) Submit(ctx context.Context, transmissionID string, xml []byte) (*Submission, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failAll != nil {
		return nil, g.failAll
	}
	if err, ok := g.failWith[transmissionID]; ok {
		delete(g.failWith, transmissionID)
		return nil, err
	}
	if len(xml) == 0 {
		return nil, errors.New("empty payload")
	}

	g.seq++
	g.submitted[transmissionID] = xml
	return &Submission{
		TransmissionID: transmissionID,
		ExternalID:     "ext-" + transmissionID,
	}, nil
}

// Submitted returns the payload recorded for a transmission ID.
func (g *FakeGateway) Submitted(transmissionID string) ([]byte, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.submitted[transmissionID]
	return b, ok
}
