package notification

import (
	"context"
	"sync"
)

// Fake records reports for tests.
type Fake struct {
	mu      sync.Mutex
	Reports []Report

	// Err makes every send fail when set.
	Err error
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) SendComplianceReport(ctx context.Context, report Report) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reports = append(f.Reports, report)
	return nil
}

func (f *Fake) Sent() []Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Report, len(f.Reports))
	copy(out, f.Reports)
	return out
}
