package vies

import "context"

// Static is a fixed-answer Checker for tests.
type Static struct {
	// Registered maps "CC+number" to a result.
	Registered map[string]*CheckResult

	// Err makes every check fail when set.
	Err error
}

func NewStatic() *Static {
	return &Static{Registered: make(map[string]*CheckResult)}
}

func (s *Static) Add(countryCode, vatNumber, name string) {
	s.Registered[countryCode+vatNumber] = &CheckResult{
		CountryCode: countryCode,
		VATNumber:   vatNumber,
		Valid:       true,
		Name:        name,
	}
}

func (s *Static) Check(ctx context.Context, countryCode, vatNumber string) (*CheckResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if result, ok := s.Registered[countryCode+vatNumber]; ok {
		return result, nil
	}
	return &CheckResult{CountryCode: countryCode, VATNumber: vatNumber, Valid: false}, nil
}
