package fiscalcode

import "time"

// IdentifierType distinguishes the two codice fiscale forms.
type IdentifierType string

const (
	TypeCompany    IdentifierType = "company"
	TypeIndividual IdentifierType = "individual"
)

// Gender as encoded in the birth-day field of an individual code.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// Identifier is the decoded form of a fiscal identifier. For companies only
// VATNumber is set; for individuals the birth attributes are populated.
type Identifier struct {
	Type       IdentifierType
	VATNumber  string
	TaxCode    string
	Gender     Gender
	BirthDay   int
	BirthMonth int
	BirthYear  int
}

// Extract decodes a fiscal identifier, or returns nil when the input is not
// a valid codice fiscale.
func Extract(input string) *Identifier {
	return ExtractAt(input, time.Now())
}

// ExtractAt is Extract with an explicit reference time for the century
// inference of two-digit birth years.
func ExtractAt(input string, now time.Time) *Identifier {
	v := Normalize(input)
	if !ValidateTaxCode(v) {
		return nil
	}

	if len(v) == 11 {
		return &Identifier{Type: TypeCompany, VATNumber: v}
	}

	year := int(v[6]-'0')*10 + int(v[7]-'0')
	month, ok := monthLetters[v[8]]
	if !ok {
		return nil
	}
	day := int(v[9]-'0')*10 + int(v[10]-'0')

	gender := GenderMale
	if day > 40 {
		gender = GenderFemale
		day -= 40
	}
	if day < 1 || day > 31 {
		return nil
	}

	return &Identifier{
		Type:       TypeIndividual,
		TaxCode:    v,
		Gender:     gender,
		BirthDay:   day,
		BirthMonth: month,
		BirthYear:  inferCentury(year, now),
	}
}

// inferCentury places a two-digit year in the current century unless that
// would put the birth more than ten years in the future.
func inferCentury(yy int, now time.Time) int {
	cutoff := (now.Year() + 10) % 100
	if yy > cutoff {
		return 1900 + yy
	}
	return 2000 + yy
}
