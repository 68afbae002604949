// Package fiscalcode validates and decodes Italian fiscal identifiers:
// the 11-digit partita IVA and the 16-character codice fiscale.
//
// All validators are pure and return false/nil on malformed input. Bad
// input is an expected condition here, never an error.
package fiscalcode

import "strings"

// Normalize uppercases the input and strips spaces. An optional "IT"
// country prefix on an otherwise 13-character value is dropped.
func Normalize(input string) string {
	v := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(input), " ", ""))
	if len(v) == 13 && strings.HasPrefix(v, "IT") {
		v = v[2:]
	}
	return v
}

// ValidateVAT reports whether input is a checksum-valid partita IVA.
func ValidateVAT(input string) bool {
	v := Normalize(input)
	if len(v) != 11 {
		return false
	}
	for i := 0; i < 11; i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}

	sum := 0
	for i := 0; i < 10; i++ {
		d := int(v[i] - '0')
		if i%2 == 0 {
			sum += d
			continue
		}
		d *= 2
		if d > 9 {
			d = (d % 10) + 1
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return check == int(v[10]-'0')
}

// ValidateTaxCode reports whether input is a valid codice fiscale. An
// 11-digit value is the company form and delegates to ValidateVAT; a
// 16-character value is the individual form.
func ValidateTaxCode(input string) bool {
	v := Normalize(input)
	switch len(v) {
	case 11:
		return ValidateVAT(v)
	case 16:
		if !matchesPersonalPattern(v) {
			return false
		}
		check, ok := controlChar(v[:15])
		return ok && check == v[15]
	default:
		return false
	}
}

// matchesPersonalPattern checks the fixed LLLLLL DD L DD L DDD L shape of
// the individual codice fiscale.
func matchesPersonalPattern(v string) bool {
	if len(v) != 16 {
		return false
	}
	for i, c := range []byte(v) {
		switch i {
		case 6, 7, 9, 10, 12, 13, 14:
			if c < '0' || c > '9' {
				return false
			}
		default:
			if c < 'A' || c > 'Z' {
				return false
			}
		}
	}
	return true
}

// controlChar computes the 16th character over the first 15. Positions are
// 1-indexed: odd positions use the odd table, even positions the even one.
func controlChar(first15 string) (byte, bool) {
	if len(first15) != 15 {
		return 0, false
	}
	sum := 0
	for i := 0; i < 15; i++ {
		var (
			val int
			ok  bool
		)
		if (i+1)%2 == 1 {
			val, ok = oddTable[first15[i]]
		} else {
			val, ok = evenTable[first15[i]]
		}
		if !ok {
			return 0, false
		}
		sum += val
	}
	return controlAlphabet[sum%26], true
}
