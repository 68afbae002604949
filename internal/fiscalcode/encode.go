package fiscalcode

import (
	"fmt"
	"strings"
)

const vowels = "AEIOU"

func splitLetters(s string) (consonants, vow string) {
	s = strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	var c, v strings.Builder
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			continue
		}
		if strings.ContainsRune(vowels, r) {
			v.WriteRune(r)
		} else {
			c.WriteRune(r)
		}
	}
	return c.String(), v.String()
}

func pad3(s string) string {
	for len(s) < 3 {
		s += "X"
	}
	return s[:3]
}

// SurnameCode builds the three-letter surname code: consonants first, then
// vowels, padded with X.
func SurnameCode(surname string) string {
	c, v := splitLetters(surname)
	return pad3(c + v)
}

// NameCode builds the three-letter name code. When the name carries four or
// more consonants the first, third and fourth are used.
func NameCode(name string) string {
	c, v := splitLetters(name)
	if len(c) >= 4 {
		return string([]byte{c[0], c[2], c[3]})
	}
	return pad3(c + v)
}

// BirthDateCode encodes year, month and day. The day is offset by 40 for
// women.
func BirthDateCode(year, month, day int, female bool) string {
	letter, ok := monthByNumber[month]
	if !ok {
		return ""
	}
	if day < 1 || day > 31 {
		return ""
	}
	if female {
		day += 40
	}
	return fmt.Sprintf("%02d%c%02d", year%100, letter, day)
}
