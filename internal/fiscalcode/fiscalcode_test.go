package fiscalcode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateVAT(t *testing.T) {
	assert.True(t, ValidateVAT("12345678903"))
	assert.True(t, ValidateVAT("IT12345678903"))
	assert.True(t, ValidateVAT(" it 1234 5678 903 "))

	assert.False(t, ValidateVAT(""))
	assert.False(t, ValidateVAT("1234567890"))
	assert.False(t, ValidateVAT("123456789031"))
	assert.False(t, ValidateVAT("1234567890A"))
}

func TestValidateVAT_ChecksumSensitivity(t *testing.T) {
	const valid = "12345678903"
	require.True(t, ValidateVAT(valid))

	// Flipping any single digit must invalidate the number.
	for i := 0; i < len(valid); i++ {
		for d := byte('0'); d <= '9'; d++ {
			if d == valid[i] {
				continue
			}
			flipped := valid[:i] + string(d) + valid[i+1:]
			assert.False(t, ValidateVAT(flipped), "position %d flipped to %c", i, d)
		}
	}
}

func TestValidateTaxCode(t *testing.T) {
	// Company form delegates to the VAT checksum.
	assert.True(t, ValidateTaxCode("12345678903"))
	assert.False(t, ValidateTaxCode("12345678900"))

	// Individual form.
	assert.True(t, ValidateTaxCode("RSSMRA85M01H501Q"))
	assert.True(t, ValidateTaxCode("rssmra85m01h501q"))
	assert.False(t, ValidateTaxCode("RSSMRA85M01H501Z"))
	assert.False(t, ValidateTaxCode("RSSMRA85M01H50"))
	assert.False(t, ValidateTaxCode("RSSMR185M01H501Q"))
	assert.False(t, ValidateTaxCode("RSSMRAX5M01H501Q"))
}

func TestExtract_Company(t *testing.T) {
	id := Extract("IT12345678903")
	require.NotNil(t, id)
	assert.Equal(t, TypeCompany, id.Type)
	assert.Equal(t, "12345678903", id.VATNumber)
}

func TestExtract_Individual(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	id := ExtractAt("RSSMRA85M01H501Q", now)
	require.NotNil(t, id)
	assert.Equal(t, TypeIndividual, id.Type)
	assert.Equal(t, GenderMale, id.Gender)
	assert.Equal(t, 1, id.BirthDay)
	assert.Equal(t, 8, id.BirthMonth)
	assert.Equal(t, 1985, id.BirthYear)

	// Day > 40 encodes a woman; the real day is the value minus 40.
	female := ExtractAt("RSSMRA85M41H501U", now)
	require.NotNil(t, female)
	assert.Equal(t, GenderFemale, female.Gender)
	assert.Equal(t, 1, female.BirthDay)

	assert.Nil(t, Extract("not a code"))
	assert.Nil(t, Extract(""))
}

func TestExtract_CenturyInference(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Cutoff is (2026+10)%100 = 36: year 85 is 1985, year 20 is 2020.
	older := ExtractAt("RSSMRA85M01H501Q", now)
	require.NotNil(t, older)
	assert.Equal(t, 1985, older.BirthYear)

	code15 := "RSSMRA20M01H501"
	check, ok := controlChar(code15)
	require.True(t, ok)
	younger := ExtractAt(code15+string(check), now)
	require.NotNil(t, younger)
	assert.Equal(t, 2020, younger.BirthYear)
}

func TestSurnameCode(t *testing.T) {
	assert.Equal(t, "RSS", SurnameCode("Rossi"))
	assert.Equal(t, "FOX", SurnameCode("Fo"))
	assert.Equal(t, "BNC", SurnameCode("Bianchi"))
	assert.Equal(t, "DLM", SurnameCode("De La Mora"))
}

func TestNameCode(t *testing.T) {
	assert.Equal(t, "MRA", NameCode("Maria"))
	// Four or more consonants: first, third and fourth.
	assert.Equal(t, "GNN", NameCode("Giovanni")) // G,V,N,N -> G,N,N
	assert.Equal(t, "FNC", NameCode("Francesco"))
	assert.Equal(t, "LAX", NameCode("Al"))
}

func TestBirthDateCode(t *testing.T) {
	assert.Equal(t, "85M01", BirthDateCode(1985, 8, 1, false))
	assert.Equal(t, "85M41", BirthDateCode(1985, 8, 1, true))
	assert.Equal(t, "01A09", BirthDateCode(2001, 1, 9, false))
	assert.Equal(t, "", BirthDateCode(1985, 13, 1, false))
	assert.Equal(t, "", BirthDateCode(1985, 8, 0, false))
}

func TestRoundTrip_EncodeDecode(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	prefix := SurnameCode("Rossi") + NameCode("Maria") + BirthDateCode(1985, 8, 1, true) + "H501"
	check, ok := controlChar(prefix)
	require.True(t, ok)

	id := ExtractAt(prefix+string(check), now)
	require.NotNil(t, id)
	assert.Equal(t, GenderFemale, id.Gender)
	assert.Equal(t, 1, id.BirthDay)
	assert.Equal(t, 8, id.BirthMonth)
	assert.Equal(t, 1985, id.BirthYear)
}
