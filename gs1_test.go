package eudamed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGMNCheckCharacters(t *testing.T) {
	tests := []struct {
		part string
		want string
	}{
		// Worked example from the GS1 GMN specification.
		{"1987654Ad4X4bL5ttr2310c", "2K"},
		{"599302877PAY", "U9"},
		{"599302ABC123", "V2"},
	}
	for _, tt := range tests {
		got, err := GMNCheckCharacters(tt.part)
		require.NoError(t, err, tt.part)
		assert.Equal(t, tt.want, got, tt.part)
	}
}

func TestGMNCheckCharactersRejectsBadInput(t *testing.T) {
	_, err := GMNCheckCharacters("short")
	assert.Error(t, err, "below minimum length")

	_, err = GMNCheckCharacters("123456789012345678901234")
	assert.Error(t, err, "above maximum length")

	_, err = GMNCheckCharacters("599302#BAD")
	assert.Error(t, err, "character outside set 82")
}

func TestGMNVerify(t *testing.T) {
	assert.True(t, GMNVerify("1987654Ad4X4bL5ttr2310c2K"))
	assert.True(t, GMNVerify("599302877PAYU9"))
	assert.False(t, GMNVerify("599302877PAYU8"), "wrong check pair")
	assert.False(t, GMNVerify("short"))
}

func TestGTIN14CheckDigit(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"0599302123456", "9"},
		{"0061414199999", "6"},
	}
	for _, tt := range tests {
		got, err := GTIN14CheckDigit(tt.base)
		require.NoError(t, err, tt.base)
		assert.Equal(t, tt.want, got, tt.base)
	}
}

func TestGTIN14CheckDigitRejectsBadInput(t *testing.T) {
	_, err := GTIN14CheckDigit("123")
	assert.Error(t, err, "wrong length")

	_, err = GTIN14CheckDigit("05993021234X6")
	assert.Error(t, err, "non-digit")
}

func TestGTIN14Verify(t *testing.T) {
	assert.True(t, GTIN14Verify("05993021234569"))
	assert.False(t, GTIN14Verify("05993021234560"))
	assert.False(t, GTIN14Verify("0599302123456"))
}
