package eudamed

import (
	"fmt"
	"strings"
)

// GS1 GMN check character pair computation (weighted modulo-1021), used for
// Basic UDI-DI values, and the GTIN-14 modulo-10 check digit.

// Descending primes used as multipliers of each data character.
var gmnWeights = []int{83, 79, 73, 71, 67, 61, 59, 53, 47, 43, 41, 37, 31, 29, 23, 19, 17, 13, 11, 7, 5, 3, 2}

// GS1 AI encodable character set 82.
const gmnCset82 = `!"%&'()*+,-./0123456789:;<=>?ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz`

// Subset of the encodable character set used for the check character pair.
const gmnCset32 = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// GMNCheckCharacters computes the two check characters for a GMN data part
// of 6 to 23 characters from character set 82.
func GMNCheckCharacters(part string) (string, error) {
	const minLength = 6
	maxLength := len(gmnWeights)
	if len(part) < minLength || len(part) > maxLength {
		return "", fmt.Errorf("GMN data part length %d is invalid (must be %d-%d)", len(part), minLength, maxLength)
	}

	offset := maxLength - len(part)
	sum := 0
	for i, ch := range part {
		value := strings.IndexRune(gmnCset82, ch)
		if value < 0 {
			return "", fmt.Errorf("invalid GMN character %q", ch)
		}
		sum += value * gmnWeights[offset+i]
	}

	sum %= 1021
	return string(gmnCset32[sum>>5]) + string(gmnCset32[sum&31]), nil
}

// GMNVerify reports whether a complete GMN (data part plus check pair) has
// valid check characters.
func GMNVerify(gmn string) bool {
	if len(gmn) < 8 {
		return false
	}
	check, err := GMNCheckCharacters(gmn[:len(gmn)-2])
	if err != nil {
		return false
	}
	return check == gmn[len(gmn)-2:]
}

// GTIN14CheckDigit computes the modulo-10 check digit for the first 13
// digits of a GTIN-14.
func GTIN14CheckDigit(base string) (string, error) {
	if len(base) != 13 {
		return "", fmt.Errorf("GTIN-14 base must be 13 digits, got %d", len(base))
	}

	total := 0
	for i, ch := range base {
		if ch < '0' || ch > '9' {
			return "", fmt.Errorf("GTIN-14 base contains non-digit %q", ch)
		}
		n := int(ch - '0')
		// Odd positions (1st, 3rd, ...) carry weight 3.
		if i%2 == 0 {
			total += n * 3
		} else {
			total += n
		}
	}

	remainder := total % 10
	if remainder == 0 {
		return "0", nil
	}
	return fmt.Sprintf("%d", 10-remainder), nil
}

// GTIN14Verify reports whether a 14-digit GTIN has a valid check digit.
func GTIN14Verify(gtin string) bool {
	if len(gtin) != 14 {
		return false
	}
	check, err := GTIN14CheckDigit(gtin[:13])
	if err != nil {
		return false
	}
	return check == gtin[13:]
}
