package checkout

import (
	"strings"

	"github.com/compunet/storefront/pkg/enums"
)

const (
	maxCardDigits   = 16
	maxExpiryDigits = 4
	maxCVVDigits    = 4
	maxPhoneDigits  = 9
)

func digitsOnly(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDigits(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeDocument accepts input only when it is made of digits and fits the
// document type's length. Rejected input leaves the previous value in place.
func NormalizeDocument(input string, docType enums.DocumentType) (string, bool) {
	if !isDigits(input) {
		return "", false
	}
	if len(input) > docType.DocumentLength() {
		return "", false
	}
	return input, true
}

// NormalizeCardNumber strips non-digits and groups the result in blocks of
// four. More than 16 digits is rejected.
func NormalizeCardNumber(input string) (string, bool) {
	raw := digitsOnly(input)
	if len(raw) > maxCardDigits {
		return "", false
	}
	return groupFour(raw), true
}

func groupFour(s string) string {
	var b strings.Builder
	for i, r := range []rune(s) {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeExpiry keeps at most four digits and formats them as MM/YY once two
// or more are present. It never rejects input.
func NormalizeExpiry(input string) string {
	raw := digitsOnly(input)
	if len(raw) > maxExpiryDigits {
		raw = raw[:maxExpiryDigits]
	}
	if len(raw) >= 2 {
		return raw[:2] + "/" + raw[2:]
	}
	return raw
}

// NormalizeCVV strips non-digits; more than four digits is rejected.
func NormalizeCVV(input string) (string, bool) {
	raw := digitsOnly(input)
	if len(raw) > maxCVVDigits {
		return "", false
	}
	return raw, true
}

// NormalizeWalletPhone strips non-digits; more than nine digits is rejected.
func NormalizeWalletPhone(input string) (string, bool) {
	raw := digitsOnly(input)
	if len(raw) > maxPhoneDigits {
		return "", false
	}
	return raw, true
}

// MaskCVV hides every digit.
func MaskCVV(cvv string) string {
	return strings.Repeat("•", len(cvv))
}

// MaskCardNumber keeps the last four digits visible.
func MaskCardNumber(number string) string {
	raw := digitsOnly(number)
	if len(raw) <= 4 {
		return number
	}
	return groupFour(strings.Repeat("•", len(raw)-4) + raw[len(raw)-4:])
}
