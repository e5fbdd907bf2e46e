package utils

import "strings"

// DefaultCountryCode is prepended to personal destinations that carry no country code.
const DefaultCountryCode = "55"

// NormalizePlate trims and upper-cases a plate. Separators are kept, so
// "ABC-1234" and "ABC1234" are different plates.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// NormalizePhone keeps only digits and prepends the default country code when the
// number is 11 digits or shorter (area code + subscriber).
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if len(digits) <= 11 {
		return DefaultCountryCode + digits
	}
	return digits
}
