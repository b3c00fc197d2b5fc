package payment

import (
	"strings"

	"github.com/andenet/shop-backend/internal/models"
)

// NormalizePhone rewrites a payer phone number into canonical 254XXXXXXXXX
// form. Inputs may arrive as 07XXXXXXXX, 7XXXXXXXX (or 1XXXXXXXX), or already
// prefixed with 254; punctuation and spacing are stripped first. Any other
// prefix is rejected so no network call is made with an unusable number.
func NormalizePhone(input string) (string, error) {
	var digits strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	clean := digits.String()

	switch {
	case strings.HasPrefix(clean, "254"):
		return clean, nil
	case strings.HasPrefix(clean, "0"):
		return "254" + clean[1:], nil
	case strings.HasPrefix(clean, "7"), strings.HasPrefix(clean, "1"):
		return "254" + clean, nil
	default:
		return "", &models.ValidationError{
			Message: "invalid phone number format, expected 254XXXXXXXXX or 07XXXXXXXX",
			Fields:  []string{"phoneNumber"},
		}
	}
}
