package service

import (
	"fmt"
	"math"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	maxNameLength     = 255
	maxTimeMinutes    = math.MaxInt32
	minPasswordLength = 5

	priceMaxDigits        = 5
	priceMaxDecimalPlaces = 2
)

// ValidateName checks a tag or ingredient name.
func ValidateName(name string) error {
	v := &ValidationError{}
	validateText(v, "name", name, true)
	return v.Err()
}

// trimmed returns p with surrounding whitespace removed. Nil stays nil.
func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	return &s
}

// validateText checks a string field against the blank and length rules.
func validateText(v *ValidationError, field, value string, required bool) {
	if required && strings.TrimSpace(value) == "" {
		v.Add(field, msgBlank)
		return
	}
	if utf8.RuneCountInString(value) > maxNameLength {
		v.Add(field, msgMaxLength)
	}
}

// validatePrice enforces a non-negative decimal with at most 5 digits,
// 2 of them after the decimal point.
func validatePrice(v *ValidationError, price decimal.Decimal) {
	if price.IsNegative() {
		v.Add("price", msgMinZero)
		return
	}

	exponent := int(price.Exponent())
	digits := len(price.Coefficient().String())

	var total, places int
	switch {
	case exponent >= 0:
		total = digits + exponent
	case digits > -exponent:
		total = digits
		places = -exponent
	default:
		total = -exponent
		places = -exponent
	}
	whole := total - places

	switch {
	case total > priceMaxDigits:
		v.Add("price", fmt.Sprintf("Ensure that there are no more than %d digits in total.", priceMaxDigits))
	case places > priceMaxDecimalPlaces:
		v.Add("price", fmt.Sprintf("Ensure that there are no more than %d decimal places.", priceMaxDecimalPlaces))
	case whole > priceMaxDigits-priceMaxDecimalPlaces:
		v.Add("price", fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", priceMaxDigits-priceMaxDecimalPlaces))
	}
}

// NormalizeEmail lower-cases the domain part of an address.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

func validateEmail(v *ValidationError, email string) {
	if strings.TrimSpace(email) == "" {
		v.Add("email", msgBlank)
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		v.Add("email", "Enter a valid email address.")
	}
}

func validatePassword(v *ValidationError, password string) {
	if password == "" {
		v.Add("password", msgBlank)
		return
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		v.Add("password", fmt.Sprintf("Ensure this field has at least %d characters.", minPasswordLength))
	}
}

// dedupe returns ids without repeats, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// firstMissing returns the first id in want that is not in found.
func firstMissing(want, found []string) (string, bool) {
	have := make(map[string]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	for _, id := range want {
		if _, ok := have[id]; !ok {
			return id, true
		}
	}
	return "", false
}

func invalidPK(id string) string {
	return fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", id)
}
