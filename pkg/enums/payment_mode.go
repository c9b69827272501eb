package enums

import (
	"fmt"
	"strings"
)

// PaymentMode is the tender a point-of-sale payment is taken with.
type PaymentMode string

const (
	PaymentModeCash    PaymentMode = "cash"
	PaymentModeCard    PaymentMode = "card"
	PaymentModeAccount PaymentMode = "account"
)

var validPaymentModes = []PaymentMode{
	PaymentModeCash,
	PaymentModeCard,
	PaymentModeAccount,
}

// String implements fmt.Stringer.
func (m PaymentMode) String() string {
	return string(m)
}

// IsValid reports whether the value matches a supported payment mode.
func (m PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMode converts the raw string to PaymentMode. Matching ignores case.
func ParsePaymentMode(value string) (PaymentMode, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentModes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
