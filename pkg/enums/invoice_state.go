package enums

import "fmt"

// InvoiceState is the posting state of an invoice move.
type InvoiceState string

const (
	InvoiceStateDraft     InvoiceState = "draft"
	InvoiceStatePosted    InvoiceState = "posted"
	InvoiceStateCancelled InvoiceState = "cancel"
)

// InvoicePaymentState is the settlement state the ERP computes for an invoice.
type InvoicePaymentState string

const (
	InvoicePaymentNotPaid   InvoicePaymentState = "not_paid"
	InvoicePaymentInPayment InvoicePaymentState = "in_payment"
	InvoicePaymentPartial   InvoicePaymentState = "partial"
	InvoicePaymentPaid      InvoicePaymentState = "paid"
	InvoicePaymentReversed  InvoicePaymentState = "reversed"
)

var validInvoiceStates = []InvoiceState{
	InvoiceStateDraft,
	InvoiceStatePosted,
	InvoiceStateCancelled,
}

var validInvoicePaymentStates = []InvoicePaymentState{
	InvoicePaymentNotPaid,
	InvoicePaymentInPayment,
	InvoicePaymentPartial,
	InvoicePaymentPaid,
	InvoicePaymentReversed,
}

func (s InvoiceState) String() string {
	return string(s)
}

func (s InvoiceState) IsValid() bool {
	for _, candidate := range validInvoiceStates {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s InvoicePaymentState) String() string {
	return string(s)
}

func (s InvoicePaymentState) IsValid() bool {
	for _, candidate := range validInvoicePaymentStates {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseInvoicePaymentState(value string) (InvoicePaymentState, error) {
	for _, candidate := range validInvoicePaymentStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice payment state %q", value)
}
