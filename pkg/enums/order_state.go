package enums

import "fmt"

// OrderState mirrors the ERP point-of-sale order lifecycle.
type OrderState string

const (
	OrderStateDraft     OrderState = "draft"
	OrderStatePaid      OrderState = "paid"
	OrderStateDone      OrderState = "done"
	OrderStateCancelled OrderState = "cancel"
)

var validOrderStates = []OrderState{
	OrderStateDraft,
	OrderStatePaid,
	OrderStateDone,
	OrderStateCancelled,
}

func (s OrderState) String() string {
	return string(s)
}

func (s OrderState) IsValid() bool {
	for _, candidate := range validOrderStates {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseOrderState(value string) (OrderState, error) {
	for _, candidate := range validOrderStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order state %q", value)
}
