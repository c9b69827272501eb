package enums

import "fmt"

// CheckoutState is a step of the checkout saga. Each value names the post-condition the
// step establishes; a failed run records the state it could not reach.
type CheckoutState string

const (
	CheckoutStatePending       CheckoutState = "Pending"
	CheckoutStateCreated       CheckoutState = "Created"
	CheckoutStateInvoiced      CheckoutState = "Invoiced"
	CheckoutStatePosted        CheckoutState = "Posted"
	CheckoutStatePaid          CheckoutState = "Paid"
	CheckoutStatePostedPayment CheckoutState = "PostedPayment"
	CheckoutStateReconciled    CheckoutState = "Reconciled"
)

var checkoutStateOrder = []CheckoutState{
	CheckoutStatePending,
	CheckoutStateCreated,
	CheckoutStateInvoiced,
	CheckoutStatePosted,
	CheckoutStatePaid,
	CheckoutStatePostedPayment,
	CheckoutStateReconciled,
}

func (s CheckoutState) String() string {
	return string(s)
}

func (s CheckoutState) IsValid() bool {
	return s.rank() >= 0
}

// Before reports whether s comes earlier in the saga than other.
func (s CheckoutState) Before(other CheckoutState) bool {
	return s.rank() < other.rank()
}

func (s CheckoutState) rank() int {
	for i, candidate := range checkoutStateOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

func ParseCheckoutState(value string) (CheckoutState, error) {
	for _, candidate := range checkoutStateOrder {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout state %q", value)
}

// CheckoutStatus classifies a finished run.
type CheckoutStatus string

const (
	// CheckoutStatusReconciled means every step reached its post-condition.
	CheckoutStatusReconciled CheckoutStatus = "reconciled"
	// CheckoutStatusPartial means the run failed after committing at least one remote record.
	CheckoutStatusPartial CheckoutStatus = "partial"
	// CheckoutStatusFailed means the run failed before anything was committed.
	CheckoutStatusFailed CheckoutStatus = "failed"
)

var validCheckoutStatuses = []CheckoutStatus{
	CheckoutStatusReconciled,
	CheckoutStatusPartial,
	CheckoutStatusFailed,
}

func (s CheckoutStatus) String() string {
	return string(s)
}

func (s CheckoutStatus) IsValid() bool {
	for _, candidate := range validCheckoutStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// SideEffectKind names a remote record the checkout saga committed.
type SideEffectKind string

const (
	SideEffectOrderCreated     SideEffectKind = "order_created"
	SideEffectInvoiceCreated   SideEffectKind = "invoice_created"
	SideEffectInvoicePosted    SideEffectKind = "invoice_posted"
	SideEffectInvoiceLinked    SideEffectKind = "invoice_linked"
	SideEffectSaleConfirmed    SideEffectKind = "sale_order_confirmed"
	SideEffectPaymentCreated   SideEffectKind = "payment_created"
	SideEffectOrderMarkedPaid  SideEffectKind = "order_marked_paid"
	SideEffectPaymentPosted    SideEffectKind = "payment_posted"
	SideEffectPaymentReconcile SideEffectKind = "payment_reconciled"
)
