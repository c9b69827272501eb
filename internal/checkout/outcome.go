package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fieldpos-backend/internal/cart"
	"github.com/angelmondragon/fieldpos-backend/internal/invoices"
	"github.com/angelmondragon/fieldpos-backend/internal/payments"
	"github.com/angelmondragon/fieldpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
)

// Names of best-effort steps reported in warnings.
const (
	stepLinkOrder        = "link_invoice_order"
	stepLinkSaleOrder    = "link_invoice_sale_order"
	stepConfirmSaleOrder = "confirm_sale_order"
	stepMarkPaid         = "mark_order_paid"
	stepPostPayment      = "post_payment"
	stepReadPayment      = "read_payment"
	stepReconcilePayment = "reconcile_payment"
)

// Input is one checkout submission from the payment screen.
//
// JournalID selects the invoice (sales) journal. Payments resolve their journal from
// PaymentJournalID, the tender, or the payment mode.
type Input struct {
	Cart             cart.Cart
	Mode             enums.PaymentMode
	JournalID        *int64
	PaymentJournalID int64
	PaymentMethodID  int64
	Tenders          []payments.Tender
	AmountOverride   *decimal.Decimal
	SaleOrderID      int64
	InvoiceDate      *time.Time
	Reference        string
	IdempotencyKey   string
}

func (in Input) validate() error {
	if err := in.Cart.Validate(); err != nil {
		return err
	}
	if !in.Cart.HasPartner() {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrMissingReference, "customer required for invoicing")
	}
	if len(in.Tenders) == 0 && !in.Mode.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment mode is invalid")
	}
	if err := payments.ValidateTenders(in.Tenders); err != nil {
		return err
	}
	if in.AmountOverride != nil && in.AmountOverride.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	return nil
}

// SideEffect is a remote record the run committed. The ERP keeps it even when a later
// step fails.
type SideEffect struct {
	Kind     enums.SideEffectKind `json:"kind"`
	Model    string               `json:"model"`
	RecordID int64                `json:"record_id"`
	At       time.Time            `json:"at"`
}

// Warning is a best-effort step that did not complete.
type Warning struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// Outcome is the aggregate result of a checkout run.
type Outcome struct {
	RunID         uuid.UUID            `json:"run_id"`
	State         enums.CheckoutState  `json:"state"`
	Status        enums.CheckoutStatus `json:"status"`
	FailedStep    enums.CheckoutState  `json:"failed_step,omitempty"`
	Reason        string               `json:"reason,omitempty"`
	RemoteMessage string               `json:"remote_message,omitempty"`
	OrderID       int64                `json:"order_id,omitempty"`
	InvoiceID     int64                `json:"invoice_id,omitempty"`
	JournalID     int64                `json:"journal_id,omitempty"`
	PaymentIDs    []int64              `json:"payment_ids"`
	AmountTotal   decimal.Decimal      `json:"amount_total"`
	AmountPaid    decimal.Decimal      `json:"amount_paid"`
	Invoice       *invoices.Status     `json:"invoice,omitempty"`
	Committed     []SideEffect         `json:"committed"`
	Warnings      []Warning            `json:"warnings"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    time.Time            `json:"finished_at"`

	idempotencyKey string
	cause          error
}

// Failed reports whether a step post-condition was not reached.
func (o *Outcome) Failed() bool {
	return o != nil && o.FailedStep != ""
}

// Partial reports a failed run that left committed records in the ERP.
func (o *Outcome) Partial() bool {
	return o.classify() == enums.CheckoutStatusPartial
}

func (o *Outcome) classify() enums.CheckoutStatus {
	switch {
	case o == nil:
		return enums.CheckoutStatusFailed
	case !o.Failed():
		return enums.CheckoutStatusReconciled
	case len(o.Committed) > 0:
		return enums.CheckoutStatusPartial
	default:
		return enums.CheckoutStatusFailed
	}
}

// Err converts a failed outcome into a PARTIAL_WORKFLOW_FAILURE carrying the outcome as
// details. It returns nil for reconciled runs.
func (o *Outcome) Err() error {
	if !o.Failed() {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodePartialWorkflow, o.cause, o.Reason).WithDetails(o)
}

// Step names the state the run failed to reach, or "" for reconciled runs.
func (o *Outcome) Step() string {
	if o == nil {
		return ""
	}
	return string(o.FailedStep)
}

// Cause returns the error that stopped the run, when there was one.
func (o *Outcome) Cause() error {
	if o == nil {
		return nil
	}
	return o.cause
}
