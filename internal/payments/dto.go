package payments

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fieldpos-backend/internal/cart"
	"github.com/angelmondragon/fieldpos-backend/pkg/enums"
	"github.com/angelmondragon/fieldpos-backend/pkg/erp"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/types"
)

var paymentFields = []string{
	"id", "amount", "state", "is_reconciled", "journal_id", "pos_payment_method_id",
	"partner_id", "pos_order_id",
}

// Tender is one part of a (possibly split) payment. JournalID and PaymentMethodID are
// optional explicit references; missing ones are resolved from Mode.
type Tender struct {
	Mode            enums.PaymentMode
	Amount          decimal.Decimal
	JournalID       int64
	PaymentMethodID int64
}

// ValidateTenders rejects negative amounts and unsupported modes before anything is
// submitted. Zero tenders are skipped at submission, so their mode is not checked.
func ValidateTenders(tenders []Tender) error {
	for i, tender := range tenders {
		amount := types.RoundMoney(tender.Amount)
		if amount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("tender %d has a negative amount", i)).
				WithDetails(map[string]any{"tender": i})
		}
		if !amount.IsZero() && !tender.Mode.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("tender %d has unsupported payment mode %q", i, tender.Mode)).
				WithDetails(map[string]any{"tender": i})
		}
	}
	return nil
}

// PaymentRequest describes the payments to create for one order. When Tenders is empty a
// single tender of Amount in Mode is used.
type PaymentRequest struct {
	OrderID         int64
	PartnerID       *int64
	Session         cart.Session
	Mode            enums.PaymentMode
	Amount          decimal.Decimal
	JournalID       int64
	PaymentMethodID int64
	Tenders         []Tender
	Reference       string
}

func (r PaymentRequest) tenders() []Tender {
	if len(r.Tenders) > 0 {
		return r.Tenders
	}
	return []Tender{{
		Mode:            r.Mode,
		Amount:          r.Amount,
		JournalID:       r.JournalID,
		PaymentMethodID: r.PaymentMethodID,
	}}
}

// Payment is the account.payment projection.
type Payment struct {
	ID         int64             `json:"id"`
	Amount     decimal.Decimal   `json:"amount"`
	State      erp.Text          `json:"state"`
	Reconciled bool              `json:"is_reconciled"`
	Journal    erp.Many2One      `json:"journal_id"`
	Method     erp.Many2One      `json:"pos_payment_method_id"`
	Partner    erp.Many2One      `json:"partner_id"`
	Order      erp.Many2One      `json:"pos_order_id"`
	Mode       enums.PaymentMode `json:"mode,omitempty"`
}

// Result reports what ResolvePayments committed. It is populated even when an error is
// returned part-way through a split tender.
type Result struct {
	Payments []Payment
	Skipped  int
}

// Total sums the created payment amounts.
func (r *Result) Total() decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	amounts := make([]decimal.Decimal, 0, len(r.Payments))
	for _, p := range r.Payments {
		amounts = append(amounts, p.Amount)
	}
	return types.RoundMoney(types.SumMoney(amounts...))
}

// IDs lists the created payment ids in creation order.
func (r *Result) IDs() []int64 {
	if r == nil {
		return nil
	}
	ids := make([]int64, 0, len(r.Payments))
	for _, p := range r.Payments {
		ids = append(ids, p.ID)
	}
	return ids
}
