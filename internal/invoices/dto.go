package invoices

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fieldpos-backend/internal/cart"
	"github.com/angelmondragon/fieldpos-backend/pkg/enums"
	"github.com/angelmondragon/fieldpos-backend/pkg/erp"
	"github.com/angelmondragon/fieldpos-backend/pkg/types"
)

const moveTypeCustomerInvoice = "out_invoice"

var statusFields = []string{"id", "name", "state", "payment_state", "amount_total", "amount_residual", "partner_id"}

// InvoiceInput describes a customer invoice built from cart lines.
type InvoiceInput struct {
	PartnerID int64
	Lines     []cart.Line
	JournalID *int64
	Date      *time.Time
	Reference string
	CompanyID int64
}

// Status is the verification projection of an invoice.
type Status struct {
	ID             int64                     `json:"id"`
	Name           erp.Text                  `json:"name"`
	State          enums.InvoiceState        `json:"state"`
	PaymentState   enums.InvoicePaymentState `json:"payment_state"`
	AmountTotal    decimal.Decimal           `json:"amount_total"`
	AmountResidual decimal.Decimal           `json:"amount_residual"`
	Partner        erp.Many2One              `json:"partner_id"`
}

// Settled reports a fully paid invoice with nothing left owing.
func (s *Status) Settled() bool {
	if s == nil {
		return false
	}
	return s.PaymentState == enums.InvoicePaymentPaid && types.RoundMoney(s.AmountResidual).IsZero()
}

// Created is the outcome of CreateInvoice. Posted can be false while InvoiceID is set:
// the invoice exists in the ERP but is still a draft.
type Created struct {
	InvoiceID int64
	JournalID int64
	Posted    bool
	Status    *Status
	PostError error
}
