package orders

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fieldpos-backend/internal/cart"
	"github.com/angelmondragon/fieldpos-backend/pkg/enums"
	"github.com/angelmondragon/fieldpos-backend/pkg/erp"
)

var (
	orderFields = []string{
		"id", "name", "partner_id", "session_id", "config_id", "company_id",
		"amount_total", "amount_paid", "amount_tax", "state", "lines", "account_move",
	}
	lineFields = []string{
		"id", "order_id", "product_id", "full_product_name", "qty", "price_unit",
		"discount", "price_subtotal", "price_subtotal_incl", "tax_ids",
	}
)

// Order is the pos.order projection the checkout path reads back.
type Order struct {
	ID          int64            `json:"id"`
	Name        erp.Text         `json:"name"`
	Partner     erp.Many2One     `json:"partner_id"`
	Session     erp.Many2One     `json:"session_id"`
	Register    erp.Many2One     `json:"config_id"`
	Company     erp.Many2One     `json:"company_id"`
	AmountTotal decimal.Decimal  `json:"amount_total"`
	AmountPaid  decimal.Decimal  `json:"amount_paid"`
	AmountTax   decimal.Decimal  `json:"amount_tax"`
	State       enums.OrderState `json:"state"`
	LineIDs     []int64          `json:"lines"`
	Invoice     erp.Many2One     `json:"account_move"`
	Lines       []Line           `json:"-"`
}

// Line is a persisted pos.order.line.
type Line struct {
	ID           int64           `json:"id"`
	Order        erp.Many2One    `json:"order_id"`
	Product      erp.Many2One    `json:"product_id"`
	Name         erp.Text        `json:"full_product_name"`
	Qty          decimal.Decimal `json:"qty"`
	PriceUnit    decimal.Decimal `json:"price_unit"`
	Discount     decimal.Decimal `json:"discount"`
	Subtotal     decimal.Decimal `json:"price_subtotal"`
	SubtotalIncl decimal.Decimal `json:"price_subtotal_incl"`
	TaxIDs       []int64         `json:"tax_ids"`
}

// EffectiveSubtotal prefers the ERP-computed subtotal including taxes, falling back to
// qty × unit price for lines the ERP has not computed yet.
func (l Line) EffectiveSubtotal() decimal.Decimal {
	if !l.SubtotalIncl.IsZero() {
		return l.SubtotalIncl
	}
	return l.Qty.Mul(l.PriceUnit)
}

// DraftOrderInput is everything needed to open a draft order. All register context is
// explicit.
type DraftOrderInput struct {
	PartnerID   *int64
	Lines       []cart.Line
	Session     cart.Session
	AmountTotal *decimal.Decimal
}

// LineInput appends one line to a persisted order.
type LineInput struct {
	ProductID int64
	Qty       decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	Name      string
	TaxIDs    []int64
}

// LineUpdate carries the fields to change on a persisted line; nil fields are left alone.
type LineUpdate struct {
	Qty       *decimal.Decimal
	UnitPrice *decimal.Decimal
	Discount  *decimal.Decimal
	Name      *string
}

func (u LineUpdate) empty() bool {
	return u.Qty == nil && u.UnitPrice == nil && u.Discount == nil && u.Name == nil
}
