package cart

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/types"
)

// Session carries the register context a sale happens in. Callers always pass it
// explicitly; nothing in the checkout path reads ambient session state.
type Session struct {
	SessionID  int64 `json:"session_id"`
	RegisterID int64 `json:"register_id"`
	CompanyID  int64 `json:"company_id"`
	UserID     int64 `json:"user_id,omitempty"`
}

// Line is one cart entry as the payment screen submits it. Price and quantity arrive
// under several names depending on which screen built the cart; see UnitPrice and Quantity.
type Line struct {
	ProductID    int64            `json:"product_id" validate:"required,gt=0"`
	Name         string           `json:"name"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	PriceUnit    *decimal.Decimal `json:"price_unit,omitempty"`
	ListPrice    *decimal.Decimal `json:"list_price,omitempty"`
	Quantity     *decimal.Decimal `json:"quantity,omitempty"`
	Qty          *decimal.Decimal `json:"qty,omitempty"`
	Discount     decimal.Decimal  `json:"discount"`
	SubtotalIncl *decimal.Decimal `json:"price_subtotal_incl,omitempty"`
	TaxIDs       []int64          `json:"tax_ids,omitempty"`
}

// Cart is the full checkout input surface of a single sale.
type Cart struct {
	Lines     []Line  `json:"lines"`
	PartnerID *int64  `json:"partner_id,omitempty"`
	Session   Session `json:"session"`
}

// UnitPrice resolves price, then price_unit, then list_price, then zero.
func (l Line) UnitPrice() decimal.Decimal {
	for _, candidate := range []*decimal.Decimal{l.Price, l.PriceUnit, l.ListPrice} {
		if candidate != nil {
			return *candidate
		}
	}
	return decimal.Zero
}

// EffectiveQuantity resolves quantity, then qty, then one.
func (l Line) EffectiveQuantity() decimal.Decimal {
	if l.Quantity != nil {
		return *l.Quantity
	}
	if l.Qty != nil {
		return *l.Qty
	}
	return decimal.NewFromInt(1)
}

// Subtotal is qty × unit price. Per-line discounts are ignored unless the caller
// folded them into SubtotalIncl already.
func (l Line) Subtotal() decimal.Decimal {
	if l.SubtotalIncl != nil {
		return *l.SubtotalIncl
	}
	return l.EffectiveQuantity().Mul(l.UnitPrice())
}

// Total sums line subtotals.
func Total(lines []Line) decimal.Decimal {
	subtotals := make([]decimal.Decimal, 0, len(lines))
	for _, line := range lines {
		subtotals = append(subtotals, line.Subtotal())
	}
	return types.SumMoney(subtotals...)
}

// Validate reports ErrEmptyCart for carts without lines.
func (c Cart) Validate() error {
	if len(c.Lines) == 0 {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrEmptyCart, "cart has no lines")
	}
	return nil
}

// HasPartner reports whether a customer is selected.
func (c Cart) HasPartner() bool {
	return c.PartnerID != nil && *c.PartnerID > 0
}
