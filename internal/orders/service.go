package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fieldpos-backend/internal/cart"
	"github.com/angelmondragon/fieldpos-backend/pkg/enums"
	"github.com/angelmondragon/fieldpos-backend/pkg/erp"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
	"github.com/angelmondragon/fieldpos-backend/pkg/types"
)

type gateway interface {
	Create(ctx context.Context, model string, vals map[string]any) (int64, error)
	Update(ctx context.Context, model string, ids []int64, vals map[string]any) error
	Delete(ctx context.Context, model string, ids []int64) error
	Query(ctx context.Context, model string, domain erp.Domain, opts erp.QueryOptions, dest any) error
	Action(ctx context.Context, model, action string, ids []int64, kwargs map[string]any) (json.RawMessage, error)
}

// Service manages draft point-of-sale orders in the ERP.
type Service interface {
	CreateDraftOrder(ctx context.Context, input DraftOrderInput) (int64, error)
	AppendLine(ctx context.Context, orderID int64, input LineInput) error
	UpdateLine(ctx context.Context, lineID int64, update LineUpdate) error
	RemoveLine(ctx context.Context, lineID int64) error
	FetchOrder(ctx context.Context, orderID int64) (*Order, error)
	FetchLinesByIDs(ctx context.Context, lineIDs []int64) ([]Line, error)
	FetchLine(ctx context.Context, lineID int64) (*Line, error)
	RecomputeTotal(ctx context.Context, orderID int64) (decimal.Decimal, error)
	ConfirmSaleOrder(ctx context.Context, saleOrderID int64) error
}

type service struct {
	gw   gateway
	logg *logger.Logger
}

// NewService builds the order service.
func NewService(gw gateway, logg *logger.Logger) (Service, error) {
	if gw == nil {
		return nil, errors.New("erp gateway required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &service{gw: gw, logg: logg}, nil
}

func (s *service) CreateDraftOrder(ctx context.Context, input DraftOrderInput) (int64, error) {
	draft := NewDraftLines(input.Lines...)
	if draft.Len() == 0 {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrEmptyCart, "order requires at least one line")
	}

	total := draft.Total()
	if input.AmountTotal != nil {
		total = *input.AmountTotal
	}

	commands := make([]any, 0, draft.Len())
	for _, line := range draft.Lines() {
		commands = append(commands, erp.CreateCommand(cartLineVals(line)))
	}

	vals := map[string]any{
		"partner_id":    false,
		"lines":         commands,
		"amount_total":  types.MoneyFloat(total),
		"amount_paid":   0,
		"amount_tax":    0,
		"amount_return": 0,
		"state":         enums.OrderStateDraft.String(),
	}
	if input.PartnerID != nil && *input.PartnerID > 0 {
		vals["partner_id"] = *input.PartnerID
	}
	setRef(vals, "session_id", input.Session.SessionID)
	setRef(vals, "config_id", input.Session.RegisterID)
	setRef(vals, "company_id", input.Session.CompanyID)
	setRef(vals, "user_id", input.Session.UserID)

	id, err := s.gw.Create(ctx, erp.ModelOrder, vals)
	if err != nil {
		return 0, err
	}
	ctx = s.logg.WithOrderID(ctx, id)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"lines": draft.Len(), "amount_total": total.StringFixed(types.CurrencyPrecision)}), "draft order created")
	return id, nil
}

// AppendLine adds one line. The order's amount_total is left as is; call RecomputeTotal.
func (s *service) AppendLine(ctx context.Context, orderID int64, input LineInput) error {
	if orderID <= 0 {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrMissingReference, "order id required")
	}
	if input.ProductID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	subtotal := types.RoundMoney(input.Qty.Mul(input.UnitPrice))
	vals := map[string]any{
		"product_id":          input.ProductID,
		"qty":                 input.Qty.InexactFloat64(),
		"price_unit":          input.UnitPrice.InexactFloat64(),
		"discount":            input.Discount.InexactFloat64(),
		"price_subtotal":      subtotal.InexactFloat64(),
		"price_subtotal_incl": subtotal.InexactFloat64(),
	}
	if input.Name != "" {
		vals["full_product_name"] = input.Name
	}
	if len(input.TaxIDs) > 0 {
		vals["tax_ids"] = []any{erp.SetCommand(input.TaxIDs)}
	}
	return s.gw.Update(ctx, erp.ModelOrder, []int64{orderID}, map[string]any{
		"lines": []any{erp.CreateCommand(vals)},
	})
}

func (s *service) UpdateLine(ctx context.Context, lineID int64, update LineUpdate) error {
	if lineID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "persisted line id required; edit unsaved lines locally")
	}
	if update.empty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "no line fields to update")
	}
	vals := map[string]any{}
	if update.Qty != nil || update.UnitPrice != nil {
		qty, price, err := s.mergedPricing(ctx, lineID, update)
		if err != nil {
			return err
		}
		subtotal := types.MoneyFloat(qty.Mul(price))
		vals["qty"] = qty.InexactFloat64()
		vals["price_unit"] = price.InexactFloat64()
		vals["price_subtotal"] = subtotal
		vals["price_subtotal_incl"] = subtotal
	}
	if update.Discount != nil {
		vals["discount"] = update.Discount.InexactFloat64()
	}
	if update.Name != nil {
		vals["full_product_name"] = *update.Name
	}
	return s.gw.Update(ctx, erp.ModelOrderLine, []int64{lineID}, vals)
}

// mergedPricing fills whichever of qty and price_unit the update leaves out from the
// persisted line, so the stored subtotal always matches the new values.
func (s *service) mergedPricing(ctx context.Context, lineID int64, update LineUpdate) (decimal.Decimal, decimal.Decimal, error) {
	if update.Qty != nil && update.UnitPrice != nil {
		return *update.Qty, *update.UnitPrice, nil
	}
	line, err := s.FetchLine(ctx, lineID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	qty, price := line.Qty, line.PriceUnit
	if update.Qty != nil {
		qty = *update.Qty
	}
	if update.UnitPrice != nil {
		price = *update.UnitPrice
	}
	return qty, price, nil
}

func (s *service) RemoveLine(ctx context.Context, lineID int64) error {
	if lineID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "persisted line id required; remove unsaved lines locally")
	}
	return s.gw.Delete(ctx, erp.ModelOrderLine, []int64{lineID})
}

func (s *service) FetchOrder(ctx context.Context, orderID int64) (*Order, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var found []Order
	if err := s.gw.Query(ctx, erp.ModelOrder, erp.Where("id", "=", orderID), erp.QueryOptions{
		Fields: orderFields,
		Limit:  1,
	}, &found); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %d not found", orderID))
	}
	order := found[0]
	lines, err := s.FetchLinesByIDs(ctx, order.LineIDs)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return &order, nil
}

func (s *service) FetchLinesByIDs(ctx context.Context, lineIDs []int64) ([]Line, error) {
	if len(lineIDs) == 0 {
		return []Line{}, nil
	}
	var lines []Line
	if err := s.gw.Query(ctx, erp.ModelOrderLine, erp.Where("id", "in", lineIDs), erp.QueryOptions{
		Fields: lineFields,
		Order:  "id",
	}, &lines); err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []Line{}
	}
	return lines, nil
}

func (s *service) FetchLine(ctx context.Context, lineID int64) (*Line, error) {
	if lineID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id required")
	}
	lines, err := s.FetchLinesByIDs(ctx, []int64{lineID})
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order line %d not found", lineID))
	}
	return &lines[0], nil
}

func (s *service) RecomputeTotal(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	order, err := s.FetchOrder(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, line := range order.Lines {
		total = total.Add(line.EffectiveSubtotal())
	}
	total = types.RoundMoney(total)
	if err := s.gw.Update(ctx, erp.ModelOrder, []int64{orderID}, map[string]any{
		"amount_total": total.InexactFloat64(),
	}); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (s *service) ConfirmSaleOrder(ctx context.Context, saleOrderID int64) error {
	if saleOrderID <= 0 {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrMissingReference, "sale order id required")
	}
	_, err := s.gw.Action(ctx, erp.ModelSaleOrder, erp.ActionConfirm, []int64{saleOrderID}, nil)
	return err
}

func cartLineVals(line cart.Line) map[string]any {
	vals := map[string]any{
		"product_id":          line.ProductID,
		"qty":                 line.EffectiveQuantity().InexactFloat64(),
		"price_unit":          line.UnitPrice().InexactFloat64(),
		"discount":            line.Discount.InexactFloat64(),
		"price_subtotal":      types.MoneyFloat(line.Subtotal()),
		"price_subtotal_incl": types.MoneyFloat(line.Subtotal()),
	}
	if line.Name != "" {
		vals["full_product_name"] = line.Name
	}
	if len(line.TaxIDs) > 0 {
		vals["tax_ids"] = []any{erp.SetCommand(line.TaxIDs)}
	}
	return vals
}

func setRef(vals map[string]any, field string, id int64) {
	if id > 0 {
		vals[field] = id
	}
}
