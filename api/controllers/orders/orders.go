package orders

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fieldpos-backend/api/responses"
	"github.com/angelmondragon/fieldpos-backend/api/validators"
	internalorders "github.com/angelmondragon/fieldpos-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
)

const maxLineNameLength = 256

// Service is the subset of the order service the HTTP layer drives.
type Service interface {
	FetchOrder(ctx context.Context, orderID int64) (*internalorders.Order, error)
	AppendLine(ctx context.Context, orderID int64, input internalorders.LineInput) error
	UpdateLine(ctx context.Context, lineID int64, update internalorders.LineUpdate) error
	RemoveLine(ctx context.Context, lineID int64) error
	FetchLine(ctx context.Context, lineID int64) (*internalorders.Line, error)
	RecomputeTotal(ctx context.Context, orderID int64) (decimal.Decimal, error)
}

type appendLineRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Qty       decimal.Decimal `json:"qty"`
	UnitPrice decimal.Decimal `json:"price_unit"`
	Discount  decimal.Decimal `json:"discount"`
	Name      string          `json:"name,omitempty"`
	TaxIDs    []int64         `json:"tax_ids,omitempty" validate:"omitempty,dive,gt=0"`
}

type updateLineRequest struct {
	Qty       *decimal.Decimal `json:"qty,omitempty"`
	UnitPrice *decimal.Decimal `json:"price_unit,omitempty"`
	Discount  *decimal.Decimal `json:"discount,omitempty"`
	Name      *string          `json:"name,omitempty"`
}

type lineResponse struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Qty          decimal.Decimal `json:"qty"`
	PriceUnit    decimal.Decimal `json:"price_unit"`
	Discount     decimal.Decimal `json:"discount"`
	Subtotal     decimal.Decimal `json:"price_subtotal"`
	SubtotalIncl decimal.Decimal `json:"price_subtotal_incl"`
	TaxIDs       []int64         `json:"tax_ids"`
}

type orderResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	PartnerID   int64           `json:"partner_id,omitempty"`
	SessionID   int64           `json:"session_id,omitempty"`
	RegisterID  int64           `json:"register_id,omitempty"`
	CompanyID   int64           `json:"company_id,omitempty"`
	InvoiceID   int64           `json:"invoice_id,omitempty"`
	State       string          `json:"state"`
	AmountTotal decimal.Decimal `json:"amount_total"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	AmountTax   decimal.Decimal `json:"amount_tax"`
	Lines       []lineResponse  `json:"lines"`
}

type totalResponse struct {
	OrderID     int64           `json:"order_id"`
	LineID      int64           `json:"line_id,omitempty"`
	AmountTotal decimal.Decimal `json:"amount_total"`
}

func newOrderResponse(order *internalorders.Order) orderResponse {
	lines := make([]lineResponse, 0, len(order.Lines))
	for _, l := range order.Lines {
		taxIDs := l.TaxIDs
		if taxIDs == nil {
			taxIDs = []int64{}
		}
		lines = append(lines, lineResponse{
			ID:           l.ID,
			ProductID:    l.Product.ID,
			ProductName:  firstNonEmpty(l.Name.String(), l.Product.Name),
			Qty:          l.Qty,
			PriceUnit:    l.PriceUnit,
			Discount:     l.Discount,
			Subtotal:     l.Subtotal,
			SubtotalIncl: l.SubtotalIncl,
			TaxIDs:       taxIDs,
		})
	}
	return orderResponse{
		ID:          order.ID,
		Name:        order.Name.String(),
		PartnerID:   order.Partner.ID,
		SessionID:   order.Session.ID,
		RegisterID:  order.Register.ID,
		CompanyID:   order.Company.ID,
		InvoiceID:   order.Invoice.ID,
		State:       order.State.String(),
		AmountTotal: order.AmountTotal,
		AmountPaid:  order.AmountPaid,
		AmountTax:   order.AmountTax,
		Lines:       lines,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Get returns an order with its lines.
func Get(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		orderID, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.FetchOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// AppendLine adds a line to a persisted order and then recomputes the order total, since
// appending alone leaves amount_total untouched.
func AppendLine(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		orderID, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload appendLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Qty.IsNegative() || payload.UnitPrice.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "qty and price_unit must not be negative"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID)
		}
		if err := svc.AppendLine(ctx, orderID, internalorders.LineInput{
			ProductID: payload.ProductID,
			Qty:       payload.Qty,
			UnitPrice: payload.UnitPrice,
			Discount:  payload.Discount,
			Name:      validators.SanitizeString(payload.Name, maxLineNameLength),
			TaxIDs:    payload.TaxIDs,
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		total, err := svc.RecomputeTotal(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, totalResponse{OrderID: orderID, AmountTotal: total})
	}
}

// UpdateLine edits a persisted line and answers with the recomputed order total.
func UpdateLine(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		lineID, err := validators.ParsePathID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if (payload.Qty != nil && payload.Qty.IsNegative()) || (payload.UnitPrice != nil && payload.UnitPrice.IsNegative()) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "qty and price_unit must not be negative"))
			return
		}
		update := internalorders.LineUpdate{
			Qty:       payload.Qty,
			UnitPrice: payload.UnitPrice,
			Discount:  payload.Discount,
		}
		if payload.Name != nil {
			name := validators.SanitizeString(*payload.Name, maxLineNameLength)
			update.Name = &name
		}

		ctx, orderID, err := owningOrder(r.Context(), svc, logg, lineID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.UpdateLine(ctx, lineID, update); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeTotal(ctx, w, svc, logg, orderID, lineID)
	}
}

// RemoveLine unlinks a persisted line and answers with the recomputed order total.
func RemoveLine(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		lineID, err := validators.ParsePathID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx, orderID, err := owningOrder(r.Context(), svc, logg, lineID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.RemoveLine(ctx, lineID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeTotal(ctx, w, svc, logg, orderID, lineID)
	}
}

func owningOrder(ctx context.Context, svc Service, logg *logger.Logger, lineID int64) (context.Context, int64, error) {
	line, err := svc.FetchLine(ctx, lineID)
	if err != nil {
		return ctx, 0, err
	}
	if line.Order.ID <= 0 {
		return ctx, 0, pkgerrors.New(pkgerrors.CodeStateConflict, "order line is not attached to an order")
	}
	if logg != nil {
		ctx = logg.WithOrderID(ctx, line.Order.ID)
	}
	return ctx, line.Order.ID, nil
}

func writeTotal(ctx context.Context, w http.ResponseWriter, svc Service, logg *logger.Logger, orderID, lineID int64) {
	total, err := svc.RecomputeTotal(ctx, orderID)
	if err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	responses.WriteSuccess(w, totalResponse{OrderID: orderID, LineID: lineID, AmountTotal: total})
}
