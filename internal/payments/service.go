package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fieldpos-backend/internal/references"
	"github.com/angelmondragon/fieldpos-backend/pkg/enums"
	"github.com/angelmondragon/fieldpos-backend/pkg/erp"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
	"github.com/angelmondragon/fieldpos-backend/pkg/types"
)

type gateway interface {
	Create(ctx context.Context, model string, vals map[string]any) (int64, error)
	Update(ctx context.Context, model string, ids []int64, vals map[string]any) error
	Query(ctx context.Context, model string, domain erp.Domain, opts erp.QueryOptions, dest any) error
	Action(ctx context.Context, model, action string, ids []int64, kwargs map[string]any) (json.RawMessage, error)
}

type referenceResolver interface {
	ResolveJournalForMode(ctx context.Context, mode enums.PaymentMode) (*references.Journal, error)
	ResolvePaymentMethodForJournal(ctx context.Context, journalID int64) (*references.PaymentMethod, error)
	ResolveCustomerAccountMethod(ctx context.Context) (*references.PaymentMethod, error)
}

// Service creates and settles payments against point-of-sale orders.
type Service interface {
	ResolvePayments(ctx context.Context, req PaymentRequest) (*Result, error)
	PostPayment(ctx context.Context, paymentID int64) error
	FetchPayment(ctx context.Context, paymentID int64) (*Payment, error)
	Reconcile(ctx context.Context, paymentID int64) error
	MarkOrderPaid(ctx context.Context, orderID int64, amountPaid, amountTotal decimal.Decimal) error
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Gateway   gateway
	Resolver  referenceResolver
	Logger    *logger.Logger
	CompanyID int64
}

type service struct {
	gw        gateway
	resolver  referenceResolver
	logg      *logger.Logger
	companyID int64
}

// NewService constructs a payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, errors.New("erp gateway required")
	}
	if params.Resolver == nil {
		return nil, errors.New("reference resolver required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &service{
		gw:        params.Gateway,
		resolver:  params.Resolver,
		logg:      params.Logger,
		companyID: params.CompanyID,
	}, nil
}

// ResolvePayments creates one payment per non-zero tender. Tenders of exactly zero are
// skipped without any remote call.
func (s *service) ResolvePayments(ctx context.Context, req PaymentRequest) (*Result, error) {
	result := &Result{Payments: []Payment{}}
	if req.OrderID <= 0 {
		return result, pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrMissingReference, "order id required")
	}
	ctx = s.logg.WithOrderID(ctx, req.OrderID)

	tenders := req.tenders()
	if err := ValidateTenders(tenders); err != nil {
		return result, err
	}
	for _, tender := range tenders {
		if tender.Mode != enums.PaymentModeAccount || types.RoundMoney(tender.Amount).IsZero() {
			continue
		}
		if req.PartnerID == nil || *req.PartnerID <= 0 {
			return result, pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrMissingReference, "customer account payments require a customer")
		}
	}

	for _, tender := range tenders {
		amount := types.RoundMoney(tender.Amount)
		if amount.IsZero() {
			result.Skipped++
			continue
		}

		journalID, methodID, err := s.resolveTenderRefs(ctx, req, tender)
		if err != nil {
			return result, err
		}

		vals := map[string]any{
			"payment_type":   "inbound",
			"partner_type":   "customer",
			"amount":         amount.InexactFloat64(),
			"pos_order_id":   req.OrderID,
			"partner_id":     false,
			"pos_session_id": false,
		}
		if req.PartnerID != nil && *req.PartnerID > 0 {
			vals["partner_id"] = *req.PartnerID
		}
		if journalID > 0 {
			vals["journal_id"] = journalID
		}
		if methodID > 0 {
			vals["pos_payment_method_id"] = methodID
		}
		if req.Session.SessionID > 0 {
			vals["pos_session_id"] = req.Session.SessionID
		}
		if company := s.company(req); company > 0 {
			vals["company_id"] = company
		}
		if req.Reference != "" {
			vals["ref"] = req.Reference
		}

		id, err := s.gw.Create(ctx, erp.ModelPayment, vals)
		if err != nil {
			return result, err
		}
		payment := Payment{
			ID:      id,
			Amount:  amount,
			Journal: erp.Many2One{ID: journalID},
			Method:  erp.Many2One{ID: methodID},
			Order:   erp.Many2One{ID: req.OrderID},
			Mode:    tender.Mode,
		}
		if req.PartnerID != nil {
			payment.Partner = erp.Many2One{ID: *req.PartnerID}
		}
		result.Payments = append(result.Payments, payment)
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"payment_id":   id,
			"payment_mode": tender.Mode.String(),
			"amount":       amount.StringFixed(types.CurrencyPrecision),
		}), "payment created")
	}
	return result, nil
}

func (s *service) resolveTenderRefs(ctx context.Context, req PaymentRequest, tender Tender) (int64, int64, error) {
	if tender.Mode == enums.PaymentModeAccount {
		if req.PartnerID == nil || *req.PartnerID <= 0 {
			return 0, 0, pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrMissingReference, "customer account payments require a customer")
		}
		if tender.PaymentMethodID > 0 {
			return tender.JournalID, tender.PaymentMethodID, nil
		}
		method, err := s.resolver.ResolveCustomerAccountMethod(ctx)
		if err != nil {
			return 0, 0, err
		}
		if method == nil {
			return 0, 0, pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrNoPaymentMethod, "customer account payments unavailable")
		}
		return method.Journal.ID, method.ID, nil
	}

	journalID := tender.JournalID
	if journalID <= 0 {
		journal, err := s.resolver.ResolveJournalForMode(ctx, tender.Mode)
		if err != nil {
			return 0, 0, err
		}
		journalID = journal.ID
	}
	methodID := tender.PaymentMethodID
	if methodID <= 0 {
		method, err := s.resolver.ResolvePaymentMethodForJournal(ctx, journalID)
		if err != nil {
			return 0, 0, err
		}
		methodID = method.ID
	}
	return journalID, methodID, nil
}

func (s *service) company(req PaymentRequest) int64 {
	if req.Session.CompanyID > 0 {
		return req.Session.CompanyID
	}
	return s.companyID
}

// PostPayment posts a draft payment. The error is a diagnostic; callers decide whether
// the workflow continues.
func (s *service) PostPayment(ctx context.Context, paymentID int64) error {
	if paymentID <= 0 {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrMissingReference, "payment id required")
	}
	if _, err := s.gw.Action(ctx, erp.ModelPayment, erp.ActionPost, []int64{paymentID}, nil); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"payment_id": paymentID, "error": erp.RawMessage(err)}), "payment post failed")
		return err
	}
	return nil
}

func (s *service) FetchPayment(ctx context.Context, paymentID int64) (*Payment, error) {
	var found []Payment
	if err := s.gw.Query(ctx, erp.ModelPayment, erp.Where("id", "=", paymentID), erp.QueryOptions{
		Fields: paymentFields,
		Limit:  1,
	}, &found); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("payment %d not found", paymentID))
	}
	return &found[0], nil
}

// Reconcile asks the ERP to match the payment against open receivables.
func (s *service) Reconcile(ctx context.Context, paymentID int64) error {
	_, err := s.gw.Action(ctx, erp.ModelPayment, erp.ActionReconcile, []int64{paymentID}, nil)
	return err
}

// MarkOrderPaid flips the order to paid. It refuses while amountPaid is below amountTotal,
// leaving the order in draft.
func (s *service) MarkOrderPaid(ctx context.Context, orderID int64, amountPaid, amountTotal decimal.Decimal) error {
	if orderID <= 0 {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrMissingReference, "order id required")
	}
	paid, total := types.RoundMoney(amountPaid), types.RoundMoney(amountTotal)
	if paid.LessThan(total) {
		return pkgerrors.New(pkgerrors.CodeValidation, "payments do not cover the order total").WithDetails(map[string]any{
			"amount_paid":  paid.StringFixed(types.CurrencyPrecision),
			"amount_total": total.StringFixed(types.CurrencyPrecision),
		})
	}
	return s.gw.Update(ctx, erp.ModelOrder, []int64{orderID}, map[string]any{
		"amount_paid": paid.InexactFloat64(),
		"state":       enums.OrderStatePaid.String(),
	})
}
