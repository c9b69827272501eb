package invoices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/fieldpos-backend/internal/cart"
	"github.com/angelmondragon/fieldpos-backend/internal/references"
	"github.com/angelmondragon/fieldpos-backend/pkg/enums"
	"github.com/angelmondragon/fieldpos-backend/pkg/erp"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
)

type gateway interface {
	Create(ctx context.Context, model string, vals map[string]any) (int64, error)
	Update(ctx context.Context, model string, ids []int64, vals map[string]any) error
	Query(ctx context.Context, model string, domain erp.Domain, opts erp.QueryOptions, dest any) error
	Action(ctx context.Context, model, action string, ids []int64, kwargs map[string]any) (json.RawMessage, error)
}

type journalResolver interface {
	ResolveSalesJournal(ctx context.Context) (*references.Journal, error)
}

// Service creates, posts and links customer invoices.
type Service interface {
	CreateInvoice(ctx context.Context, input InvoiceInput) (*Created, error)
	FetchInvoiceStatus(ctx context.Context, invoiceID int64) (*Status, error)
	LinkInvoiceToOrder(ctx context.Context, orderID, invoiceID int64) (string, error)
	LinkInvoiceToSaleOrder(ctx context.Context, saleOrderID, invoiceID int64) (string, error)
}

type service struct {
	gw       gateway
	resolver journalResolver
	logg     *logger.Logger
}

// NewService builds the invoice service.
func NewService(gw gateway, resolver journalResolver, logg *logger.Logger) (Service, error) {
	if gw == nil {
		return nil, errors.New("erp gateway required")
	}
	if resolver == nil {
		return nil, errors.New("journal resolver required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &service{gw: gw, resolver: resolver, logg: logg}, nil
}

// CreateInvoice creates the invoice and always attempts to post it. A failed post does
// not fail the call; it is reported through Created.Posted and Created.PostError.
func (s *service) CreateInvoice(ctx context.Context, input InvoiceInput) (*Created, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrEmptyCart, "invoice requires at least one line")
	}
	if input.PartnerID <= 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrMissingReference, "invoice requires a customer")
	}

	var journalID int64
	if input.JournalID != nil && *input.JournalID > 0 {
		journalID = *input.JournalID
	} else {
		journal, err := s.resolver.ResolveSalesJournal(ctx)
		if err != nil {
			return nil, err
		}
		journalID = journal.ID
	}

	lines := make([]any, 0, len(input.Lines))
	for _, line := range input.Lines {
		lines = append(lines, erp.CreateCommand(invoiceLineVals(line)))
	}
	vals := map[string]any{
		"move_type":        moveTypeCustomerInvoice,
		"partner_id":       input.PartnerID,
		"journal_id":       journalID,
		"invoice_line_ids": lines,
	}
	if input.Date != nil {
		vals["invoice_date"] = input.Date.Format("2006-01-02")
	}
	if input.Reference != "" {
		vals["ref"] = input.Reference
	}
	if input.CompanyID > 0 {
		vals["company_id"] = input.CompanyID
	}

	invoiceID, err := s.gw.Create(ctx, erp.ModelInvoice, vals)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithInvoiceID(ctx, invoiceID)
	created := &Created{InvoiceID: invoiceID, JournalID: journalID}

	if _, err := s.gw.Action(ctx, erp.ModelInvoice, erp.ActionPost, []int64{invoiceID}, nil); err != nil {
		created.PostError = err
		s.logg.Warn(s.logg.WithField(ctx, "error", erp.RawMessage(err)), "invoice created but not posted")
	} else {
		created.Posted = true
	}

	status, err := s.FetchInvoiceStatus(ctx, invoiceID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "invoice status read failed")
		return created, nil
	}
	created.Status = status
	if created.Posted && status.State != enums.InvoiceStatePosted {
		created.Posted = false
		created.PostError = fmt.Errorf("invoice %d is %s after posting", invoiceID, status.State)
	}
	return created, nil
}

func (s *service) FetchInvoiceStatus(ctx context.Context, invoiceID int64) (*Status, error) {
	if invoiceID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	var found []Status
	if err := s.gw.Query(ctx, erp.ModelInvoice, erp.Where("id", "=", invoiceID), erp.QueryOptions{
		Fields: statusFields,
		Limit:  1,
	}, &found); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("invoice %d not found", invoiceID))
	}
	return &found[0], nil
}

// LinkInvoiceToOrder points the order at the invoice. The returned string is a warning
// from the verification read; it is empty when the link was confirmed.
func (s *service) LinkInvoiceToOrder(ctx context.Context, orderID, invoiceID int64) (string, error) {
	return s.link(ctx, erp.ModelOrder, orderID, invoiceID, "account_move", map[string]any{
		"account_move": invoiceID,
	})
}

// LinkInvoiceToSaleOrder adds the invoice to the sale order's invoice set.
func (s *service) LinkInvoiceToSaleOrder(ctx context.Context, saleOrderID, invoiceID int64) (string, error) {
	return s.link(ctx, erp.ModelSaleOrder, saleOrderID, invoiceID, "invoice_ids", map[string]any{
		"invoice_ids": []any{erp.LinkCommand(invoiceID)},
	})
}

func (s *service) link(ctx context.Context, model string, recordID, invoiceID int64, field string, vals map[string]any) (string, error) {
	if recordID <= 0 || invoiceID <= 0 {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrMissingReference, "record and invoice ids required")
	}
	if err := s.gw.Update(ctx, model, []int64{recordID}, vals); err != nil {
		return "", err
	}

	var rows []map[string]json.RawMessage
	if err := s.gw.Query(ctx, model, erp.Where("id", "=", recordID), erp.QueryOptions{
		Fields: []string{"id", field},
		Limit:  1,
	}, &rows); err != nil {
		warning := fmt.Sprintf("could not verify %s link on %s %d: %s", field, model, recordID, erp.RawMessage(err))
		s.logg.Warn(ctx, warning)
		return warning, nil
	}
	if len(rows) == 0 || !referencesInvoice(rows[0][field], invoiceID) {
		warning := fmt.Sprintf("%s %d does not reference invoice %d after linking", model, recordID, invoiceID)
		s.logg.Warn(ctx, warning)
		return warning, nil
	}
	return "", nil
}

// referencesInvoice accepts both many2one ([id, name]) and x2many ([ids]) encodings.
func referencesInvoice(raw json.RawMessage, invoiceID int64) bool {
	var single erp.Many2One
	if err := json.Unmarshal(raw, &single); err == nil && single.ID == invoiceID {
		return true
	}
	var many []int64
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, id := range many {
			if id == invoiceID {
				return true
			}
		}
	}
	return false
}

func invoiceLineVals(line cart.Line) map[string]any {
	vals := map[string]any{
		"product_id": line.ProductID,
		"quantity":   line.EffectiveQuantity().InexactFloat64(),
		"price_unit": line.UnitPrice().InexactFloat64(),
	}
	if !line.Discount.IsZero() {
		vals["discount"] = line.Discount.InexactFloat64()
	}
	if line.Name != "" {
		vals["name"] = line.Name
	}
	if len(line.TaxIDs) > 0 {
		vals["tax_ids"] = []any{erp.SetCommand(line.TaxIDs)}
	}
	return vals
}
