package references

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/fieldpos-backend/pkg/config"
	"github.com/angelmondragon/fieldpos-backend/pkg/enums"
	"github.com/angelmondragon/fieldpos-backend/pkg/erp"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
)

const (
	journalTypeSale      = "sale"
	methodTypePayLater   = "pay_later"
	customerAccountLabel = "customer account"
)

var (
	journalFields = []string{"id", "name", "type", "code", "company_id"}
	methodFields  = []string{"id", "name", "type", "journal_id"}
)

type gateway interface {
	Query(ctx context.Context, model string, domain erp.Domain, opts erp.QueryOptions, dest any) error
}

// Journal is the read-only projection of account.journal.
type Journal struct {
	ID      int64        `json:"id"`
	Name    erp.Text     `json:"name"`
	Type    erp.Text     `json:"type"`
	Code    erp.Text     `json:"code"`
	Company erp.Many2One `json:"company_id"`
}

// PaymentMethod is the read-only projection of pos.payment.method.
type PaymentMethod struct {
	ID      int64        `json:"id"`
	Name    erp.Text     `json:"name"`
	Type    erp.Text     `json:"type"`
	Journal erp.Many2One `json:"journal_id"`
}

// JournalSelector describes how a payment mode finds its journal. A non-zero ID is
// tried first, then Type plus NameContains, then the first journal of Type.
type JournalSelector struct {
	ID           int64
	Type         string
	NameContains string
}

// Selectors maps payment modes to journal selectors.
type Selectors map[enums.PaymentMode]JournalSelector

// SelectorsFromConfig builds the mode mapping from the journals config section.
func SelectorsFromConfig(cfg config.JournalsConfig) Selectors {
	cash, card := cfg.Cash(), cfg.Card()
	return Selectors{
		enums.PaymentModeCash: {ID: cash.ID, Type: cash.Type, NameContains: cash.NameContains},
		enums.PaymentModeCard: {ID: card.ID, Type: card.Type, NameContains: card.NameContains},
	}
}

// Resolver fills in references the caller omitted using data read from the ERP.
type Resolver struct {
	gw        gateway
	selectors Selectors
	logg      *logger.Logger
}

// ResolverParams groups the resolver dependencies.
type ResolverParams struct {
	Gateway   gateway
	Selectors Selectors
	Logger    *logger.Logger
}

// NewResolver validates dependencies and builds a Resolver.
func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Gateway == nil {
		return nil, errors.New("erp gateway required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Selectors == nil {
		params.Selectors = Selectors{}
	}
	return &Resolver{gw: params.Gateway, selectors: params.Selectors, logg: params.Logger}, nil
}

// ResolveSalesJournal returns the first journal of type sale.
func (r *Resolver) ResolveSalesJournal(ctx context.Context) (*Journal, error) {
	var journals []Journal
	if err := r.gw.Query(ctx, erp.ModelJournal, erp.Where("type", "=", journalTypeSale), erp.QueryOptions{
		Fields: journalFields,
		Order:  "sequence, id",
	}, &journals); err != nil {
		return nil, err
	}
	for i := range journals {
		if strings.EqualFold(journals[i].Type.String(), journalTypeSale) {
			return &journals[i], nil
		}
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeResolution, pkgerrors.ErrNoDefaultJournal, "no sale journal configured")
}

// ResolvePaymentMethodForJournal returns the payment method bound to journalID.
func (r *Resolver) ResolvePaymentMethodForJournal(ctx context.Context, journalID int64) (*PaymentMethod, error) {
	if journalID <= 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrMissingReference, "journal id required")
	}
	var methods []PaymentMethod
	if err := r.gw.Query(ctx, erp.ModelPaymentMethod, erp.Where("journal_id", "=", journalID), erp.QueryOptions{
		Fields: methodFields,
		Limit:  1,
	}, &methods); err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeResolution, pkgerrors.ErrNoPaymentMethod,
			fmt.Sprintf("no payment method for journal %d", journalID))
	}
	return &methods[0], nil
}

// ResolveCustomerAccountMethod picks the method used to charge a customer's account.
// A nil method with a nil error means the ERP has no such method configured.
func (r *Resolver) ResolveCustomerAccountMethod(ctx context.Context) (*PaymentMethod, error) {
	var methods []PaymentMethod
	if err := r.gw.Query(ctx, erp.ModelPaymentMethod, erp.Domain{}, erp.QueryOptions{
		Fields: methodFields,
		Order:  "id",
	}, &methods); err != nil {
		return nil, err
	}
	method := pickCustomerAccountMethod(methods)
	if method == nil {
		r.logg.Info(ctx, "customer account payment method not configured")
	}
	return method, nil
}

// pickCustomerAccountMethod applies the rules in order; the first rule with any match wins.
func pickCustomerAccountMethod(methods []PaymentMethod) *PaymentMethod {
	rules := []func(PaymentMethod) bool{
		func(m PaymentMethod) bool {
			return strings.EqualFold(strings.TrimSpace(m.Name.String()), customerAccountLabel)
		},
		func(m PaymentMethod) bool {
			name := strings.ToLower(m.Name.String())
			return strings.Contains(name, "customer") ||
				strings.Contains(name, "credit") ||
				strings.EqualFold(m.Type.String(), methodTypePayLater)
		},
		func(m PaymentMethod) bool {
			return !m.Journal.Set()
		},
	}
	for _, rule := range rules {
		for i := range methods {
			if rule(methods[i]) {
				return &methods[i]
			}
		}
	}
	return nil
}

// ResolveJournalForMode resolves the journal a cash or card tender posts to.
func (r *Resolver) ResolveJournalForMode(ctx context.Context, mode enums.PaymentMode) (*Journal, error) {
	sel, ok := r.selectors[mode]
	if !ok {
		return nil, pkgerrors.Wrap(pkgerrors.CodeResolution, pkgerrors.ErrNoDefaultJournal,
			fmt.Sprintf("no journal selector for payment mode %s", mode))
	}

	if sel.ID > 0 {
		var byID []Journal
		if err := r.gw.Query(ctx, erp.ModelJournal, erp.Where("id", "=", sel.ID), erp.QueryOptions{
			Fields: journalFields,
			Limit:  1,
		}, &byID); err != nil {
			return nil, err
		}
		if len(byID) > 0 {
			return &byID[0], nil
		}
		ctx = r.logg.WithFields(ctx, map[string]any{"journal_id": sel.ID, "payment_mode": mode.String()})
		r.logg.Warn(ctx, "configured journal not found, falling back to type match")
	}

	if strings.TrimSpace(sel.Type) == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeResolution, pkgerrors.ErrNoDefaultJournal,
			fmt.Sprintf("no journal type configured for payment mode %s", mode))
	}
	var journals []Journal
	if err := r.gw.Query(ctx, erp.ModelJournal, erp.Where("type", "=", sel.Type), erp.QueryOptions{
		Fields: journalFields,
		Order:  "sequence, id",
	}, &journals); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(sel.NameContains))
	if needle != "" {
		for i := range journals {
			if strings.Contains(strings.ToLower(journals[i].Name.String()), needle) {
				return &journals[i], nil
			}
		}
	}
	if len(journals) > 0 {
		return &journals[0], nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeResolution, pkgerrors.ErrNoDefaultJournal,
		fmt.Sprintf("no %s journal for payment mode %s", sel.Type, mode))
}
