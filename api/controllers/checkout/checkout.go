package checkout

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fieldpos-backend/api/responses"
	"github.com/angelmondragon/fieldpos-backend/api/validators"
	"github.com/angelmondragon/fieldpos-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/fieldpos-backend/internal/checkout"
	"github.com/angelmondragon/fieldpos-backend/internal/payments"
	"github.com/angelmondragon/fieldpos-backend/pkg/db/models"
	"github.com/angelmondragon/fieldpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
)

const (
	invoiceDateLayout  = "2006-01-02"
	maxReferenceLength = 128
)

// Runner executes one checkout.
type Runner interface {
	Run(ctx context.Context, input checkoutsvc.Input) (*checkoutsvc.Outcome, error)
}

// RunFinder looks up persisted checkout runs.
type RunFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutRun, error)
}

type tenderRequest struct {
	Mode            enums.PaymentMode `json:"mode" validate:"required,oneof=cash card account"`
	Amount          decimal.Decimal   `json:"amount"`
	JournalID       int64             `json:"journal_id,omitempty" validate:"gte=0"`
	PaymentMethodID int64             `json:"payment_method_id,omitempty" validate:"gte=0"`
}

type checkoutRequest struct {
	Lines            []cart.Line       `json:"lines" validate:"dive"`
	PartnerID        *int64            `json:"partner_id,omitempty" validate:"omitempty,gt=0"`
	Session          cart.Session      `json:"session"`
	Mode             enums.PaymentMode `json:"mode" validate:"omitempty,oneof=cash card account"`
	JournalID        *int64            `json:"journal_id,omitempty" validate:"omitempty,gt=0"`
	PaymentJournalID int64             `json:"payment_journal_id,omitempty" validate:"gte=0"`
	PaymentMethodID  int64             `json:"payment_method_id,omitempty" validate:"gte=0"`
	Tenders          []tenderRequest   `json:"tenders,omitempty" validate:"dive"`
	Amount           *decimal.Decimal  `json:"amount,omitempty"`
	SaleOrderID      int64             `json:"sale_order_id,omitempty" validate:"gte=0"`
	InvoiceDate      string            `json:"invoice_date,omitempty"`
	Reference        string            `json:"reference,omitempty"`
}

func (req checkoutRequest) toInput(idempotencyKey string) (checkoutsvc.Input, error) {
	input := checkoutsvc.Input{
		Cart: cart.Cart{
			Lines:     req.Lines,
			PartnerID: req.PartnerID,
			Session:   req.Session,
		},
		Mode:             req.Mode,
		JournalID:        req.JournalID,
		PaymentJournalID: req.PaymentJournalID,
		PaymentMethodID:  req.PaymentMethodID,
		AmountOverride:   req.Amount,
		SaleOrderID:      req.SaleOrderID,
		Reference:        validators.SanitizeString(req.Reference, maxReferenceLength),
		IdempotencyKey:   idempotencyKey,
	}
	for _, t := range req.Tenders {
		input.Tenders = append(input.Tenders, payments.Tender{
			Mode:            t.Mode,
			Amount:          t.Amount,
			JournalID:       t.JournalID,
			PaymentMethodID: t.PaymentMethodID,
		})
	}
	if raw := strings.TrimSpace(req.InvoiceDate); raw != "" {
		date, err := time.Parse(invoiceDateLayout, raw)
		if err != nil {
			return checkoutsvc.Input{}, pkgerrors.New(pkgerrors.CodeValidation, "invoice_date must be YYYY-MM-DD").WithDetails(map[string]any{"field": "invoice_date"})
		}
		input.InvoiceDate = &date
	}
	return input, nil
}

// Submit runs the checkout workflow for the posted cart. A reconciled run answers 200
// with the outcome; any other run answers with a PARTIAL_WORKFLOW_FAILURE whose details
// are the outcome, so the register can show what was committed.
func Submit(runner Runner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout coordinator unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(strings.TrimSpace(r.Header.Get("Idempotency-Key")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// A dropped connection must not stop the workflow halfway; the coordinator's
		// run timeout bounds it instead.
		outcome, err := runner.Run(context.WithoutCancel(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if outcome.Failed() {
			responses.WriteError(r.Context(), logg, w, outcome.Err())
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

// GetRun returns a persisted checkout run from the ledger.
func GetRun(finder RunFinder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if finder == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout run ledger unavailable"))
			return
		}

		runID, err := validators.ParsePathUUID(r, "runId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		run, err := finder.FindByID(r.Context(), runID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout run"))
			return
		}
		if run == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "checkout run not found"))
			return
		}
		responses.WriteSuccess(w, checkoutsvc.FromRecord(run))
	}
}
