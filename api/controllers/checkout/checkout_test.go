package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	checkoutsvc "github.com/angelmondragon/fieldpos-backend/internal/checkout"
	"github.com/angelmondragon/fieldpos-backend/pkg/db/models"
	"github.com/angelmondragon/fieldpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
)

type stubRunner struct {
	got     checkoutsvc.Input
	calls   int
	outcome *checkoutsvc.Outcome
	err     error
	ctxErr  error
}

func (s *stubRunner) Run(ctx context.Context, input checkoutsvc.Input) (*checkoutsvc.Outcome, error) {
	s.calls++
	s.got = input
	s.ctxErr = ctx.Err()
	return s.outcome, s.err
}

type stubFinder struct {
	run *models.CheckoutRun
	err error
}

func (s stubFinder) FindByID(context.Context, uuid.UUID) (*models.CheckoutRun, error) {
	return s.run, s.err
}

const cashBody = `{
	"lines": [{"product_id": 5, "price": 5.0, "qty": 2}],
	"partner_id": 7,
	"session": {"session_id": 1, "register_id": 2, "company_id": 1},
	"mode": "cash",
	"invoice_date": "2026-03-04",
	"reference": "  REG-2/0001  "
}`

func postCheckout(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pos/checkout", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "key-1")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestSubmitReconciled(t *testing.T) {
	runner := &stubRunner{outcome: &checkoutsvc.Outcome{
		RunID:       uuid.New(),
		State:       enums.CheckoutStateReconciled,
		Status:      enums.CheckoutStatusReconciled,
		OrderID:     11,
		InvoiceID:   21,
		PaymentIDs:  []int64{31},
		AmountTotal: decimal.NewFromInt(10),
		AmountPaid:  decimal.NewFromInt(10),
	}}

	w := postCheckout(Submit(runner, logger.Nop()), cashBody)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, 1, runner.calls)
	assert.Equal(t, enums.PaymentModeCash, runner.got.Mode)
	assert.Equal(t, "key-1", runner.got.IdempotencyKey)
	assert.Equal(t, "REG-2/0001", runner.got.Reference)
	require.NotNil(t, runner.got.Cart.PartnerID)
	assert.Equal(t, int64(7), *runner.got.Cart.PartnerID)
	require.Len(t, runner.got.Cart.Lines, 1)
	assert.True(t, runner.got.Cart.Lines[0].Subtotal().Equal(decimal.NewFromInt(10)))
	require.NotNil(t, runner.got.InvoiceDate)
	assert.Equal(t, 4, runner.got.InvoiceDate.Day())

	var body struct {
		Data struct {
			Status     string  `json:"status"`
			InvoiceID  int64   `json:"invoice_id"`
			PaymentIDs []int64 `json:"payment_ids"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "reconciled", body.Data.Status)
	assert.Equal(t, int64(21), body.Data.InvoiceID)
	assert.Equal(t, []int64{31}, body.Data.PaymentIDs)
}

func TestSubmitRunsDetachedFromClientConnection(t *testing.T) {
	runner := &stubRunner{outcome: &checkoutsvc.Outcome{
		RunID:  uuid.New(),
		State:  enums.CheckoutStateReconciled,
		Status: enums.CheckoutStatusReconciled,
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pos/checkout", strings.NewReader(cashBody)).WithContext(ctx)
	req.Header.Set("Idempotency-Key", "key-1")
	w := httptest.NewRecorder()

	Submit(runner, logger.Nop())(w, req)

	require.Equal(t, 1, runner.calls)
	assert.NoError(t, runner.ctxErr)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitPartialReturnsOutcomeInDetails(t *testing.T) {
	runner := &stubRunner{outcome: &checkoutsvc.Outcome{
		RunID:         uuid.New(),
		State:         enums.CheckoutStatePosted,
		Status:        enums.CheckoutStatusPartial,
		FailedStep:    enums.CheckoutStatePaid,
		Reason:        "payment could not be created",
		RemoteMessage: "journal has no payment method",
		OrderID:       11,
		InvoiceID:     21,
		Committed: []checkoutsvc.SideEffect{
			{Kind: enums.SideEffectOrderCreated, RecordID: 11},
			{Kind: enums.SideEffectInvoiceCreated, RecordID: 21},
		},
	}}

	w := postCheckout(Submit(runner, logger.Nop()), cashBody)

	require.Equal(t, http.StatusBadGateway, w.Code)
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details struct {
				FailedStep    string `json:"failed_step"`
				InvoiceID     int64  `json:"invoice_id"`
				RemoteMessage string `json:"remote_message"`
				Committed     []any  `json:"committed"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(pkgerrors.CodePartialWorkflow), body.Error.Code)
	assert.Equal(t, "payment could not be created", body.Error.Message)
	assert.Equal(t, "Paid", body.Error.Details.FailedStep)
	assert.Equal(t, int64(21), body.Error.Details.InvoiceID)
	assert.Equal(t, "journal has no payment method", body.Error.Details.RemoteMessage)
	assert.Len(t, body.Error.Details.Committed, 2)
}

func TestSubmitValidationErrorFromRunner(t *testing.T) {
	runner := &stubRunner{err: pkgerrors.Wrap(pkgerrors.CodeValidation, pkgerrors.ErrEmptyCart, "cart has no lines")}

	w := postCheckout(Submit(runner, logger.Nop()), `{"lines": [], "partner_id": 7, "mode": "cash"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, runner.calls)
}

func TestSubmitRejectsBadPayloads(t *testing.T) {
	cases := map[string]string{
		"unknown field":   `{"lines": [], "bogus": true}`,
		"bad mode":        `{"lines": [], "mode": "cheque"}`,
		"bad product":     `{"lines": [{"product_id": 0}], "mode": "cash"}`,
		"bad tender mode": `{"lines": [], "tenders": [{"mode": "gift", "amount": 1}]}`,
		"bad date":        `{"lines": [], "mode": "cash", "invoice_date": "04/03/2026"}`,
		"not json":        `lines`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			runner := &stubRunner{}
			w := postCheckout(Submit(runner, logger.Nop()), body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Zero(t, runner.calls)
		})
	}
}

func TestSubmitMapsTenders(t *testing.T) {
	runner := &stubRunner{outcome: &checkoutsvc.Outcome{Status: enums.CheckoutStatusReconciled}}
	body := `{
		"lines": [{"product_id": 5, "price": 5.0, "qty": 2}],
		"partner_id": 7,
		"tenders": [
			{"mode": "cash", "amount": 4},
			{"mode": "card", "amount": 6, "journal_id": 9}
		]
	}`

	w := postCheckout(Submit(runner, logger.Nop()), body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, runner.got.Tenders, 2)
	assert.Equal(t, enums.PaymentModeCard, runner.got.Tenders[1].Mode)
	assert.Equal(t, int64(9), runner.got.Tenders[1].JournalID)
	assert.True(t, runner.got.Tenders[0].Amount.Equal(decimal.NewFromInt(4)))
}

func TestSubmitWithoutRunner(t *testing.T) {
	w := postCheckout(Submit(nil, logger.Nop()), cashBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func getRun(handler http.HandlerFunc, runID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pos/checkout/runs/"+runID, nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("runId", runID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestGetRun(t *testing.T) {
	runID := uuid.New()
	invoiceID := int64(21)
	finder := stubFinder{run: &models.CheckoutRun{
		ID:        runID,
		Status:    enums.CheckoutStatusReconciled,
		State:     enums.CheckoutStateReconciled,
		InvoiceID: &invoiceID,
	}}

	w := getRun(GetRun(finder, logger.Nop()), runID.String())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Data struct {
			RunID     string `json:"run_id"`
			InvoiceID int64  `json:"invoice_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, runID.String(), body.Data.RunID)
	assert.Equal(t, invoiceID, body.Data.InvoiceID)
}

func TestGetRunErrors(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, getRun(GetRun(stubFinder{}, logger.Nop()), uuid.NewString()).Code)
	assert.Equal(t, http.StatusBadRequest, getRun(GetRun(stubFinder{}, logger.Nop()), "nope").Code)
	assert.Equal(t, http.StatusServiceUnavailable, getRun(GetRun(stubFinder{err: errors.New("db down")}, logger.Nop()), uuid.NewString()).Code)
}
