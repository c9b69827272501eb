package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/fieldpos-backend/internal/cart"
	"github.com/angelmondragon/fieldpos-backend/internal/invoices"
	"github.com/angelmondragon/fieldpos-backend/internal/notifications"
	"github.com/angelmondragon/fieldpos-backend/internal/orders"
	"github.com/angelmondragon/fieldpos-backend/internal/payments"
	"github.com/angelmondragon/fieldpos-backend/internal/references"
	"github.com/angelmondragon/fieldpos-backend/pkg/db/models"
	"github.com/angelmondragon/fieldpos-backend/pkg/enums"
	"github.com/angelmondragon/fieldpos-backend/pkg/erp"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
	"github.com/angelmondragon/fieldpos-backend/pkg/types"
)

type orderService interface {
	CreateDraftOrder(ctx context.Context, input orders.DraftOrderInput) (int64, error)
	ConfirmSaleOrder(ctx context.Context, saleOrderID int64) error
}

type invoiceService interface {
	CreateInvoice(ctx context.Context, input invoices.InvoiceInput) (*invoices.Created, error)
	FetchInvoiceStatus(ctx context.Context, invoiceID int64) (*invoices.Status, error)
	LinkInvoiceToOrder(ctx context.Context, orderID, invoiceID int64) (string, error)
	LinkInvoiceToSaleOrder(ctx context.Context, saleOrderID, invoiceID int64) (string, error)
}

type paymentService interface {
	ResolvePayments(ctx context.Context, req payments.PaymentRequest) (*payments.Result, error)
	PostPayment(ctx context.Context, paymentID int64) error
	FetchPayment(ctx context.Context, paymentID int64) (*payments.Payment, error)
	Reconcile(ctx context.Context, paymentID int64) error
	MarkOrderPaid(ctx context.Context, orderID int64, amountPaid, amountTotal decimal.Decimal) error
}

type journalResolver interface {
	ResolveSalesJournal(ctx context.Context) (*references.Journal, error)
}

type runRecorder interface {
	Save(ctx context.Context, run *models.CheckoutRun) error
}

type notifier interface {
	Notify(ctx context.Context, n notifications.Notification)
}

type runObserver interface {
	ObserveRun(status, failedStep string, warnings int, duration time.Duration)
}

// CoordinatorParams groups the coordinator collaborators. Recorder, Notifier and
// Metrics are optional.
type CoordinatorParams struct {
	Orders     orderService
	Invoices   invoiceService
	Payments   paymentService
	Journals   journalResolver
	Recorder   runRecorder
	Notifier   notifier
	Metrics    runObserver
	Logger     *logger.Logger
	RunTimeout time.Duration
	CompanyID  int64
}

// Coordinator drives a checkout from draft order to reconciled invoice. It never rolls
// back: every committed remote record is listed in the outcome.
type Coordinator struct {
	orders     orderService
	invoices   invoiceService
	payments   paymentService
	journals   journalResolver
	recorder   runRecorder
	notifier   notifier
	metrics    runObserver
	logg       *logger.Logger
	runTimeout time.Duration
	companyID  int64
	now        func() time.Time
}

func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	if params.Orders == nil {
		return nil, errors.New("order service required")
	}
	if params.Invoices == nil {
		return nil, errors.New("invoice service required")
	}
	if params.Payments == nil {
		return nil, errors.New("payment service required")
	}
	if params.Journals == nil {
		return nil, errors.New("journal resolver required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Coordinator{
		orders:     params.Orders,
		invoices:   params.Invoices,
		payments:   params.Payments,
		journals:   params.Journals,
		recorder:   params.Recorder,
		notifier:   params.Notifier,
		metrics:    params.Metrics,
		logg:       params.Logger,
		runTimeout: params.RunTimeout,
		companyID:  params.CompanyID,
		now:        time.Now,
	}, nil
}

// Run executes the checkout saga. Input validation failures return an error before any
// remote call. Every other failure is reported through the returned Outcome.
func (c *Coordinator) Run(ctx context.Context, input Input) (*Outcome, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	r := &run{
		outcome: &Outcome{
			RunID:          uuid.New(),
			State:          enums.CheckoutStatePending,
			PaymentIDs:     []int64{},
			Committed:      []SideEffect{},
			Warnings:       []Warning{},
			StartedAt:      c.now().UTC(),
			idempotencyKey: input.IdempotencyKey,
		},
		now:  c.now,
		logg: c.logg,
	}
	ctx = c.logg.WithRunID(ctx, r.outcome.RunID.String())

	runCtx := ctx
	if c.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.runTimeout)
		defer cancel()
	}

	c.logg.Info(ctx, "checkout started")
	c.execute(runCtx, r, input)
	r.finish()

	// Reporting must survive the run deadline.
	c.report(context.WithoutCancel(ctx), r)
	return r.outcome, nil
}

func (c *Coordinator) execute(ctx context.Context, r *run, input Input) {
	lines := input.Cart.Lines
	partnerID := *input.Cart.PartnerID
	out := r.outcome

	total := cart.Total(lines)
	if input.AmountOverride != nil {
		total = *input.AmountOverride
	}
	total = types.RoundMoney(total)
	out.AmountTotal = total

	if input.JournalID != nil && *input.JournalID > 0 {
		out.JournalID = *input.JournalID
	} else {
		journal, err := c.journals.ResolveSalesJournal(ctx)
		if err != nil {
			r.fail(ctx, enums.CheckoutStateInvoiced, "sales journal could not be resolved", err)
			return
		}
		out.JournalID = journal.ID
	}

	orderID, err := c.orders.CreateDraftOrder(ctx, orders.DraftOrderInput{
		PartnerID:   &partnerID,
		Lines:       lines,
		Session:     input.Cart.Session,
		AmountTotal: &total,
	})
	if err != nil {
		r.fail(ctx, enums.CheckoutStateCreated, "order could not be created", err)
		return
	}
	out.OrderID = orderID
	ctx = c.logg.WithOrderID(ctx, orderID)
	r.commit(enums.SideEffectOrderCreated, erp.ModelOrder, orderID)
	r.reach(ctx, enums.CheckoutStateCreated)

	journalID := out.JournalID
	created, err := c.invoices.CreateInvoice(ctx, invoices.InvoiceInput{
		PartnerID: partnerID,
		Lines:     lines,
		JournalID: &journalID,
		Date:      input.InvoiceDate,
		Reference: input.Reference,
		CompanyID: c.company(input.Cart.Session),
	})
	if err != nil || created == nil || created.InvoiceID <= 0 {
		r.fail(ctx, enums.CheckoutStateInvoiced, "invoice could not be created", err)
		return
	}
	invoiceID := created.InvoiceID
	out.InvoiceID = invoiceID
	out.Invoice = created.Status
	ctx = c.logg.WithInvoiceID(ctx, invoiceID)
	r.commit(enums.SideEffectInvoiceCreated, erp.ModelInvoice, invoiceID)
	r.reach(ctx, enums.CheckoutStateInvoiced)

	if !created.Posted {
		r.fail(ctx, enums.CheckoutStatePosted, "invoice created but not posted", created.PostError)
		return
	}
	r.commit(enums.SideEffectInvoicePosted, erp.ModelInvoice, invoiceID)
	r.reach(ctx, enums.CheckoutStatePosted)

	c.link(ctx, r, orderID, invoiceID, input.SaleOrderID)

	payer := partnerID
	if created.Status != nil && created.Status.Partner.ID > 0 {
		payer = created.Status.Partner.ID
	}
	result, err := c.payments.ResolvePayments(ctx, payments.PaymentRequest{
		OrderID:         orderID,
		PartnerID:       &payer,
		Session:         input.Cart.Session,
		Mode:            input.Mode,
		Amount:          total,
		JournalID:       input.PaymentJournalID,
		PaymentMethodID: input.PaymentMethodID,
		Tenders:         input.Tenders,
		Reference:       input.Reference,
	})
	if result != nil {
		for _, p := range result.Payments {
			out.PaymentIDs = append(out.PaymentIDs, p.ID)
			r.commit(enums.SideEffectPaymentCreated, erp.ModelPayment, p.ID)
		}
	}
	paid := result.Total()
	out.AmountPaid = paid
	switch {
	case err != nil && len(out.PaymentIDs) > 0:
		r.fail(ctx, enums.CheckoutStatePaid, "payment creation incomplete", err)
		return
	case err != nil:
		r.fail(ctx, enums.CheckoutStatePaid, "payment could not be created", err)
		return
	case len(out.PaymentIDs) == 0:
		r.fail(ctx, enums.CheckoutStatePaid, "no payment was created", nil)
		return
	}

	if types.MoneyEqual(paid, total) || paid.GreaterThan(total) {
		if err := c.payments.MarkOrderPaid(ctx, orderID, paid, total); err != nil {
			r.warn(ctx, stepMarkPaid, err)
		} else {
			r.commit(enums.SideEffectOrderMarkedPaid, erp.ModelOrder, orderID)
		}
	} else {
		r.warn(ctx, stepMarkPaid, fmt.Errorf("payments total %s is below order total %s; order left in draft", paid.StringFixed(2), total.StringFixed(2)))
	}
	r.reach(ctx, enums.CheckoutStatePaid)

	allPosted := true
	for _, id := range out.PaymentIDs {
		if err := c.payments.PostPayment(ctx, id); err != nil {
			allPosted = false
			r.warn(ctx, stepPostPayment, fmt.Errorf("payment %d: %w", id, err))
			continue
		}
		r.commit(enums.SideEffectPaymentPosted, erp.ModelPayment, id)
	}
	if allPosted {
		r.reach(ctx, enums.CheckoutStatePostedPayment)
	}

	for _, id := range out.PaymentIDs {
		c.reconcile(ctx, r, id)
	}

	status, err := c.invoices.FetchInvoiceStatus(ctx, invoiceID)
	if err != nil {
		r.fail(ctx, enums.CheckoutStateReconciled, "invoice status could not be verified", err)
		return
	}
	out.Invoice = status
	if !status.Settled() {
		r.fail(ctx, enums.CheckoutStateReconciled, "payment not fully processed", nil)
		return
	}
	r.reach(ctx, enums.CheckoutStateReconciled)
}

func (c *Coordinator) link(ctx context.Context, r *run, orderID, invoiceID, saleOrderID int64) {
	warning, err := c.invoices.LinkInvoiceToOrder(ctx, orderID, invoiceID)
	switch {
	case err != nil:
		r.warn(ctx, stepLinkOrder, err)
	case warning != "":
		r.warn(ctx, stepLinkOrder, errors.New(warning))
	default:
		r.commit(enums.SideEffectInvoiceLinked, erp.ModelOrder, orderID)
	}

	if saleOrderID <= 0 {
		return
	}
	warning, err = c.invoices.LinkInvoiceToSaleOrder(ctx, saleOrderID, invoiceID)
	switch {
	case err != nil:
		r.warn(ctx, stepLinkSaleOrder, err)
	case warning != "":
		r.warn(ctx, stepLinkSaleOrder, errors.New(warning))
	default:
		r.commit(enums.SideEffectInvoiceLinked, erp.ModelSaleOrder, saleOrderID)
	}
	if err := c.orders.ConfirmSaleOrder(ctx, saleOrderID); err != nil {
		r.warn(ctx, stepConfirmSaleOrder, err)
		return
	}
	r.commit(enums.SideEffectSaleConfirmed, erp.ModelSaleOrder, saleOrderID)
}

// reconcile issues at most one manual reconcile per payment.
func (c *Coordinator) reconcile(ctx context.Context, r *run, paymentID int64) {
	payment, err := c.payments.FetchPayment(ctx, paymentID)
	if err != nil {
		r.warn(ctx, stepReadPayment, fmt.Errorf("payment %d: %w", paymentID, err))
		return
	}
	if payment.Reconciled {
		return
	}
	if err := c.payments.Reconcile(ctx, paymentID); err != nil {
		r.warn(ctx, stepReconcilePayment, fmt.Errorf("payment %d: %w", paymentID, err))
		return
	}
	r.commit(enums.SideEffectPaymentReconcile, erp.ModelPayment, paymentID)
}

func (c *Coordinator) company(session cart.Session) int64 {
	if session.CompanyID > 0 {
		return session.CompanyID
	}
	return c.companyID
}

func (c *Coordinator) report(ctx context.Context, r *run) {
	out := r.outcome
	fields := map[string]any{
		"status":    string(out.Status),
		"state":     string(out.State),
		"committed": len(out.Committed),
		"warnings":  len(out.Warnings),
	}
	if r.warnings != nil {
		fields["warning_detail"] = r.warnings.Error()
	}
	logCtx := c.logg.WithFields(ctx, fields)
	if out.Failed() {
		logCtx = c.logg.WithFields(logCtx, map[string]any{
			"failed_step": string(out.FailedStep),
			"reason":      out.Reason,
		})
		c.logg.Error(logCtx, "checkout did not complete", out.cause)
	} else {
		c.logg.Info(logCtx, "checkout reconciled")
	}

	if c.metrics != nil {
		c.metrics.ObserveRun(string(out.Status), string(out.FailedStep), len(out.Warnings), out.FinishedAt.Sub(out.StartedAt))
	}

	if c.recorder != nil {
		if err := c.recorder.Save(ctx, ToRecord(out)); err != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "checkout run not recorded")
		}
	}

	if c.notifier != nil {
		c.notifier.Notify(ctx, notificationFor(out))
	}
}

func notificationFor(out *Outcome) notifications.Notification {
	n := notifications.Notification{
		RunID:     out.RunID.String(),
		Status:    string(out.Status),
		OrderID:   out.OrderID,
		InvoiceID: out.InvoiceID,
		At:        out.FinishedAt,
	}
	switch out.Status {
	case enums.CheckoutStatusReconciled:
		n.Level = notifications.LevelInfo
		n.Title = "Payment complete"
		n.Message = fmt.Sprintf("Order %d paid %s and invoice %d reconciled", out.OrderID, out.AmountPaid.StringFixed(2), out.InvoiceID)
	case enums.CheckoutStatusPartial:
		n.Level = notifications.LevelWarning
		n.Title = "Payment incomplete"
		n.Message = fmt.Sprintf("%s at %s", out.Reason, out.FailedStep)
	default:
		n.Level = notifications.LevelError
		n.Title = "Payment failed"
		n.Message = out.Reason
	}
	return n
}

// run accumulates the outcome of one saga execution.
type run struct {
	outcome  *Outcome
	warnings error
	now      func() time.Time
	logg     *logger.Logger
}

func (r *run) reach(ctx context.Context, state enums.CheckoutState) {
	r.outcome.State = state
	r.logg.Debug(r.logg.WithStep(ctx, string(state)), "checkout step reached")
}

func (r *run) commit(kind enums.SideEffectKind, model string, id int64) {
	r.outcome.Committed = append(r.outcome.Committed, SideEffect{
		Kind:     kind,
		Model:    model,
		RecordID: id,
		At:       r.now().UTC(),
	})
}

func (r *run) warn(ctx context.Context, step string, err error) {
	msg := erp.RawMessage(err)
	r.outcome.Warnings = append(r.outcome.Warnings, Warning{Step: step, Message: msg})
	r.warnings = multierr.Append(r.warnings, fmt.Errorf("%s: %s", step, msg))
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{"step": step, "error": msg}), "checkout step skipped")
}

func (r *run) fail(ctx context.Context, step enums.CheckoutState, reason string, err error) {
	out := r.outcome
	out.FailedStep = step
	out.Reason = reason
	out.RemoteMessage = erp.RawMessage(err)
	out.cause = err
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{"step": string(step), "reason": reason}), "checkout step failed")
}

func (r *run) finish() {
	r.outcome.FinishedAt = r.now().UTC()
	r.outcome.Status = r.outcome.classify()
}
