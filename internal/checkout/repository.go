package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fieldpos-backend/pkg/db"
	"github.com/angelmondragon/fieldpos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/types"
)

// Repository persists checkout runs.
type Repository interface {
	Save(ctx context.Context, run *models.CheckoutRun) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutRun, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.CheckoutRun, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout run repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) Save(ctx context.Context, run *models.CheckoutRun) error {
	if run == nil {
		return errors.New("checkout run required")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "checkout run already recorded")
		}
		return err
	}
	return nil
}

// FindByID returns nil, nil when the run does not exist.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutRun, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(ctx, "id = ?", id)
}

// FindByIdempotencyKey returns the latest run submitted with key.
func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.CheckoutRun, error) {
	if key == "" {
		return nil, nil
	}
	return r.first(ctx, "idempotency_key = ?", key)
}

func (r *repository) first(ctx context.Context, query string, arg any) (*models.CheckoutRun, error) {
	var run models.CheckoutRun
	err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("created_at desc").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// ToRecord converts an outcome into its ledger row.
func ToRecord(out *Outcome) *models.CheckoutRun {
	if out == nil {
		return nil
	}
	effects := make([]models.CheckoutRunEffect, 0, len(out.Committed))
	for _, e := range out.Committed {
		effects = append(effects, models.CheckoutRunEffect{Kind: e.Kind, Model: e.Model, RecordID: e.RecordID, At: e.At})
	}
	warnings := make([]models.CheckoutRunWarning, 0, len(out.Warnings))
	for _, w := range out.Warnings {
		warnings = append(warnings, models.CheckoutRunWarning{Step: w.Step, Message: w.Message})
	}

	run := &models.CheckoutRun{
		ID:          out.RunID,
		Status:      out.Status,
		State:       out.State,
		PaymentIDs:  types.NewJSONColumn(append([]int64{}, out.PaymentIDs...)),
		AmountTotal: types.RoundMoney(out.AmountTotal),
		AmountPaid:  types.RoundMoney(out.AmountPaid),
		Committed:   types.NewJSONColumn(effects),
		Warnings:    types.NewJSONColumn(warnings),
		StartedAt:   out.StartedAt,
		FinishedAt:  out.FinishedAt,
	}
	if out.idempotencyKey != "" {
		run.IdempotencyKey = stringPtr(out.idempotencyKey)
	}
	if out.FailedStep != "" {
		step := out.FailedStep
		run.FailedStep = &step
	}
	if out.Reason != "" {
		run.Reason = stringPtr(out.Reason)
	}
	if out.RemoteMessage != "" {
		run.RemoteMessage = stringPtr(out.RemoteMessage)
	}
	run.OrderID = idPtr(out.OrderID)
	run.InvoiceID = idPtr(out.InvoiceID)
	run.JournalID = idPtr(out.JournalID)
	return run
}

// FromRecord rebuilds the outcome view of a persisted run. The invoice status snapshot
// is not stored.
func FromRecord(run *models.CheckoutRun) *Outcome {
	if run == nil {
		return nil
	}
	out := &Outcome{
		RunID:       run.ID,
		State:       run.State,
		Status:      run.Status,
		PaymentIDs:  append([]int64{}, run.PaymentIDs.Data...),
		AmountTotal: run.AmountTotal,
		AmountPaid:  run.AmountPaid,
		Committed:   make([]SideEffect, 0, len(run.Committed.Data)),
		Warnings:    make([]Warning, 0, len(run.Warnings.Data)),
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
	}
	for _, e := range run.Committed.Data {
		out.Committed = append(out.Committed, SideEffect{Kind: e.Kind, Model: e.Model, RecordID: e.RecordID, At: e.At})
	}
	for _, w := range run.Warnings.Data {
		out.Warnings = append(out.Warnings, Warning{Step: w.Step, Message: w.Message})
	}
	if run.FailedStep != nil {
		out.FailedStep = *run.FailedStep
	}
	if run.Reason != nil {
		out.Reason = *run.Reason
	}
	if run.RemoteMessage != nil {
		out.RemoteMessage = *run.RemoteMessage
	}
	if run.IdempotencyKey != nil {
		out.idempotencyKey = *run.IdempotencyKey
	}
	if run.OrderID != nil {
		out.OrderID = *run.OrderID
	}
	if run.InvoiceID != nil {
		out.InvoiceID = *run.InvoiceID
	}
	if run.JournalID != nil {
		out.JournalID = *run.JournalID
	}
	return out
}

func stringPtr(v string) *string {
	return &v
}

func idPtr(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}
