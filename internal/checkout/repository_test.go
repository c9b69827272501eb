package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/fieldpos-backend/pkg/db/models"
	"github.com/angelmondragon/fieldpos-backend/pkg/enums"
	"github.com/angelmondragon/fieldpos-backend/pkg/erp"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
)

func newLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.CheckoutRun{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func partialOutcome() *Outcome {
	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	return &Outcome{
		RunID:         uuid.New(),
		State:         enums.CheckoutStatePosted,
		Status:        enums.CheckoutStatusPartial,
		FailedStep:    enums.CheckoutStatePaid,
		Reason:        "payment could not be created",
		RemoteMessage: "journal has no payment method",
		OrderID:       11,
		InvoiceID:     21,
		JournalID:     3,
		PaymentIDs:    []int64{},
		AmountTotal:   decimal.NewFromFloat(10.5),
		AmountPaid:    decimal.Zero,
		Committed: []SideEffect{
			{Kind: enums.SideEffectOrderCreated, Model: erp.ModelOrder, RecordID: 11, At: at},
			{Kind: enums.SideEffectInvoiceCreated, Model: erp.ModelInvoice, RecordID: 21, At: at},
		},
		Warnings:       []Warning{{Step: stepLinkOrder, Message: "not linked"}},
		StartedAt:      at,
		FinishedAt:     at.Add(2 * time.Second),
		idempotencyKey: "idem-1",
	}
}

func TestRepositorySaveAndFind(t *testing.T) {
	db := newLedgerDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	original := partialOutcome()
	require.NoError(t, repo.Save(ctx, ToRecord(original)))

	found, err := repo.FindByID(ctx, original.RunID)
	require.NoError(t, err)
	require.NotNil(t, found)

	got := FromRecord(found)
	assert.Equal(t, original.RunID, got.RunID)
	assert.Equal(t, enums.CheckoutStatusPartial, got.Status)
	assert.Equal(t, enums.CheckoutStatePaid, got.FailedStep)
	assert.Equal(t, original.Reason, got.Reason)
	assert.Equal(t, original.RemoteMessage, got.RemoteMessage)
	assert.Equal(t, int64(11), got.OrderID)
	assert.Equal(t, int64(21), got.InvoiceID)
	assert.Equal(t, int64(3), got.JournalID)
	assert.Empty(t, got.PaymentIDs)
	assert.True(t, got.AmountTotal.Equal(decimal.NewFromFloat(10.5)), "amount total %s", got.AmountTotal)
	require.Len(t, got.Committed, 2)
	assert.Equal(t, enums.SideEffectInvoiceCreated, got.Committed[1].Kind)
	assert.Equal(t, int64(21), got.Committed[1].RecordID)
	assert.Equal(t, []Warning{{Step: stepLinkOrder, Message: "not linked"}}, got.Warnings)
	assert.True(t, got.StartedAt.Equal(original.StartedAt))

	byKey, err := repo.FindByIdempotencyKey(ctx, "idem-1")
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, original.RunID, byKey.ID)
}

func TestRepositoryMissingRun(t *testing.T) {
	db := newLedgerDB(t)
	repo := NewRepository(db)

	found, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = repo.FindByID(context.Background(), uuid.Nil)
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = repo.FindByIdempotencyKey(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepositorySaveAssignsID(t *testing.T) {
	db := newLedgerDB(t)
	repo := NewRepository(db)

	run := ToRecord(partialOutcome())
	run.ID = uuid.Nil
	require.NoError(t, repo.Save(context.Background(), run))
	assert.NotEqual(t, uuid.Nil, run.ID)

	assert.Error(t, repo.Save(context.Background(), nil))
}

func TestRepositorySaveRejectsDuplicateRun(t *testing.T) {
	db := newLedgerDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	original := partialOutcome()
	require.NoError(t, repo.Save(ctx, ToRecord(original)))

	err := repo.Save(ctx, ToRecord(original))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestToRecordOmitsZeroReferences(t *testing.T) {
	t.Parallel()

	out := &Outcome{
		RunID:  uuid.New(),
		State:  enums.CheckoutStateReconciled,
		Status: enums.CheckoutStatusReconciled,
	}
	run := ToRecord(out)
	assert.Nil(t, run.OrderID)
	assert.Nil(t, run.InvoiceID)
	assert.Nil(t, run.FailedStep)
	assert.Nil(t, run.Reason)
	assert.Nil(t, run.IdempotencyKey)
	assert.Empty(t, run.Committed.Data)

	assert.Nil(t, ToRecord(nil))
	assert.Nil(t, FromRecord(nil))
}

func TestNewRepositoryNilDB(t *testing.T) {
	t.Parallel()
	assert.Nil(t, NewRepository(nil))
}
