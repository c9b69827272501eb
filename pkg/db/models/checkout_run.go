package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fieldpos-backend/pkg/enums"
	"github.com/angelmondragon/fieldpos-backend/pkg/types"
)

// CheckoutRunEffect is one remote record a checkout run committed.
type CheckoutRunEffect struct {
	Kind     enums.SideEffectKind `json:"kind"`
	Model    string               `json:"model"`
	RecordID int64                `json:"record_id"`
	At       time.Time            `json:"at"`
}

// CheckoutRunWarning is a best-effort step that did not complete.
type CheckoutRunWarning struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// CheckoutRun persists the outcome of one checkout saga.
type CheckoutRun struct {
	ID             uuid.UUID                              `gorm:"column:id;type:uuid;primaryKey"`
	IdempotencyKey *string                                `gorm:"column:idempotency_key"`
	Status         enums.CheckoutStatus                   `gorm:"column:status;not null"`
	State          enums.CheckoutState                    `gorm:"column:state;not null"`
	FailedStep     *enums.CheckoutState                   `gorm:"column:failed_step"`
	Reason         *string                                `gorm:"column:reason"`
	RemoteMessage  *string                                `gorm:"column:remote_message"`
	OrderID        *int64                                 `gorm:"column:order_id"`
	InvoiceID      *int64                                 `gorm:"column:invoice_id"`
	JournalID      *int64                                 `gorm:"column:journal_id"`
	PaymentIDs     types.JSONColumn[[]int64]              `gorm:"column:payment_ids;type:jsonb"`
	AmountTotal    decimal.Decimal                        `gorm:"column:amount_total;type:numeric(14,2)"`
	AmountPaid     decimal.Decimal                        `gorm:"column:amount_paid;type:numeric(14,2)"`
	Committed      types.JSONColumn[[]CheckoutRunEffect]  `gorm:"column:committed;type:jsonb"`
	Warnings       types.JSONColumn[[]CheckoutRunWarning] `gorm:"column:warnings;type:jsonb"`
	StartedAt      time.Time                              `gorm:"column:started_at;not null"`
	FinishedAt     time.Time                              `gorm:"column:finished_at;not null"`
	CreatedAt      time.Time                              `gorm:"column:created_at;autoCreateTime"`
}
