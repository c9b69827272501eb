package notifications

import (
	"context"
	"time"
)

// Level is the severity shown to the operator.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a fire-and-forget status message about a checkout run.
type Notification struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Level     Level     `json:"level"`
	RunID     string    `json:"run_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	OrderID   int64     `json:"order_id,omitempty"`
	InvoiceID int64     `json:"invoice_id,omitempty"`
	At        time.Time `json:"at"`
}

// Sink delivers notifications. Implementations never block the caller on failure.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// Fanout delivers each notification to every sink in order.
type Fanout []Sink

func (f Fanout) Notify(ctx context.Context, n Notification) {
	for _, sink := range f {
		if sink != nil {
			sink.Notify(ctx, n)
		}
	}
}
