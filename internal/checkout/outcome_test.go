package checkout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/fieldpos-backend/internal/notifications"
	"github.com/angelmondragon/fieldpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
)

func TestOutcomeClassification(t *testing.T) {
	t.Parallel()

	var nilOutcome *Outcome
	assert.Equal(t, enums.CheckoutStatusFailed, nilOutcome.classify())
	assert.False(t, nilOutcome.Failed())
	assert.Nil(t, nilOutcome.Cause())

	ok := &Outcome{State: enums.CheckoutStateReconciled}
	assert.Equal(t, enums.CheckoutStatusReconciled, ok.classify())
	assert.NoError(t, ok.Err())

	early := &Outcome{FailedStep: enums.CheckoutStateCreated, Reason: "order could not be created"}
	assert.Equal(t, enums.CheckoutStatusFailed, early.classify())
	assert.False(t, early.Partial())

	late := &Outcome{
		FailedStep: enums.CheckoutStateReconciled,
		Reason:     "payment not fully processed",
		Committed:  []SideEffect{{Kind: enums.SideEffectOrderCreated}},
	}
	assert.True(t, late.Partial())
}

func TestOutcomeErrCarriesDetails(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	out := &Outcome{FailedStep: enums.CheckoutStatePaid, Reason: "payment could not be created", cause: cause}

	err := out.Err()
	typed := pkgerrors.As(err)
	if assert.NotNil(t, typed) {
		assert.Equal(t, pkgerrors.CodePartialWorkflow, typed.Code())
		assert.Equal(t, "payment could not be created", typed.Message())
		assert.Same(t, out, typed.Details())
	}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, out.Cause())
}

func TestNotificationLevels(t *testing.T) {
	t.Parallel()

	cases := map[enums.CheckoutStatus]notifications.Level{
		enums.CheckoutStatusReconciled: notifications.LevelInfo,
		enums.CheckoutStatusPartial:    notifications.LevelWarning,
		enums.CheckoutStatusFailed:     notifications.LevelError,
	}
	for status, level := range cases {
		n := notificationFor(&Outcome{Status: status, Reason: "r", FailedStep: enums.CheckoutStatePaid})
		assert.Equal(t, level, n.Level, string(status))
		assert.Equal(t, string(status), n.Status)
	}
}
