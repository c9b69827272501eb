package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
)

type fakePublisher struct {
	messages []*gcppubsub.Message
	err      error
	nilRes   bool
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if f.nilRes {
		return nil
	}
	return fakeResult{err: f.err}
}

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "msg-1", nil
}

type recordingSink struct {
	got []Notification
}

func (r *recordingSink) Notify(_ context.Context, n Notification) {
	r.got = append(r.got, n)
}

func sample() Notification {
	return Notification{
		Title:     "Payment complete",
		Message:   "order 7 paid",
		Level:     LevelInfo,
		RunID:     "run-1",
		Status:    "reconciled",
		OrderID:   7,
		InvoiceID: 9,
		At:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPubSubSinkPublishesJSON(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	sink, err := newPubSubSink(pub, logger.Nop())
	require.NoError(t, err)

	sink.Notify(context.Background(), sample())

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, "info", msg.Attributes["level"])
	assert.Equal(t, "reconciled", msg.Attributes["status"])
	assert.Equal(t, "run-1", msg.Attributes["run_id"])

	var decoded Notification
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, sample(), decoded)
}

func TestPubSubSinkSwallowsFailures(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf, Level: zerolog.InfoLevel})

	sink, err := newPubSubSink(&fakePublisher{err: errors.New("unavailable")}, logg)
	require.NoError(t, err)
	sink.Notify(context.Background(), sample())
	assert.Contains(t, buf.String(), "notification publish failed")

	buf.Reset()
	sink, err = newPubSubSink(&fakePublisher{nilRes: true}, logg)
	require.NoError(t, err)
	sink.Notify(context.Background(), sample())
	assert.Contains(t, buf.String(), "nil result")
}

func TestNewPubSubSinkRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewPubSubSink(nil, logger.Nop())
	assert.Error(t, err)
	_, err = newPubSubSink(&fakePublisher{}, nil)
	assert.Error(t, err)
}

func TestLogSinkWritesLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf, Level: zerolog.InfoLevel})
	sink := NewLogSink(logg)

	n := sample()
	n.Level = LevelError
	n.Message = "payment not fully processed"
	sink.Notify(context.Background(), n)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "payment not fully processed", entry["message"])
	assert.Equal(t, "run-1", entry["run_id"])
}

func TestFanoutDeliversToEverySink(t *testing.T) {
	t.Parallel()

	a, b := &recordingSink{}, &recordingSink{}
	Fanout{a, nil, b}.Notify(context.Background(), sample())

	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
}
