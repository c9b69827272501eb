package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
)

const defaultPublishTimeout = 5 * time.Second

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PubSubSink publishes notifications as JSON messages. Publish failures are logged and
// dropped.
type PubSubSink struct {
	pub     publisher
	logg    *logger.Logger
	timeout time.Duration
}

// NewPubSubSink wraps a Pub/Sub topic publisher.
func NewPubSubSink(p *gcppubsub.Publisher, logg *logger.Logger) (*PubSubSink, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return newPubSubSink(&gcpPublisher{Publisher: p}, logg)
}

func newPubSubSink(pub publisher, logg *logger.Logger) (*PubSubSink, error) {
	if pub == nil {
		return nil, errors.New("pubsub publisher required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &PubSubSink{pub: pub, logg: logg, timeout: defaultPublishTimeout}, nil
}

func (s *PubSubSink) Notify(ctx context.Context, n Notification) {
	if err := s.publish(ctx, n); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"error":  err.Error(),
			"run_id": n.RunID,
		}), "notification publish failed")
	}
}

func (s *PubSubSink) publish(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"level":  string(n.Level),
			"status": n.Status,
			"run_id": n.RunID,
		},
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	result := s.pub.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	_, err = result.Get(publishCtx)
	return err
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
