package cashflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/forno-digital/pizzaria-backend/pkg/logger"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

// EventPublisher receives every durably recorded cash entry.
type EventPublisher interface {
	PublishEntry(ctx context.Context, entry types.CashEntry) error
}

// loggingPublisher writes entries to the structured log. Used when no
// Pub/Sub topic is configured.
type loggingPublisher struct {
	logger *logger.Logger
}

// NewLoggingPublisher builds a publisher that only logs entries.
func NewLoggingPublisher(logg *logger.Logger) EventPublisher {
	return &loggingPublisher{logger: logg}
}

func (p *loggingPublisher) PublishEntry(ctx context.Context, entry types.CashEntry) error {
	if p.logger == nil {
		return nil
	}
	ctx = p.logger.WithEntryID(ctx, entry.ID)
	ctx = p.logger.WithFields(ctx, map[string]any{
		"order_id":  entry.OrderID,
		"operation": entry.Operation.String(),
		"amount":    entry.Amount.String(),
	})
	p.logger.Info(ctx, "cash entry recorded")
	return nil
}

// pubsubPublisher emits entries to a GCP Pub/Sub topic.
type pubsubPublisher struct {
	publisher *gcppubsub.Publisher
	timeout   time.Duration
}

// NewPubSubPublisher builds a Pub/Sub backed publisher.
func NewPubSubPublisher(publisher *gcppubsub.Publisher, timeout time.Duration) (EventPublisher, error) {
	if publisher == nil {
		return nil, fmt.Errorf("pubsub publisher is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &pubsubPublisher{publisher: publisher, timeout: timeout}, nil
}

func (p *pubsubPublisher) PublishEntry(ctx context.Context, entry types.CashEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cash entry event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result := p.publisher.Publish(ctx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"order_id":  entry.OrderID,
			"operation": entry.Operation.String(),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish cash entry event: %w", err)
	}
	return nil
}
