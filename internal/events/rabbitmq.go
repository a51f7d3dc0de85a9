package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuongbtq/media-gateway/internal/domain"
)

// Publisher is the subset of the RabbitMQ client used for events
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// RabbitPublisher publishes events as JSON messages
type RabbitPublisher struct {
	publisher Publisher
}

// NewRabbitPublisher creates a new RabbitPublisher
func NewRabbitPublisher(publisher Publisher) *RabbitPublisher {
	return &RabbitPublisher{publisher: publisher}
}

func (r *RabbitPublisher) Emit(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := r.publisher.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}
