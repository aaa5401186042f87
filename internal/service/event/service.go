package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/internal/repository"
	"github.com/mediassist/resource-api/pkg/fanout"
	"github.com/mediassist/resource-api/pkg/logger"
)

// Emitter publishes domain change events.
type Emitter interface {
	Emit(ctx context.Context, topic string, payload interface{}) error
}

// Service records events through the transactional outbox (durable,
// at-least-once delivery to the broker via the outbox processor) and
// fans them out in-process for same-instance subscribers such as the
// directory cache.
type Service struct {
	outboxRepo repository.OutboxRepository
	dispatcher *fanout.Dispatcher
	logger     *logger.Logger
}

func NewService(outboxRepo repository.OutboxRepository, dispatcher *fanout.Dispatcher, logger *logger.Logger) *Service {
	return &Service{
		outboxRepo: outboxRepo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (s *Service) Emit(ctx context.Context, topic string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	evt := &model.OutboxEvent{
		EventType: topic,
		Payload:   payloadJSON,
	}
	if err := s.outboxRepo.Create(ctx, evt); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	s.dispatcher.Publish(fanout.Event{
		ID:      evt.ID,
		Topic:   topic,
		Payload: payload,
	})

	return nil
}
