package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quest-maker/internal/interfaces"
	"quest-maker/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	publishAttempts = 3
	publishTimeout  = 10 * time.Second
	appID           = "quest-maker"
)

// AMQPChannel - часть *amqp.Channel, нужная паблишеру.
type AMQPChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

var _ interfaces.EventPublisher = (*rabbitMQPublisher)(nil)

type rabbitMQPublisher struct {
	channel  AMQPChannel
	exchange string
	logger   *zap.Logger
}

// NewRabbitMQEventPublisher открывает канал и объявляет topic-exchange событий.
// Ключ маршрутизации - тип события.
func NewRabbitMQEventPublisher(conn *amqp.Connection, exchange string, logger *zap.Logger) (interfaces.EventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("event publisher: failed to open channel: %w", err)
	}
	p, err := NewEventPublisherWithChannel(ch, exchange, logger)
	if err != nil {
		ch.Close()
		return nil, err
	}
	return p, nil
}

// NewEventPublisherWithChannel - то же поверх готового канала.
func NewEventPublisherWithChannel(ch AMQPChannel, exchange string, logger *zap.Logger) (interfaces.EventPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("event publisher: failed to declare exchange '%s': %w", exchange, err)
	}
	logger = logger.Named("EventPublisher")
	logger.Info("Exchange declared", zap.String("exchange", exchange))
	return &rabbitMQPublisher{channel: ch, exchange: exchange, logger: logger}, nil
}

// PublishQuestEvent публикует событие с повторами.
func (p *rabbitMQPublisher) PublishQuestEvent(ctx context.Context, event models.QuestEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal quest event %s: %w", event.Type, err)
	}
	if err := p.publish(ctx, string(event.Type), body); err != nil {
		p.logger.Error("Failed to publish quest event", zap.String("type", string(event.Type)), zap.Error(err))
		return err
	}
	return nil
}

func (p *rabbitMQPublisher) publish(ctx context.Context, routingKey string, body []byte) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			AppId:        appID,
		})
		if err == nil {
			p.logger.Debug("Event published", zap.String("routingKey", routingKey), zap.Int("attempt", attempt))
			return nil
		}
		p.logger.Warn("Publish attempt failed", zap.String("routingKey", routingKey), zap.Int("attempt", attempt), zap.Error(err))
		if attempt == publishAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("publish to exchange %s cancelled: %w", p.exchange, ctx.Err())
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("failed to publish to exchange %s after retries: %w", p.exchange, err)
}

// Close закрывает канал.
func (p *rabbitMQPublisher) Close() error {
	return p.channel.Close()
}

// NopPublisher используется, когда RabbitMQ не настроен.
type NopPublisher struct {
	logger *zap.Logger
}

// NewNopPublisher создает паблишер, который только логирует события.
func NewNopPublisher(logger *zap.Logger) *NopPublisher {
	return &NopPublisher{logger: logger.Named("NopPublisher")}
}

// PublishQuestEvent реализует interfaces.EventPublisher.
func (p *NopPublisher) PublishQuestEvent(_ context.Context, event models.QuestEvent) error {
	p.logger.Debug("Quest event dropped, no broker configured", zap.String("type", string(event.Type)))
	return nil
}

// Close реализует interfaces.EventPublisher.
func (p *NopPublisher) Close() error { return nil }
