// Package messaging publishes media tasks for the image and audio workers.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"tale-forge/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	DefaultMediaExchange = "tale_forge.media"
	publishTimeout       = 10 * time.Second
	publishAttempts      = 3
)

// RoutingKey returns the routing key for a media kind, e.g. "media.image".
func RoutingKey(kind models.MediaKind) string {
	return "media." + string(kind)
}

// QueueName returns the durable queue bound for a media kind.
func QueueName(exchange string, kind models.MediaKind) string {
	return exchange + "." + string(kind)
}

// MediaTaskPublisher отправляет задачи генерации картинок и озвучки.
type MediaTaskPublisher interface {
	PublishMediaTask(ctx context.Context, task models.MediaTask) error
}

type rabbitMQPublisher struct {
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

var _ MediaTaskPublisher = (*rabbitMQPublisher)(nil)

// NewRabbitMQMediaPublisher opens a confirm-mode channel and declares the
// direct exchange with one durable queue per media kind.
func NewRabbitMQMediaPublisher(conn *amqp.Connection, exchange string, logger *zap.Logger) (*rabbitMQPublisher, error) {
	if exchange == "" {
		exchange = DefaultMediaExchange
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("media publisher: не удалось открыть канал: %w", err)
	}
	if err := declareTopology(ch, exchange); err != nil {
		ch.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("media publisher: confirm mode: %w", err)
	}
	logger.Info("Media publisher ready", zap.String("exchange", exchange))
	return &rabbitMQPublisher{channel: ch, exchange: exchange, logger: logger.Named("MediaPublisher")}, nil
}

func declareTopology(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("media publisher: не удалось объявить exchange '%s': %w", exchange, err)
	}
	for _, kind := range []models.MediaKind{models.MediaKindImage, models.MediaKindAudio} {
		queue := QueueName(exchange, kind)
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("media publisher: не удалось объявить очередь '%s': %w", queue, err)
		}
		if err := ch.QueueBind(queue, RoutingKey(kind), exchange, false, nil); err != nil {
			return fmt.Errorf("media publisher: bind '%s': %w", queue, err)
		}
	}
	return nil
}

func (p *rabbitMQPublisher) PublishMediaTask(ctx context.Context, task models.MediaTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("ошибка сериализации MediaTask %s: %w", task.TaskID, err)
	}
	log := p.logger.With(zap.String("taskID", task.TaskID.String()), zap.String("kind", string(task.Kind)))

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	for attempt := 1; attempt <= publishAttempts; attempt++ {
		err = p.publishOnce(ctx, RoutingKey(task.Kind), task.TaskID.String(), body)
		if err == nil {
			log.Info("Media task published", zap.Int("attempt", attempt))
			return nil
		}
		log.Warn("Publish attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == publishAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", models.ErrPublishFailed, ctx.Err())
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %w", models.ErrPublishFailed, task.TaskID, publishAttempts, err)
}

func (p *rabbitMQPublisher) publishOnce(ctx context.Context, routingKey, messageID string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		return errors.New("канал RabbitMQ закрыт")
	}
	confirm, err := p.channel.PublishWithDeferredConfirmWithContext(ctx,
		p.exchange,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now(),
			AppId:        "tale-forge",
			Body:         body,
		},
	)
	if err != nil {
		return err
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return errors.New("broker nacked the message")
	}
	return nil
}

// Close closes the publisher's channel.
func (p *rabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil || p.channel.IsClosed() {
		return nil
	}
	return p.channel.Close()
}
