package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"exposure-server/shared/interfaces"
	"exposure-server/shared/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	publishTimeout  = 10 * time.Second
	publishAttempts = 3
	appID           = "exposure-server"
)

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// rabbitMQSessionEventPublisher sends session records to the collaborator queue.
type rabbitMQSessionEventPublisher struct {
	channel   amqpChannel
	queueName string
	logger    *zap.Logger
}

var _ interfaces.SessionEventPublisher = (*rabbitMQSessionEventPublisher)(nil)

// NewRabbitMQSessionEventPublisher opens a channel on conn and declares the durable queue.
func NewRabbitMQSessionEventPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (*rabbitMQSessionEventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("session event publisher: failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("session event publisher: failed to declare queue '%s': %w", queueName, err)
	}
	logger.Info("Session event queue declared", zap.String("queue", queueName))
	return newPublisher(ch, queueName, logger), nil
}

func newPublisher(ch amqpChannel, queueName string, logger *zap.Logger) *rabbitMQSessionEventPublisher {
	return &rabbitMQSessionEventPublisher{
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("SessionEventPublisher"),
	}
}

// PublishSessionExit publishes the record of an abandoned session.
func (p *rabbitMQSessionEventPublisher) PublishSessionExit(ctx context.Context, record models.SessionExitRecord) error {
	return p.publishJSON(ctx, string(record.Type), record.PatientID, record)
}

// PublishSessionCompleted publishes the record of a finished session.
func (p *rabbitMQSessionEventPublisher) PublishSessionCompleted(ctx context.Context, record models.SessionCompletedRecord) error {
	return p.publishJSON(ctx, string(record.Type), record.PatientID, record)
}

// PublishSessionFeedback publishes a post-session questionnaire.
func (p *rabbitMQSessionEventPublisher) PublishSessionFeedback(ctx context.Context, feedback models.SessionFeedback) error {
	return p.publishJSON(ctx, string(feedback.Type), feedback.PatientID, feedback)
}

// Close closes the underlying channel.
func (p *rabbitMQSessionEventPublisher) Close() error {
	return p.channel.Close()
}

func (p *rabbitMQSessionEventPublisher) publishJSON(ctx context.Context, messageType, patientID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Failed to marshal message", zap.String("type", messageType), zap.String("patientID", patientID), zap.Error(err))
		return fmt.Errorf("failed to marshal %s for %s: %w", messageType, patientID, err)
	}
	if err := p.publishMessage(ctx, messageType, body); err != nil {
		p.logger.Error("Failed to publish message", zap.String("type", messageType), zap.String("patientID", patientID), zap.Error(err))
		return fmt.Errorf("failed to publish %s for %s: %w", messageType, patientID, err)
	}
	p.logger.Debug("Message published", zap.String("type", messageType), zap.String("patientID", patientID))
	return nil
}

func (p *rabbitMQSessionEventPublisher) publishMessage(ctx context.Context, messageType string, body []byte) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // default exchange
			p.queueName, // routing key
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Type:         messageType,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        appID,
			},
		)
		if err == nil {
			return nil
		}
		p.logger.Warn("Publish attempt failed",
			zap.String("queue", p.queueName),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("publish to %s cancelled: %w", p.queueName, ctx.Err())
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("publish to %s failed after %d attempts: %w", p.queueName, publishAttempts, err)
}

// Connect dials RabbitMQ, retrying up to maxRetries times.
func Connect(url string, maxRetries int, retryDelay time.Duration, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
