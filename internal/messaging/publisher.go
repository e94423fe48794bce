package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/calculator"
	"github.com/Fuuurma/FinanceHub-sub001/internal/config"
)

//go:generate mockgen -destination=mocks/mock_publisher.go -package=mocks github.com/Fuuurma/FinanceHub-sub001/internal/messaging EventPublisher

// EventPublisher emits analytics events for other services
type EventPublisher interface {
	PublishDriftAlert(ctx context.Context, status analytics.DriftStatus) (string, error)
	PublishVaRComputed(ctx context.Context, report *calculator.VaRReport) (string, error)
	PublishSessionExecuted(ctx context.Context, session *analytics.RebalancingSession, result *analytics.ExecutionResult) (string, error)
	Close() error
}

// publishChannel is the subset of *amqp.Channel the publisher needs
type publishChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to a topic exchange
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  publishChannel
	exchange string
	logger   *logrus.Logger
	mu       sync.Mutex
}

// NewAMQPPublisher dials RabbitMQ and declares the events exchange
func NewAMQPPublisher(cfg config.RabbitMQConfig, logger *logrus.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	conn, err := Dial(cfg, logger)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareEventsExchange(channel, cfg.EventsExchange); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	logger.WithField("exchange", cfg.EventsExchange).Info("Analytics event publisher initialized")

	return &AMQPPublisher{
		conn:     conn,
		channel:  channel,
		exchange: cfg.EventsExchange,
		logger:   logger,
	}, nil
}

func newPublisherWithChannel(channel publishChannel, exchange string, logger *logrus.Logger) *AMQPPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AMQPPublisher{channel: channel, exchange: exchange, logger: logger}
}

// PublishDriftAlert publishes the classes of a portfolio that left their bands
func (p *AMQPPublisher) PublishDriftAlert(ctx context.Context, status analytics.DriftStatus) (string, error) {
	return p.publish(ctx, RoutingDriftAlert, status.PortfolioID, NewDriftAlert(status))
}

// PublishVaRComputed publishes a summary of a stored VaR report
func (p *AMQPPublisher) PublishVaRComputed(ctx context.Context, report *calculator.VaRReport) (string, error) {
	if report == nil {
		return "", fmt.Errorf("var report is required")
	}
	return p.publish(ctx, RoutingVaRComputed, report.PortfolioID, VaRComputed{
		Method:          report.Method,
		ConfidenceLevel: report.ConfidenceLevel,
		TimeHorizon:     report.TimeHorizon,
		VaRAmount:       report.VaRAmount,
		VaRPercentage:   report.VaRPercentage,
		Fallback:        report.Fallback,
		CalculatedAt:    report.CalculatedAt,
	})
}

// PublishSessionExecuted publishes the outcome of an executed session
func (p *AMQPPublisher) PublishSessionExecuted(ctx context.Context, session *analytics.RebalancingSession, result *analytics.ExecutionResult) (string, error) {
	if session == nil || result == nil {
		return "", fmt.Errorf("session and result are required")
	}
	return p.publish(ctx, RoutingSessionExecuted, session.PortfolioID, SessionExecuted{
		SessionID:      result.SessionID.String(),
		TradesExecuted: result.TradesExecuted,
		TotalValue:     result.TotalValue,
		TaxImpact:      result.TaxImpact,
		CompletedAt:    result.CompletedAt,
	})
}

// publish wraps data in an Event and returns its correlation ID
func (p *AMQPPublisher) publish(ctx context.Context, routingKey, portfolioID string, data interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	correlationID := uuid.New().String()
	now := time.Now().UTC()

	body, err := json.Marshal(Event{
		CorrelationID: correlationID,
		EventType:     routingKey,
		PortfolioID:   portfolioID,
		Source:        sourceName,
		Timestamp:     now,
		Data:          data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	err = p.channel.Publish(
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			CorrelationId: correlationID,
			ContentType:   "application/json",
			Body:          body,
			Timestamp:     now,
			DeliveryMode:  amqp.Persistent,
		},
	)
	p.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	p.logger.WithFields(logrus.Fields{
		"routing_key":    routingKey,
		"portfolio_id":   portfolioID,
		"correlation_id": correlationID,
	}).Debug("Published analytics event")

	return correlationID, nil
}

// Close closes the publisher channel and connection
func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.logger.Warnf("Error closing channel: %v", err)
	}
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Close(); err != nil {
		p.logger.Warnf("Error closing connection: %v", err)
		return err
	}
	p.logger.Info("Analytics event publisher closed")
	return nil
}

// NoopPublisher is used when RabbitMQ is disabled
type NoopPublisher struct {
	logger *logrus.Logger
}

func NewNoopPublisher(logger *logrus.Logger) *NoopPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &NoopPublisher{logger: logger}
}

func (n *NoopPublisher) PublishDriftAlert(_ context.Context, status analytics.DriftStatus) (string, error) {
	n.logger.WithField("portfolio_id", status.PortfolioID).Debug("Event publishing disabled, dropping drift alert")
	return "", nil
}

func (n *NoopPublisher) PublishVaRComputed(_ context.Context, report *calculator.VaRReport) (string, error) {
	return "", nil
}

func (n *NoopPublisher) PublishSessionExecuted(_ context.Context, _ *analytics.RebalancingSession, _ *analytics.ExecutionResult) (string, error) {
	return "", nil
}

func (n *NoopPublisher) Close() error { return nil }

// Dial connects to RabbitMQ, retrying up to the configured number of attempts
func Dial(cfg config.RabbitMQConfig, logger *logrus.Logger) (*amqp.Connection, error) {
	attempts := cfg.MaxReconnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqp.DialConfig(cfg.RabbitMQURL(), amqp.Config{Heartbeat: cfg.Heartbeat})
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if i < attempts {
			logger.WithError(err).Warnf("RabbitMQ connection attempt %d/%d failed, retrying in %s", i, attempts, cfg.ReconnectDelay)
			time.Sleep(cfg.ReconnectDelay)
		}
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", lastErr)
}

func declareEventsExchange(channel *amqp.Channel, exchange string) error {
	err := channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	return nil
}
