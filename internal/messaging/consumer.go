package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"

	"github.com/Fuuurma/FinanceHub-sub001/internal/config"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// RecalculationHandler runs the drift check for one portfolio
type RecalculationHandler func(ctx context.Context, portfolioID string) error

// RecalculationConsumer consumes portfolio recalculation requests
type RecalculationConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     config.RabbitMQConfig
	handler RecalculationHandler
	logger  *logrus.Logger
	wg      sync.WaitGroup
}

// NewRecalculationConsumer declares the recalculation queue and binds it to
// the events exchange
func NewRecalculationConsumer(cfg config.RabbitMQConfig, handler RecalculationHandler, logger *logrus.Logger) (*RecalculationConsumer, error) {
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

	queue, err := channel.QueueDeclare(
		cfg.RecalcQueue, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		amqp.Table{
			"x-dead-letter-exchange": cfg.EventsExchange + ".dlx",
		},
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(queue.Name, cfg.RecalcRoutingKey, cfg.EventsExchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	if cfg.PrefetchCount > 0 {
		if err := channel.Qos(cfg.PrefetchCount, 0, false); err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to set qos: %w", err)
		}
	}

	logger.WithField("queue", queue.Name).Info("Recalculation consumer initialized")

	return &RecalculationConsumer{
		conn:    conn,
		channel: channel,
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}, nil
}

// Start consumes recalculation requests in the background until ctx is done
func (c *RecalculationConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.cfg.RecalcQueue, // queue
		c.cfg.ConsumerTag, // consumer tag
		false,             // auto-ack
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Recalculation consumer started")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Recalculation consumer shutting down")
				return

			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn("Message channel closed")
					return
				}
				c.handleDelivery(ctx, msg)
			}
		}
	}()

	return nil
}

// handleDelivery acks processed and skipped messages, dead-letters malformed
// ones and requeues transient failures once
func (c *RecalculationConsumer) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	var req RecalculationRequest
	if err := json.Unmarshal(msg.Body, &req); err != nil || strings.TrimSpace(req.PortfolioID) == "" {
		c.logger.WithField("body", string(msg.Body)).Error("Malformed recalculation request")
		msg.Nack(false, false)
		return
	}

	log := c.logger.WithFields(logrus.Fields{
		"portfolio_id":   req.PortfolioID,
		"correlation_id": req.CorrelationID,
	})

	err := c.handler(ctx, req.PortfolioID)
	switch {
	case err == nil:
		msg.Ack(false)
	case !numeric.IsFatal(err):
		log.WithError(err).Info("Skipping recalculation")
		msg.Ack(false)
	case msg.Redelivered:
		log.WithError(err).Error("Recalculation failed after redelivery")
		msg.Nack(false, false)
	default:
		log.WithError(err).Warn("Recalculation failed, requeueing")
		msg.Nack(false, true)
	}
}

// Close waits for the consume loop and closes the channel and connection
func (c *RecalculationConsumer) Close() error {
	if err := c.channel.Close(); err != nil {
		c.logger.Warnf("Error closing channel: %v", err)
	}
	c.wg.Wait()
	if err := c.conn.Close(); err != nil {
		c.logger.Warnf("Error closing connection: %v", err)
		return err
	}
	c.logger.Info("Recalculation consumer closed")
	return nil
}
