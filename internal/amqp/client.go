package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"budgetlog/internal/core"
	applog "budgetlog/internal/log"
)

const publishTimeout = 5 * time.Second

// publisher is the part of *amqp091.Channel the client needs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Client publishes tracker notifications to a topic exchange.
type Client struct {
	conn         *amqp091.Connection
	channel      publisher
	exchangeName string
	routingKey   string
	source       string
	logger       *applog.Logger
}

func NewClient(url, exchangeName, routingKey string, logger *applog.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	client := newClient(channel, exchangeName, routingKey, logger)
	client.conn = conn
	return client, nil
}

func newClient(ch publisher, exchangeName, routingKey string, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.FromSlog(slog.Default(), applog.ComponentAMQP)
	}
	host, _ := os.Hostname()
	return &Client{
		channel:      ch,
		exchangeName: exchangeName,
		routingKey:   routingKey,
		source:       host,
		logger:       logger,
	}
}

// Notify publishes n. Routing key is "<routingKey>.<event>" so consumers can
// bind to a subset of events.
func (c *Client) Notify(ctx context.Context, n core.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := NewNotificationMessage(n, c.source).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	key := c.routingKey + "." + n.Event
	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		key,            // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Transient,
			Timestamp:    n.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.DebugContext(ctx, "Published notification",
		"event", n.Event,
		applog.FieldTransactionID, n.TransactionID,
		"exchange", c.exchangeName,
		"routing_key", key)
	return nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
