package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"voxeval/pkg/logger"
	"voxeval/pkg/resilience"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	QueueNameEvaluation = "evaluation"
	ExchangeName        = "voxeval"

	consumerTag = "voxeval-worker"
)

// ErrDeliveriesClosed means the broker closed the delivery channel, usually
// because the connection dropped.
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Handler processes one message body. Returning a resilience.Permanent
// error drops the message; any other error requeues it.
type Handler func(ctx context.Context, body []byte) error

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	url     string
}

// NewRabbitMQ connects and declares the exchange and the evaluation queue.
func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declare(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("RabbitMQ connected successfully")

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
		url:     url,
	}, nil
}

func declare(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		ExchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		QueueNameEvaluation, // name
		true,                // durable
		false,               // delete when unused
		false,               // exclusive
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = ch.QueueBind(
		QueueNameEvaluation, // queue name
		QueueNameEvaluation, // routing key
		ExchangeName,        // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

// Publish publishes a message to the queue
func (r *RabbitMQ) Publish(ctx context.Context, queueName string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := r.channel.PublishWithContext(
		ctx,
		ExchangeName, // exchange
		queueName,    // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logger.Debug("Message published to queue",
		zap.String("queue", queueName),
		zap.Int("size", len(body)))

	return nil
}

// PublishTask publishes an EvaluationTask to the evaluation queue
func (r *RabbitMQ) PublishTask(ctx context.Context, task *EvaluationTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	return r.Publish(ctx, QueueNameEvaluation, body)
}

// Consume delivers messages to handler with at most concurrency handlers
// running at once. It returns nil once ctx is cancelled and every running
// handler has finished.
func (r *RabbitMQ) Consume(ctx context.Context, queueName string, concurrency int, handler Handler) error {
	if concurrency < 1 {
		concurrency = 1
	}

	err := r.channel.Qos(
		concurrency, // prefetch count
		0,           // prefetch size
		false,       // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := r.channel.Consume(
		queueName,   // queue
		consumerTag, // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Info("Starting to consume messages",
		zap.String("queue", queueName),
		zap.Int("concurrency", concurrency))

	err = serve(ctx, msgs, concurrency, handler)
	if cancelErr := r.channel.Cancel(consumerTag, false); cancelErr != nil && err == nil {
		logger.Warn("Failed to cancel consumer", zap.Error(cancelErr))
	}
	return err
}

func serve(ctx context.Context, msgs <-chan amqp.Delivery, concurrency int, handler Handler) error {
	var g errgroup.Group
	g.SetLimit(concurrency)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return nil
		case msg, ok := <-msgs:
			if !ok {
				_ = g.Wait()
				return ErrDeliveriesClosed
			}
			g.Go(func() error {
				deliver(ctx, msg, handler)
				return nil
			})
		}
	}
}

func deliver(ctx context.Context, msg amqp.Delivery, handler Handler) {
	logger.Debug("Received message", zap.Int("size", len(msg.Body)), zap.Uint64("delivery_tag", msg.DeliveryTag))

	err := handler(ctx, msg.Body)

	var ackErr error
	switch {
	case err == nil:
		ackErr = msg.Ack(false)
	case resilience.IsPermanent(err):
		logger.Error("Dropping message after permanent failure", zap.Error(err))
		ackErr = msg.Nack(false, false)
	default:
		logger.Error("Failed to handle message, requeueing", zap.Error(err))
		ackErr = msg.Nack(false, true)
	}
	if ackErr != nil {
		logger.Error("Failed to acknowledge message", zap.Error(ackErr))
	}
}

// Close RabbitMQ connection
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
