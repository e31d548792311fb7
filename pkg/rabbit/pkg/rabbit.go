package rabbit

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logging "interviewace/pkg/logger/pkg"
)

type Rabbit interface {
	Consume(ctx context.Context, consumeFunction func(ctx context.Context, msg amqp.Delivery) error) error
	Publish(ctx context.Context, body []byte) error
}

type Config struct {
	Address      string
	Port         int32
	Username     string
	Password     string
	ConsumeQueue string
	PublicQueue  string
	MaxConsumer  int32
	ExpireTime   int32 // milliseconds
}

// ReadConfig returns nil when messaging is disabled.
func ReadConfig() *Config {
	if !viper.GetBool("rabbitmq.enabled") {
		return nil
	}
	viper.BindEnv("rabbitmq.password", "RABBITMQ_PASSWORD")

	return &Config{
		Address:      viper.GetString("rabbitmq.address"),
		Port:         viper.GetInt32("rabbitmq.port"),
		Username:     viper.GetString("rabbitmq.username"),
		Password:     viper.GetString("rabbitmq.password"),
		ConsumeQueue: viper.GetString("rabbitmq.consume_queue"),
		PublicQueue:  viper.GetString("rabbitmq.public_queue"),
		MaxConsumer:  viper.GetInt32("rabbitmq.max_consumer"),
		ExpireTime:   viper.GetInt32("rabbitmq.expire_time"),
	}
}

type rabbit struct {
	connectionUrl string
	consumeQueue  string
	publicQueue   string
	maxConsumer   int32
	expireTime    int32
}

func New(cfg *Config) Rabbit {
	if cfg == nil {
		return &Dummy{}
	}

	maxConsumer := cfg.MaxConsumer
	if maxConsumer <= 0 {
		maxConsumer = 1
	}

	connectionUrl := fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.Username, cfg.Password, cfg.Address, cfg.Port)
	return &rabbit{
		connectionUrl: connectionUrl,
		consumeQueue:  cfg.ConsumeQueue,
		publicQueue:   cfg.PublicQueue,
		maxConsumer:   maxConsumer,
		expireTime:    cfg.ExpireTime,
	}
}

func (r *rabbit) processMessage(ctx context.Context, msg amqp.Delivery, sem chan struct{}, consumeFunction func(ctx context.Context, msg amqp.Delivery) error) {
	defer func() { <-sem }()
	logger := logging.Logger(ctx).With(zap.String("queue", r.consumeQueue), zap.Uint64("deliveryTag", msg.DeliveryTag))

	if err := consumeFunction(ctx, msg); err != nil {
		logger.Error("Failed to process message", zap.Error(err))
		msg.Nack(false, !msg.Redelivered)
		return
	}
	logger.Debug("Acknowledged message")
	msg.Ack(false)
}

// Consume blocks until ctx is cancelled or the broker closes the channel.
func (r *rabbit) Consume(ctx context.Context, consumeFunction func(ctx context.Context, msg amqp.Delivery) error) error {
	conn, err := amqp.Dial(r.connectionUrl)
	if err != nil {
		return err
	}
	defer conn.Close()

	logging.Logger(ctx).Info("Connected to RabbitMQ", zap.String("queue", r.consumeQueue))

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(r.consumeQueue, true, false, false, false, nil)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	sem := make(chan struct{}, r.maxConsumer)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("rabbitmq channel closed")
			}
			sem <- struct{}{}
			go r.processMessage(ctx, msg, sem, consumeFunction)
		}
	}
}

func (r *rabbit) Publish(ctx context.Context, body []byte) error {
	conn, err := amqp.Dial(r.connectionUrl)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(r.publicQueue, true, false, false, false, nil)
	if err != nil {
		return err
	}

	publishing := amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	}
	if r.expireTime > 0 {
		publishing.Expiration = fmt.Sprintf("%d", r.expireTime)
	}
	if err := ch.PublishWithContext(ctx, "", q.Name, false, false, publishing); err != nil {
		return err
	}

	logging.Logger(ctx).Debug("Published message", zap.String("queue", q.Name), zap.Int("bytes", len(body)))
	return nil
}
