package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/abgdnv/shopbot/pkg/config"
	"github.com/abgdnv/shopbot/pkg/messaging/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"
)

// Start initializes the NATS JetStream consumer and starts multiple worker
// goroutines that hand order events to the provisioner.
func Start(ctx context.Context, js jetstream.JetStream, subscriberCfg config.SubscriberConfig, provisioner *Provisioner, logger *slog.Logger) error {
	cfg := jetstream.ConsumerConfig{
		FilterSubject: subscriberCfg.Subject,
		Durable:       subscriberCfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	consumer, err := js.CreateOrUpdateConsumer(ctx, subscriberCfg.Stream, cfg)
	if err != nil {
		return err
	}
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < subscriberCfg.Workers; i++ {
		g.Go(func() error {
			return runWorker(gCtx, consumer, subscriberCfg, provisioner, logger)
		})
	}
	return g.Wait()
}

// runWorker fetches messages from the NATS JetStream consumer and processes them.
func runWorker(ctx context.Context, consumer jetstream.Consumer, cfg config.SubscriberConfig, provisioner *Provisioner, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			// ctx was cancelled or timed out (e.g., application shutdown)
			return ctx.Err()
		default:
			batch, err := consumer.Fetch(cfg.Batch, jetstream.FetchMaxWait(cfg.Timeout))
			if err != nil {
				// a fetch timeout just means no pending orders
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				logger.Error("failed to fetch messages", "error", err)
				time.Sleep(cfg.Interval)
				continue
			}
			for msg := range batch.Messages() {
				HandleMessage(ctx, msg, provisioner, logger)
			}
		}
	}
}

// AckableMsg is the part of jetstream.Msg that HandleMessage needs.
type AckableMsg interface {
	Data() []byte
	Subject() string
	Ack() error
	Nak() error
}

// HandleMessage processes a single order event. Malformed payloads and
// gateway failures are Nak'd so the event is redelivered.
func HandleMessage(ctx context.Context, msg AckableMsg, provisioner *Provisioner, logger *slog.Logger) {
	if msg == nil {
		logger.Error("received nil message")
		return
	}
	var event events.OrderCreatedEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error("failed to unmarshal message", "error", err, "subject", msg.Subject())
		if err := msg.Nak(); err != nil {
			logger.Error("failed to nack message", "error", err)
		}
		return
	}

	logger.Info("received order created event",
		slog.String("subject", msg.Subject()),
		slog.String("order_id", event.OrderID),
		slog.String("user_id", event.UserID),
		slog.String("created_at", event.CreatedAt.Format(time.RFC3339)))

	if err := provisioner.Provision(ctx, event); err != nil {
		logger.Error("failed to provision order channel", "order_id", event.OrderID, "error", err)
		if err := msg.Nak(); err != nil {
			logger.Error("failed to nack message", "error", err)
		}
		return
	}

	if err := msg.Ack(); err != nil {
		logger.Error("failed to ack message", "error", err)
	}
}
