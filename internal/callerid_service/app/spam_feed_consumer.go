package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/jdialer/commhub/internal/callerid_service/domain"
)

// SpamProfileWriter stores spam profiles.
type SpamProfileWriter interface {
	UpsertProfile(ctx context.Context, profile domain.SpamProfile) error
}

// Subscriber is the part of the NATS client the consumer needs.
type Subscriber interface {
	Subscribe(ctx context.Context, subject string, queue string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// SpamFeedEvent is one entry published on the spam feed subject.
type SpamFeedEvent struct {
	Number          string  `json:"number"`
	ConfidenceScore int     `json:"confidence_score"`
	Reason          *string `json:"reason,omitempty"`
	ShouldBlock     bool    `json:"should_block"`
	Source          string  `json:"source"`
}

// SpamFeedConsumer keeps the spam block list in sync with a NATS feed.
type SpamFeedConsumer struct {
	subscriber Subscriber
	writer     SpamProfileWriter
	logger     *slog.Logger
}

// NewSpamFeedConsumer does not subscribe until Start is called.
func NewSpamFeedConsumer(subscriber Subscriber, writer SpamProfileWriter, logger *slog.Logger) *SpamFeedConsumer {
	return &SpamFeedConsumer{
		subscriber: subscriber,
		writer:     writer,
		logger:     logger.With("component", "spam_feed_consumer"),
	}
}

// Start subscribes to subject in queueGroup until ctx is cancelled.
func (c *SpamFeedConsumer) Start(ctx context.Context, subject, queueGroup string) error {
	_, err := c.subscriber.Subscribe(ctx, subject, queueGroup, func(msg *nats.Msg) {
		c.HandleMessage(ctx, msg)
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "Spam feed subscription failed", "subject", subject, "error", err)
		return err
	}
	c.logger.InfoContext(ctx, "Spam feed consumer started", "subject", subject, "queue_group", queueGroup)
	return nil
}

// HandleMessage decodes and stores one feed entry. Bad entries are logged and dropped.
func (c *SpamFeedConsumer) HandleMessage(ctx context.Context, msg *nats.Msg) {
	var event SpamFeedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		spamFeedMessagesCounter.WithLabelValues("invalid").Inc()
		c.logger.ErrorContext(ctx, "Failed to decode spam feed event", "subject", msg.Subject, "error", err)
		return
	}

	err := c.writer.UpsertProfile(ctx, domain.SpamProfile{
		NormalizedNumber: event.Number,
		ConfidenceScore:  event.ConfidenceScore,
		Reason:           event.Reason,
		ShouldBlock:      event.ShouldBlock,
		Source:           event.Source,
	})
	if err != nil {
		status := "error"
		if errors.Is(err, domain.ErrInvalidNumber) {
			status = "invalid"
		}
		spamFeedMessagesCounter.WithLabelValues(status).Inc()
		c.logger.WarnContext(ctx, "Spam feed event not stored", "number", event.Number, "error", err)
		return
	}
	spamFeedMessagesCounter.WithLabelValues("stored").Inc()
}
