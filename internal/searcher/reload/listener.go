package reload

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
)

// Listener reloads the holder when the indexer announces a new file on
// Kafka.
type Listener struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func NewListener(consumer *kafka.Consumer) *Listener {
	return &Listener{
		consumer: consumer,
		logger:   logger.WithComponent("index-published-listener"),
	}
}

// Start consumes until ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	l.logger.Info("listening for published indexes")
	return l.consumer.Start(ctx)
}

// HandlePublished returns a MessageHandler that decodes a segment.Published
// event and loads the newest index file. Undecodable messages are logged and
// committed; a failed load is returned so the message is not committed.
func HandlePublished(h *Holder) kafka.MessageHandler {
	log := logger.WithComponent("index-published-listener")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[segment.Published](value)
		if err != nil {
			log.Error("failed to decode published event", "error", err, "key", string(key))
			return nil
		}
		log.Debug("index published",
			"name", event.Name,
			"documents", event.DocCount,
			"terms", event.TermCount,
		)
		if cur := h.Current(); cur != nil && cur.Generation >= event.Name {
			log.Debug("published index already served", "name", event.Name, "current", cur.Generation)
			return nil
		}
		_, err = h.LoadLatest(ctx, TriggerKafka)
		return err
	}
}
