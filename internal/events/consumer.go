package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const sinkTimeout = 10 * time.Second

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Sink receives the raw JSON of one event.
type Sink func(ctx context.Context, raw []byte) error

// NewKafkaReader returns a group reader for the intake topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// Consume reads messages until ctx is cancelled and hands each to sink. Sink failures are logged and
// the message is skipped. Returns the number of messages delivered to the sink.
func Consume(ctx context.Context, r MessageReader, sink Sink, logger *zap.Logger) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	delivered := 0
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return delivered
			}
			logger.Warn("events: kafka read", zap.Error(err))
			continue
		}
		sctx, cancel := context.WithTimeout(ctx, sinkTimeout)
		err = sink(sctx, msg.Value)
		cancel()
		if err != nil {
			logger.Warn("events: sink failed", zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		delivered++
	}
}
