package repository

import (
	"context"
	"encoding/json"

	"gratitude_chat_service/internal/notify/domain"
	"gratitude_chat_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// TriggerQueue carries inserted-notification triggers from the fan-out
// writer to the push worker
type TriggerQueue interface {
	Publish(ctx context.Context, record domain.NotificationRecord) error
	// Consume block reading triggers until ctx is done
	Consume(ctx context.Context, handler func(ctx context.Context, record domain.NotificationRecord)) error
}

type kafkaTriggerQueue struct {
	writer *kafka.Writer
	reader *kafka.Reader
}

// NewKafkaTriggerQueue create a TriggerQueue; writer or reader may be nil on
// the side that does not use it
func NewKafkaTriggerQueue(writer *kafka.Writer, reader *kafka.Reader) TriggerQueue {
	return &kafkaTriggerQueue{writer: writer, reader: reader}
}

func (q *kafkaTriggerQueue) Publish(ctx context.Context, record domain.NotificationRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return q.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.RecipientID),
		Value: data,
	})
}

func (q *kafkaTriggerQueue) Consume(ctx context.Context, handler func(ctx context.Context, record domain.NotificationRecord)) error {
	for {
		m, err := q.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		// skip the connection probe records the writer emits at startup
		if string(m.Key) == "ping" {
			continue
		}
		var record domain.NotificationRecord
		if err := json.Unmarshal(m.Value, &record); err != nil {
			logger.Log.Error("trigger unmarshal failed",
				zap.String("key", string(m.Key)),
				zap.Error(err),
			)
			continue
		}
		handler(ctx, record)
	}
}
