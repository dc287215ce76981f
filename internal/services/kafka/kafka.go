package kafka

import (
	"context"
	"time"

	"github.com/iwtcode/ppmacAdapter/internal/config"
	"github.com/iwtcode/ppmacAdapter/internal/interfaces"

	"github.com/segmentio/kafka-go"
)

// Точки скана идут потоком по одной, поэтому пакет не ждет накопления.
const batchTimeout = 10 * time.Millisecond

type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer создает новый экземпляр продюсера Kafka
func NewKafkaProducer(cfg *config.AppConfig) (interfaces.KafkaService, error) {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.KafkaBroker),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaProducer{writer: writer}, nil
}

// Produce отправляет сообщение в Kafka. События одной сессии попадают
// в одну партицию и сохраняют порядок.
func (p *KafkaProducer) Produce(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx,
		kafka.Message{
			Key:   key,
			Value: value,
		},
	)
}

// Close закрывает соединение с Kafka
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
