package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	skafka "github.com/segmentio/kafka-go"
)

// StockMoved is emitted after a ledger entry has been committed.
type StockMoved struct {
	Reference  string    `json:"reference"`
	LagerID    uint      `json:"lager_id"`
	ArtikelID  uint      `json:"artikel_id"`
	UserID     uint      `json:"user_id"`
	Type       string    `json:"type"`
	Quantity   int       `json:"quantity"`
	Balance    int       `json:"balance"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Key keeps all movements of one article on the same partition.
func (e StockMoved) Key() string {
	return strconv.FormatUint(uint64(e.ArtikelID), 10)
}

// Writer is the part of kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

type Publisher interface {
	PublishStockMoved(ctx context.Context, e StockMoved) error
	Close() error
}

type KafkaPublisher struct {
	writer Writer
}

func NewKafkaPublisher(brokerURL, topic string) *KafkaPublisher {
	w := &skafka.Writer{
		Addr:         skafka.TCP(brokerURL),
		Topic:        topic,
		Balancer:     &skafka.Hash{},
		RequiredAcks: skafka.RequireOne,
	}
	return &KafkaPublisher{writer: w}
}

func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishStockMoved(ctx context.Context, e StockMoved) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal stock moved: %w", err)
	}
	msg := skafka.Message{
		Key:   []byte(e.Key()),
		Value: b,
		Headers: []skafka.Header{
			{Key: "event", Value: []byte("stock.moved")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Println("kafka write error:", err)
		return fmt.Errorf("write stock moved: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop drops every event. Used when KAFKA_BROKER is empty.
type Nop struct{}

func (Nop) PublishStockMoved(context.Context, StockMoved) error { return nil }
func (Nop) Close() error                                        { return nil }
