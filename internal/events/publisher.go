// Package events publishes ledger changes for downstream consumers
// (notifications, analytics). Publishing happens after commit and never
// fails the operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TransactionCompleted = "transaction.completed"
	TransactionPending   = "transaction.pending"
	TransactionFailed    = "transaction.failed"
	CashbackCredited     = "cashback.credited"
	DepositCredited      = "deposit.credited"
	RevenueCollected     = "revenue.collected"
)

type Event struct {
	Name      string          `json:"event"`
	UserID    string          `json:"userId"`
	Reference string          `json:"reference"`
	Type      string          `json:"type,omitempty"`
	Service   string          `json:"service,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
	Status    string          `json:"status,omitempty"`
	At        time.Time       `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, events ...Event)
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, ...Event) {}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes events keyed by user id so a user's events stay ordered
// within a partition.
type KafkaPublisher struct {
	writer  messageWriter
	logger  *zap.Logger
	timeout time.Duration
}

// NewKafkaWriter returns nil when no brokers are configured.
func NewKafkaWriter(brokers []string, topic string, logger *zap.Logger) *kafka.Writer {
	if len(brokers) == 0 {
		return nil
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Sugar().Errorf(msg, args...)
		}),
	}
}

// NewKafkaPublisher falls back to Noop when writer is nil.
func NewKafkaPublisher(writer *kafka.Writer, logger *zap.Logger) Publisher {
	if writer == nil {
		return Noop{}
	}
	return &KafkaPublisher{writer: writer, logger: logger, timeout: 5 * time.Second}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evts ...Event) {
	msgs := make([]kafka.Message, 0, len(evts))
	for _, e := range evts {
		data, err := json.Marshal(e)
		if err != nil {
			p.logger.Error("failed to marshal event", zap.String("event", e.Name), zap.Error(err))
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.UserID),
			Value: data,
			Time:  e.At,
		})
	}
	if len(msgs) == 0 {
		return
	}

	// detached from the request so a finished HTTP call does not cancel delivery
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(wctx, msgs...); err != nil {
		p.logger.Error("failed to publish ledger events",
			zap.Error(err),
			zap.Int("count", len(msgs)),
		)
	}
}
