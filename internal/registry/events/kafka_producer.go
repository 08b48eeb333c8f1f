package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gartstein/redflag/internal/registry/metrics"
	"github.com/gartstein/redflag/internal/registry/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	AccountRegistered    EventType = "account_registered"
	AccountStatusChanged EventType = "account_status_changed"
	CandidateInvited     EventType = "candidate_invited"
	CandidateVerified    EventType = "candidate_verified"
	EntryAppended        EventType = "entry_appended"
	EntryEdited          EventType = "entry_edited"
	EntryDeleted         EventType = "entry_deleted"
	CommentAdded         EventType = "comment_added"
	CommentDeleted       EventType = "comment_deleted"
)

// Event is one registry change. Only the fields relevant to Type are set.
type Event struct {
	Type       EventType             `json:"type"`
	ActorRole  models.ActorRole      `json:"actor_role,omitempty"`
	ActorID    uuid.UUID             `json:"actor_id"`
	OccurredAt time.Time             `json:"occurred_at"`
	Account    *models.Account       `json:"account,omitempty"`
	Candidate  *models.Candidate     `json:"candidate,omitempty"`
	Entry      *models.TimelineEntry `json:"entry,omitempty"`
	Comment    *models.Comment       `json:"comment,omitempty"`
	// PreviousStatus is set on account_status_changed.
	PreviousStatus models.AccountStatus `json:"previous_status,omitempty"`
}

// Key partitions events per candidate so one timeline stays ordered.
func (ev Event) Key() string {
	switch {
	case ev.Entry != nil:
		return ev.Entry.CandidateID.String()
	case ev.Candidate != nil:
		return ev.Candidate.ID.String()
	case ev.Account != nil:
		return ev.Account.ID.String()
	default:
		return ""
	}
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
}

// EnsureTopic creates topic on the first broker. An existing topic is not an error.
func EnsureTopic(brokers []string, topic string, partitions int, logger *zap.Logger) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}
	return nil
}

func NewProducer(brokers []string, topic string, bufferSize int, logger *zap.Logger) *Producer {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	p := &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			Topic:                  topic,
			AllowAutoTopicCreation: true,
		},
		events:    make(chan Event, bufferSize),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
	}

	go p.eventLoop()
	return p
}

// Produce enqueues ev without blocking. A full queue drops the event.
func (p *Producer) Produce(ev Event) {
	select {
	case p.events <- ev:
	default:
		metrics.RecordEventDropped(string(ev.Type))
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(ev.Type)),
			zap.String("key", ev.Key()),
		)
	}
}

func (p *Producer) eventLoop() {
	for {
		select {
		case ev := <-p.events:
			p.sendEvent(context.Background(), ev)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, ev Event) {
	value, err := jsonMarshal(ev)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("key", ev.Key()),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Key()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	})
	metrics.RecordEvent(string(ev.Type), err == nil)
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(ev.Type)),
			zap.String("key", ev.Key()),
		)
	}
}

func (p *Producer) Close() {
	close(p.closeChan)
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}

// NopProducer discards events. It backs the registry when kafka is disabled.
type NopProducer struct{}

func (NopProducer) Produce(Event) {}
