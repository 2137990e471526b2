// Package worker schedules recurring game jobs and processes them off a
// NATS JetStream queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// StreamName is the name of the JetStream stream for game triggers.
	StreamName = "SYNAPSE_JOBS"
	// SubjectTriggers covers all trigger subjects.
	SubjectTriggers = "triggers.>"
	// SubjectTriggersNew is the subject trigger messages are published to.
	SubjectTriggersNew = "triggers.new"
	// ConsumerName is the name of the durable consumer.
	ConsumerName = "trigger-workers"
)

// Trigger kinds carried on the queue.
const (
	TriggerWeeklyRaid  = "weekly_raid"
	TriggerDailyReset  = "daily_reset"
	TriggerSanityCheck = "sanity_check"
)

// Trigger is one scheduled job on the queue.
type Trigger struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ClanID      string    `json:"clan_id,omitempty"`
	BossHP      int       `json:"boss_hp,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// NewTrigger creates a trigger with a fresh id.
func NewTrigger(kind string) Trigger {
	return Trigger{
		ID:          uuid.New().String(),
		Type:        kind,
		ScheduledAt: time.Now().UTC(),
	}
}

// QueueConfig holds NATS client configuration.
type QueueConfig struct {
	URL             string
	MaxDeliverCount int
	AckWait         time.Duration
}

// DefaultQueueConfig returns the default NATS configuration.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		URL:             "nats://localhost:4222",
		MaxDeliverCount: 5,
		AckWait:         30 * time.Second,
	}
}

// Queue provides JetStream operations for the trigger stream.
type Queue struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	stream   jetstream.Stream
	consumer jetstream.Consumer
	natsURL  string
}

// NewQueue creates a queue client; Connect must be called before use.
func NewQueue(cfg QueueConfig) *Queue {
	return &Queue{natsURL: cfg.URL}
}

// Connect establishes the NATS connection and ensures the stream exists.
func (q *Queue) Connect(ctx context.Context) error {
	nc, err := nats.Connect(q.natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	q.nc = nc

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}
	q.js = js

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Scheduled game triggers",
		Subjects:    []string{SubjectTriggers},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	q.stream = stream

	log.Printf("[worker] connected to NATS at %s, stream %s ready", q.natsURL, StreamName)
	return nil
}

// CreateConsumer creates the durable consumer for trigger processing.
func (q *Queue) CreateConsumer(ctx context.Context, cfg QueueConfig) error {
	consumer, err := q.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          ConsumerName,
		Durable:       ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       cfg.AckWait,
		MaxDeliver:    cfg.MaxDeliverCount,
		FilterSubject: SubjectTriggersNew,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	q.consumer = consumer

	log.Printf("[worker] consumer %s created", ConsumerName)
	return nil
}

// Publish puts a trigger on the queue.
func (q *Queue) Publish(ctx context.Context, trigger Trigger) error {
	if q.js == nil {
		return fmt.Errorf("queue not connected")
	}

	data, err := json.Marshal(trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger: %w", err)
	}

	ack, err := q.js.Publish(ctx, SubjectTriggersNew, data)
	if err != nil {
		return fmt.Errorf("failed to publish trigger: %w", err)
	}

	log.Printf("[worker] published %s trigger %s, sequence %d", trigger.Type, trigger.ID, ack.Sequence)
	return nil
}

// Subscribe starts consuming triggers and returns the message channel.
func (q *Queue) Subscribe(ctx context.Context) (<-chan *ConsumeMessage, error) {
	if q.consumer == nil {
		return nil, fmt.Errorf("consumer not initialized")
	}

	msgChan := make(chan *ConsumeMessage, 100)

	go func() {
		defer close(msgChan)

		iter, err := q.consumer.Messages()
		if err != nil {
			log.Printf("[worker] error creating message iterator: %v", err)
			return
		}
		defer iter.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[worker] consumer context cancelled, stopping")
				return
			default:
				msg, err := iter.Next()
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("[worker] error fetching message: %v", err)
					continue
				}

				var trigger Trigger
				if err := json.Unmarshal(msg.Data(), &trigger); err != nil {
					log.Printf("[worker] error unmarshaling trigger: %v", err)
					if err := msg.Term(); err != nil {
						log.Printf("[worker] error terminating message: %v", err)
					}
					continue
				}

				metadata, _ := msg.Metadata()
				deliveryCount := 1
				if metadata != nil {
					deliveryCount = int(metadata.NumDelivered)
				}

				msgChan <- &ConsumeMessage{
					Trigger:       trigger,
					DeliveryCount: deliveryCount,
					msg:           msg,
				}
			}
		}
	}()

	return msgChan, nil
}

// ConsumeMessage wraps a trigger with acknowledgment methods.
type ConsumeMessage struct {
	Trigger       Trigger
	DeliveryCount int
	msg           jetstream.Msg
}

// Ack acknowledges successful processing of the message.
func (m *ConsumeMessage) Ack() error {
	return m.msg.Ack()
}

// NakWithDelay negatively acknowledges with a delay before redelivery.
func (m *ConsumeMessage) NakWithDelay(delay time.Duration) error {
	return m.msg.NakWithDelay(delay)
}

// Term terminates the message (no more redeliveries).
func (m *ConsumeMessage) Term() error {
	return m.msg.Term()
}

// Close closes the NATS connection.
func (q *Queue) Close() error {
	if q.nc != nil {
		q.nc.Close()
		log.Println("[worker] NATS connection closed")
	}
	return nil
}

// IsConnected returns true if connected to NATS.
func (q *Queue) IsConnected() bool {
	return q.nc != nil && q.nc.IsConnected()
}
