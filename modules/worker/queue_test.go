package worker

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

// setupTestQueue connects to a local NATS server or skips the test.
func setupTestQueue(t *testing.T) *Queue {
	t.Helper()

	cfg := DefaultQueueConfig()
	probe, err := nats.Connect(cfg.URL, nats.Timeout(time.Second))
	if err != nil {
		t.Skipf("NATS not available at %s: %v", cfg.URL, err)
	}
	probe.Close()

	q := NewQueue(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Connect(ctx); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := q.CreateConsumer(ctx, cfg); err != nil {
		t.Fatalf("CreateConsumer() error: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func TestQueuePublishSubscribe(t *testing.T) {
	q := setupTestQueue(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msgChan, err := q.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	trigger := NewTrigger(TriggerWeeklyRaid)
	trigger.ClanID = "7"
	trigger.BossHP = 500
	if err := q.Publish(ctx, trigger); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	select {
	case msg := <-msgChan:
		if msg.Trigger.ID != trigger.ID {
			t.Errorf("trigger id = %q, want %q", msg.Trigger.ID, trigger.ID)
		}
		if msg.Trigger.ClanID != "7" || msg.Trigger.BossHP != 500 {
			t.Errorf("trigger payload = %+v", msg.Trigger)
		}
		if err := msg.Ack(); err != nil {
			t.Errorf("Ack() error: %v", err)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the trigger")
	}
}

func TestQueuePublishDisconnected(t *testing.T) {
	q := NewQueue(DefaultQueueConfig())

	if err := q.Publish(context.Background(), NewTrigger(TriggerDailyReset)); err == nil {
		t.Fatal("expected error publishing on a disconnected queue")
	}
	if q.IsConnected() {
		t.Error("queue should not report connected")
	}
}
