package rabbitmq

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"redirect_service/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestPublishingCarriesEvent(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	event := models.CheckoutEvent{
		Type:              models.CheckoutIntentOrphaned,
		CheckoutSessionID: 12,
		UserID:            7,
		TierID:            2,
		StripeID:          "cs_test",
		Stage:             "record_stripe_id",
		Error:             "connection reset",
		OccurredAt:        at,
	}

	msg, err := publishing(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.DeliveryMode != amqp.Persistent {
		t.Errorf("delivery mode = %d, want persistent", msg.DeliveryMode)
	}
	if msg.Type != string(models.CheckoutIntentOrphaned) {
		t.Errorf("type = %q", msg.Type)
	}
	if !msg.Timestamp.Equal(at) {
		t.Errorf("timestamp = %v, want %v", msg.Timestamp, at)
	}

	var fields map[string]any
	if err := json.Unmarshal(msg.Body, &fields); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"type", "checkout_session_id", "user_id", "tier_id", "stripe_id", "stage", "error", "occurred_at"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("body is missing %q: %s", key, msg.Body)
		}
	}
}

type mockDelivery struct {
	acks    int
	nacks   int
	requeue bool
	err     error
}

func (m *mockDelivery) Ack(bool) error {
	m.acks++
	return m.err
}

func (m *mockDelivery) Nack(_ bool, requeue bool) error {
	m.nacks++
	m.requeue = requeue
	return m.err
}

func TestSettle(t *testing.T) {
	d := &mockDelivery{}
	if err := settle(d, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.acks != 1 || d.nacks != 0 {
		t.Errorf("handled delivery: acks = %d, nacks = %d", d.acks, d.nacks)
	}

	d = &mockDelivery{}
	if err := settle(d, errors.New("smtp down")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.acks != 0 || d.nacks != 1 || !d.requeue {
		t.Errorf("failed delivery: acks = %d, nacks = %d, requeue = %v", d.acks, d.nacks, d.requeue)
	}

	d = &mockDelivery{err: amqp.ErrClosed}
	if err := settle(d, nil); !errors.Is(err, amqp.ErrClosed) {
		t.Errorf("closed channel: err = %v", err)
	}
}
