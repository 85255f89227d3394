package notify

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/grocart/storefront/internal/kafka"
	"github.com/grocart/storefront/internal/orders"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type fakeDirectory struct {
	users map[string]User
}

func (d *fakeDirectory) Lookup(ctx context.Context, userID string) (User, error) {
	u, ok := d.users[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func statusMessage(t *testing.T, payload orders.StatusChangedPayload) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:       "evt-1",
		EventType:     orders.EventOrderStatusChanged,
		EventVersion:  1,
		Producer:      "api",
		CorrelationID: payload.OrderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func newTestService(mailer *fakeMailer, dir *fakeDirectory) *Service {
	return &Service{Directory: dir, Mailer: mailer, ServiceName: "notifier-test"}
}

func TestHandleStatusChangedSendsEmail(t *testing.T) {
	mailer := &fakeMailer{}
	dir := &fakeDirectory{users: map[string]User{
		"user-alice": {ID: "user-alice", Name: "Alice", Email: "alice@example.com"},
	}}
	svc := newTestService(mailer, dir)

	msg := statusMessage(t, orders.StatusChangedPayload{
		OrderID:    "order-42",
		UserID:     "user-alice",
		OldStatus:  orders.StatusProcessing,
		NewStatus:  orders.StatusShipped,
		TotalCents: 2499,
	})
	require.NoError(t, svc.HandleStatusChanged(context.Background(), msg))

	require.Len(t, mailer.sent, 1)
	m := mailer.sent[0]
	assert.Equal(t, "alice@example.com", m.to)
	assert.Equal(t, "Order Status Update - shipped", m.subject)
	assert.Contains(t, m.body, "Dear Alice")
	assert.Contains(t, m.body, "Your order has been shipped")
	assert.Contains(t, m.body, "order-42")
	assert.Contains(t, m.body, "$24.99")
}

func TestHandleStatusChangedIgnoresOtherEventTypes(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newTestService(mailer, &fakeDirectory{})

	env := orders.Envelope{
		EventID:   "evt-2",
		EventType: orders.EventOrderPlaced,
		Payload:   kafkax.MustMarshal(orders.OrderPlacedPayload{OrderID: "order-1"}),
	}
	msg := kafkago.Message{Value: kafkax.MustMarshal(env)}

	require.NoError(t, svc.HandleStatusChanged(context.Background(), msg))
	assert.Empty(t, mailer.sent)
}

func TestHandleStatusChangedUnknownRecipientIsDropped(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newTestService(mailer, &fakeDirectory{})

	msg := statusMessage(t, orders.StatusChangedPayload{
		OrderID:   "order-42",
		UserID:    "user-ghost",
		NewStatus: orders.StatusDelivered,
	})

	// a missing user must not poison the partition
	require.NoError(t, svc.HandleStatusChanged(context.Background(), msg))
	assert.Empty(t, mailer.sent)
}

func TestHandleStatusChangedMailFailureCommits(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp: connection refused")}
	dir := &fakeDirectory{users: map[string]User{
		"user-alice": {ID: "user-alice", Name: "Alice", Email: "alice@example.com"},
	}}
	svc := newTestService(mailer, dir)

	msg := statusMessage(t, orders.StatusChangedPayload{
		OrderID:   "order-42",
		UserID:    "user-alice",
		NewStatus: orders.StatusCancelled,
	})
	assert.NoError(t, svc.HandleStatusChanged(context.Background(), msg))
}

func TestHandleStatusChangedMalformedEnvelope(t *testing.T) {
	svc := newTestService(&fakeMailer{}, &fakeDirectory{})
	err := svc.HandleStatusChanged(context.Background(), kafkago.Message{Value: []byte("{not json")})
	assert.Error(t, err)
}
