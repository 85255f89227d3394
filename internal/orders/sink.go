package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/grocart/storefront/internal/kafka"
)

// Sink receives lifecycle events after the transaction commits. It is
// fire-and-forget: implementations must never fail or block the caller.
type Sink interface {
	OrderPlaced(ctx context.Context, o *Order)
	StatusChanged(ctx context.Context, o *Order, old Status, comment string)
}

type publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

var _ publisher = (*kafkax.Producer)(nil)

// KafkaSink publishes enveloped events to the order topics.
type KafkaSink struct {
	Placed  publisher
	Status  publisher
	Service string
	Log     *zap.Logger
}

var _ Sink = (*KafkaSink)(nil)

func (s *KafkaSink) OrderPlaced(ctx context.Context, o *Order) {
	items := make([]ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemQty{ProductID: it.ProductID, Qty: it.Qty})
	}
	s.publish(s.Placed, o.ID, EventOrderPlaced, kafkax.MustMarshal(OrderPlacedPayload{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Items:      items,
		TotalCents: o.TotalCents,
	}))
}

func (s *KafkaSink) StatusChanged(ctx context.Context, o *Order, old Status, comment string) {
	s.publish(s.Status, o.ID, EventOrderStatusChanged, kafkax.MustMarshal(StatusChangedPayload{
		OrderID:    o.ID,
		UserID:     o.UserID,
		OldStatus:  old,
		NewStatus:  o.Status,
		Comment:    comment,
		TotalCents: o.TotalCents,
	}))
}

func (s *KafkaSink) publish(p publisher, orderID, eventType string, payload []byte) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Service,
		CorrelationID: orderID,
	}
	ev.Payload = payload
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	if s.Log != nil {
		s.Log.Debug("event published", zap.String("event_type", eventType), zap.String("order_id", orderID))
	}
}
