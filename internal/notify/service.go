package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/grocart/storefront/internal/kafka"
	"github.com/grocart/storefront/internal/orders"
	"github.com/grocart/storefront/internal/redisx"
)

var statusMessages = map[orders.Status]string{
	orders.StatusPending:    "We have received your order",
	orders.StatusProcessing: "Your order is being processed",
	orders.StatusShipped:    "Your order has been shipped",
	orders.StatusDelivered:  "Your order has been delivered",
	orders.StatusCancelled:  "Your order has been cancelled",
}

// Service consumes order status events and dispatches customer emails.
// Delivery problems are logged and the offset committed: a lost email must
// never stall the stream or the order it belongs to.
type Service struct {
	Redis       *redis.Client
	Directory   Directory
	Mailer      Mailer
	ServiceName string
	Log         *zap.Logger
}

// HandleStatusChanged is mounted as the kafka consumer handler.
func (s *Service) HandleStatusChanged(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderStatusChanged {
		return nil
	}

	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[orders.StatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}

	user, err := s.Directory.Lookup(ctx, p.UserID)
	if err != nil {
		s.log().Warn("recipient lookup failed, dropping notification",
			zap.String("order_id", p.OrderID), zap.String("user_id", p.UserID), zap.Error(err))
		return nil
	}

	subject := fmt.Sprintf("Order Status Update - %s", p.NewStatus)
	body := fmt.Sprintf("Dear %s,\n\n%s.\n\nOrder ID: %s\nTotal Amount: $%.2f\n\nThank you for shopping with us!",
		user.Name, statusMessages[p.NewStatus], p.OrderID, float64(p.TotalCents)/100)

	if err := s.Mailer.Send(ctx, user.Email, subject, body); err != nil {
		s.log().Warn("email dispatch failed",
			zap.String("order_id", p.OrderID), zap.String("to", user.Email), zap.Error(err))
		return nil
	}

	s.log().Info("status email sent",
		zap.String("order_id", p.OrderID),
		zap.String("status", string(p.NewStatus)))
	return nil
}

func (s *Service) log() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}
