package statuscache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-shop-orders/internal/kafka"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/ariefcatur/go-shop-orders/internal/redisx"
)

// Service keeps the Redis order-status cache in step with order events, so
// status reads stay off the database.
type Service struct {
	Redis  *redis.Client
	Logger *zap.Logger
}

// HandleEvent is installed as the consumer handler for the order topics.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// dedup by event_id: redelivered events are applied once
	dkey := fmt.Sprintf(redisx.KeyDedup, "statuscache", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	switch env.EventType {
	case orders.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.setStatus(ctx, p.OrderID, orders.StatusPending)
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.setStatus(ctx, p.OrderID, p.Status)
	default:
		return nil
	}
}

func (s *Service) setStatus(ctx context.Context, orderID string, st orders.Status) error {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if err := s.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, st), redisx.TTLStatusCache).Err(); err != nil {
		return err
	}
	s.Logger.Debug("status cached",
		zap.String("order_id", orderID), zap.String("status", string(st)))
	return nil
}
