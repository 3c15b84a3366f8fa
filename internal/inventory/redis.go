package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix    = "stock:"
	priceKeyPrefix    = "price:"
	releasedKeyPrefix = "released:"

	releasedKeyTTL = 48 * time.Hour
)

// reserveScript performs the check-and-decrement in one Redis call so two
// concurrent reservations cannot both pass the check on the same stock.
// Returns the unit price on success, -1 when the product is unknown and -2
// when stock is short.
var reserveScript = redis.NewScript(`
local stock = redis.call('GET', KEYS[1])
if not stock then
	return -1
end
local price = redis.call('GET', KEYS[2])
if not price then
	return -1
end
if tonumber(stock) < tonumber(ARGV[1]) then
	return -2
end
redis.call('DECRBY', KEYS[1], ARGV[1])
return tonumber(price)
`)

// releaseScript credits stock back only when this reservation has not been
// released before; the NX marker key makes a second release a no-op.
var releaseScript = redis.NewScript(`
if redis.call('SET', KEYS[1], 1, 'NX', 'EX', ARGV[2]) then
	redis.call('INCRBY', KEYS[2], ARGV[1])
	return 1
end
return 0
`)

// RedisStore is the hot-path stock backend. It holds only stock counters and
// unit prices; the catalog of record stays in Postgres and is synced in at
// startup via SetStock/SetPrice.
type RedisStore struct {
	Client *redis.Client
}

func (s *RedisStore) Reserve(ctx context.Context, productID string, qty int) (Reservation, error) {
	keys := []string{stockKeyPrefix + productID, priceKeyPrefix + productID}
	n, err := reserveScript.Run(ctx, s.Client, keys, qty).Int()
	if err != nil {
		return Reservation{}, err
	}
	switch n {
	case -1:
		return Reservation{}, ErrNotFound
	case -2:
		return Reservation{}, ErrInsufficientStock
	}
	return Reservation{ID: uuid.NewString(), ProductID: productID, Qty: qty, PriceCents: n}, nil
}

func (s *RedisStore) Release(ctx context.Context, res Reservation) error {
	keys := []string{releasedKeyPrefix + res.ID, stockKeyPrefix + res.ProductID}
	return releaseScript.Run(ctx, s.Client, keys, res.Qty, int(releasedKeyTTL.Seconds())).Err()
}

func (s *RedisStore) PriceOf(ctx context.Context, productID string) (int, error) {
	n, err := s.Client.Get(ctx, priceKeyPrefix+productID).Int()
	if err == redis.Nil {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *RedisStore) SetStock(ctx context.Context, productID string, stock int) error {
	return s.Client.Set(ctx, stockKeyPrefix+productID, stock, 0).Err()
}

func (s *RedisStore) SetPrice(ctx context.Context, productID string, priceCents int) error {
	return s.Client.Set(ctx, priceKeyPrefix+productID, priceCents, 0).Err()
}

// Sync mirrors the durable catalog into Redis; called once at boot when this
// backend serves the reservation path.
func (s *RedisStore) Sync(ctx context.Context, products []Product) error {
	for _, p := range products {
		if err := s.SetStock(ctx, p.ID, p.Stock); err != nil {
			return err
		}
		if err := s.SetPrice(ctx, p.ID, p.PriceCents); err != nil {
			return err
		}
	}
	return nil
}
