package repository

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
)

const (
	cartKeyPrefix  = "cart:"
	defaultCartTTL = 30 * 24 * time.Hour
)

// RedisCartStore keeps each cart as a hash of product ID to quantity.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.LoggerV2
}

func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	if ttl == 0 {
		ttl = defaultCartTTL
	}
	return &RedisCartStore{
		client: client,
		ttl:    ttl,
		logger: logging.NewLoggerV2("cart-store"),
	}
}

func (s *RedisCartStore) Items(ctx context.Context, customerID string) ([]models.CartItem, error) {
	fields, err := s.client.HGetAll(ctx, cartKey(customerID)).Result()
	if err != nil {
		return nil, err
	}

	items := make([]models.CartItem, 0, len(fields))
	for productID, raw := range fields {
		qty, err := strconv.Atoi(raw)
		if err != nil || qty <= 0 {
			s.logger.Warn("Skipping malformed cart entry", logging.Fields{
				"customer_id": customerID,
				"product_id":  productID,
				"value":       raw,
			})
			continue
		}
		items = append(items, models.CartItem{ProductID: productID, Quantity: qty})
	}
	sortCartItems(items)

	return items, nil
}

// Add increments the quantity of productID, creating the entry if needed.
func (s *RedisCartStore) Add(ctx context.Context, customerID, productID string, quantity int) error {
	key := cartKey(customerID)

	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, key, productID, int64(quantity))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Failed to add cart item", logging.Fields{
			"customer_id": customerID,
			"product_id":  productID,
			"error":       err.Error(),
		})
		return err
	}
	return nil
}

func (s *RedisCartStore) Remove(ctx context.Context, customerID, productID string) error {
	return s.client.HDel(ctx, cartKey(customerID), productID).Err()
}

func (s *RedisCartStore) Clear(ctx context.Context, customerID string) error {
	return s.client.Del(ctx, cartKey(customerID)).Err()
}

func cartKey(customerID string) string {
	return cartKeyPrefix + customerID
}

func sortCartItems(items []models.CartItem) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProductID < items[j].ProductID
	})
}
