package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/example/carside/pkg/config"
	"github.com/example/carside/pkg/models"
)

const orderTTL = 24 * time.Hour

// RedisStore keeps orders in Redis so the stub backend survives restarts
// during development sessions.
type RedisStore struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisStore(cfg *config.RedisConfig) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func orderKey(id string) string {
	return fmt.Sprintf("order:%s", id)
}

func (s *RedisStore) setJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, orderTTL).Err()
}

func (s *RedisStore) getJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (s *RedisStore) Put(ctx context.Context, order *models.Order) error {
	if err := s.setJSON(ctx, orderKey(order.ID), order); err != nil {
		return err
	}
	return s.client.LPush(ctx, "orders:index", order.ID).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.getJSON(ctx, orderKey(id), &order)
	if err == redis.Nil {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *RedisStore) List(ctx context.Context) ([]models.Order, error) {
	ids, err := s.client.LRange(ctx, "orders:index", 0, -1).Result()
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		order, err := s.Get(ctx, id)
		if err == ErrOrderNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

func (s *RedisStore) SetStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Status = status
	if err := s.setJSON(ctx, orderKey(id), order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *RedisStore) SetRating(ctx context.Context, id string, rating int) error {
	order, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	order.Rating = &rating
	return s.setJSON(ctx, orderKey(id), order)
}
