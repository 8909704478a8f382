package services

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const trendingKey = "listings:trending"

// ViewCache считает просмотры объявлений в redis и ведёт ZSET
// популярности для ленты «trending». Авторитетный счётчик остаётся в БД,
// кеш служит быстрым срезом. Нулевой клиент отключает кеш.
type ViewCache struct {
	client *redis.Client
}

func NewViewCache(client *redis.Client) *ViewCache {
	return &ViewCache{client: client}
}

// AddView фиксирует просмотр объявления.
func (v *ViewCache) AddView(ctx context.Context, listingID string) error {
	if v == nil || v.client == nil {
		return nil
	}
	pipe := v.client.TxPipeline()
	pipe.Incr(ctx, "listings:views:"+listingID)
	pipe.ZIncrBy(ctx, trendingKey, 1, listingID)
	_, err := pipe.Exec(ctx)
	return err
}

// Views возвращает число просмотров по кешу.
func (v *ViewCache) Views(ctx context.Context, listingID string) (int64, error) {
	if v == nil || v.client == nil {
		return 0, nil
	}
	n, err := v.client.Get(ctx, "listings:views:"+listingID).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Trending возвращает до n самых просматриваемых объявлений.
func (v *ViewCache) Trending(ctx context.Context, n int64) ([]string, error) {
	if v == nil || v.client == nil {
		return nil, nil
	}
	ids, err := v.client.ZRevRange(ctx, trendingKey, 0, n-1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return ids, err
}
