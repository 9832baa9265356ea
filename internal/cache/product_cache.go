package cache

import (
	"context"
	"encoding/json"
	"time"

	"threadsntrends_back_end/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const ProductCacheTTL = 10 * time.Minute

// ProductCache garde les fiches produit consultées le plus souvent.
type ProductCache struct {
	rdb *redis.Client
}

func NewProductCache(rdb *redis.Client) *ProductCache {
	return &ProductCache{rdb: rdb}
}

func productKey(id string) string { return "product:" + id }

func (c *ProductCache) Get(ctx context.Context, id string) (*models.Product, bool) {
	data, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *ProductCache) Set(ctx context.Context, p *models.Product) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, productKey(p.ID.Hex()), data, ProductCacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("product_id", p.ID.Hex()).Msg("⚠️ Mise en cache produit impossible")
	}
}

func (c *ProductCache) Invalidate(ctx context.Context, id string) {
	_ = c.rdb.Del(ctx, productKey(id)).Err()
}
