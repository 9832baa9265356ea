package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"threadsntrends_back_end/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const CartTTL = 30 * 24 * time.Hour

const (
	CartEventUpdated = "updated"
	CartEventCleared = "cleared"
)

// MaxItemQuantity borne la quantité d'une ligne, comme la validation des requêtes.
const MaxItemQuantity = 99

var (
	ErrItemNotFound  = errors.New("article absent du panier")
	ErrQuantityLimit = errors.New("quantité maximale atteinte pour cet article")
)

// Les quantités vivent dans un hash séparé pour que toute modification
// soit un HINCRBY atomique côté Redis, jamais un read-modify-write.
var (
	addScript = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[2], ARGV[1]) or '0')
if cur + tonumber(ARGV[3]) > tonumber(ARGV[5]) then
  return -2
end
redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2])
local q = redis.call('HINCRBY', KEYS[2], ARGV[1], tonumber(ARGV[3]))
redis.call('PEXPIRE', KEYS[1], ARGV[4])
redis.call('PEXPIRE', KEYS[2], ARGV[4])
return q
`)

	increaseScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[2], ARGV[1])
if not cur then
  return -1
end
if tonumber(cur) >= tonumber(ARGV[3]) then
  return -2
end
local q = redis.call('HINCRBY', KEYS[2], ARGV[1], 1)
redis.call('PEXPIRE', KEYS[1], ARGV[2])
redis.call('PEXPIRE', KEYS[2], ARGV[2])
return q
`)

	// la quantité ne descend jamais sous 1 : on retire l'article avec Remove
	decreaseScript = redis.NewScript(`
local q = redis.call('HGET', KEYS[2], ARGV[1])
if not q then
  return -1
end
q = tonumber(q)
if q > 1 then
  q = redis.call('HINCRBY', KEYS[2], ARGV[1], -1)
end
redis.call('PEXPIRE', KEYS[1], ARGV[2])
redis.call('PEXPIRE', KEYS[2], ARGV[2])
return q
`)
)

type CartStore struct {
	rdb *redis.Client
}

func NewCartStore(rdb *redis.Client) *CartStore {
	return &CartStore{rdb: rdb}
}

func itemsKey(userID string) string { return "cart:" + userID + ":items" }
func qtyKey(userID string) string   { return "cart:" + userID + ":qty" }

// Channel est le canal pub/sub écouté par le websocket du panier.
func Channel(userID string) string { return "cart:" + userID }

// Add fusionne par produit : un second ajout incrémente la quantité
// et conserve le prix figé lors du premier ajout.
func (s *CartStore) Add(ctx context.Context, userID string, item models.CartItem) (*models.CartItem, error) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	meta := item
	meta.Quantity = 0
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}

	qty, err := addScript.Run(ctx, s.rdb,
		[]string{itemsKey(userID), qtyKey(userID)},
		item.ProductID, string(data), item.Quantity, CartTTL.Milliseconds(), MaxItemQuantity,
	).Int64()
	if err != nil {
		return nil, err
	}
	if qty == -2 {
		return nil, ErrQuantityLimit
	}
	s.publish(ctx, userID, CartEventUpdated)
	return s.item(ctx, userID, item.ProductID, qty)
}

func (s *CartStore) Increase(ctx context.Context, userID, productID string) (*models.CartItem, error) {
	return s.step(ctx, increaseScript, userID, productID)
}

func (s *CartStore) Decrease(ctx context.Context, userID, productID string) (*models.CartItem, error) {
	return s.step(ctx, decreaseScript, userID, productID)
}

func (s *CartStore) step(ctx context.Context, script *redis.Script, userID, productID string) (*models.CartItem, error) {
	qty, err := script.Run(ctx, s.rdb,
		[]string{itemsKey(userID), qtyKey(userID)},
		productID, CartTTL.Milliseconds(), MaxItemQuantity,
	).Int64()
	if err != nil {
		return nil, err
	}
	switch qty {
	case -1:
		return nil, ErrItemNotFound
	case -2:
		return nil, ErrQuantityLimit
	}
	s.publish(ctx, userID, CartEventUpdated)
	return s.item(ctx, userID, productID, qty)
}

func (s *CartStore) Remove(ctx context.Context, userID, productID string) error {
	var removed *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, itemsKey(userID), productID)
		removed = pipe.HDel(ctx, qtyKey(userID), productID)
		return nil
	})
	if err != nil {
		return err
	}
	if removed.Val() == 0 {
		return ErrItemNotFound
	}
	s.publish(ctx, userID, CartEventUpdated)
	return nil
}

func (s *CartStore) Clear(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, itemsKey(userID), qtyKey(userID)).Err(); err != nil {
		return err
	}
	s.publish(ctx, userID, CartEventCleared)
	return nil
}

func (s *CartStore) Get(ctx context.Context, userID string) (*models.Cart, error) {
	var metaCmd, qtyCmd *redis.MapStringStringCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		metaCmd = pipe.HGetAll(ctx, itemsKey(userID))
		qtyCmd = pipe.HGetAll(ctx, qtyKey(userID))
		return nil
	})
	if err != nil {
		return nil, err
	}

	quantities := qtyCmd.Val()
	cart := &models.Cart{UserID: userID, Items: []models.CartItem{}}
	total := decimal.Zero
	for productID, raw := range metaCmd.Val() {
		var item models.CartItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			continue
		}
		qty, err := decimal.NewFromString(quantities[productID])
		if err != nil || qty.LessThan(decimal.NewFromInt(1)) {
			continue
		}
		item.Quantity = qty.IntPart()
		cart.Items = append(cart.Items, item)
		total = total.Add(decimal.NewFromFloat(item.Price).Mul(qty))
	}

	sort.Slice(cart.Items, func(i, j int) bool {
		if cart.Items[i].AddedAt.Equal(cart.Items[j].AddedAt) {
			return cart.Items[i].ProductID < cart.Items[j].ProductID
		}
		return cart.Items[i].AddedAt.Before(cart.Items[j].AddedAt)
	})
	cart.Total = total.Round(2).InexactFloat64()
	cart.Count = len(cart.Items)
	return cart, nil
}

// Subscribe ouvre un abonnement aux changements du panier d'un utilisateur.
func (s *CartStore) Subscribe(ctx context.Context, userID string) *redis.PubSub {
	return s.rdb.Subscribe(ctx, Channel(userID))
}

func (s *CartStore) item(ctx context.Context, userID, productID string, qty int64) (*models.CartItem, error) {
	raw, err := s.rdb.HGet(ctx, itemsKey(userID), productID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	var item models.CartItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, err
	}
	item.Quantity = qty
	return &item, nil
}

func (s *CartStore) publish(ctx context.Context, userID, event string) {
	_ = s.rdb.Publish(ctx, Channel(userID), event).Err()
}
