package shop

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// CartStore holds the cart contents between requests. The default
// implementation lives in process memory and resets on restart; the Redis
// implementation survives restarts when a connection string is configured.
type CartStore interface {
	// Lines returns the cart contents ordered by product id.
	Lines(ctx context.Context) ([]CartLine, error)
	// Add accumulates qty onto the product's line and returns the new total.
	Add(ctx context.Context, productID int64, qty int) (int, error)
	// Set replaces the product's quantity. It reports false when the product
	// is not in the cart.
	Set(ctx context.Context, productID int64, qty int) (bool, error)
	// Remove drops the product's line, reporting false when absent.
	Remove(ctx context.Context, productID int64) (bool, error)
	// Clear empties the cart.
	Clear(ctx context.Context) error
}

// MemoryCart is the per-process cart. Restarting the server empties it.
type MemoryCart struct {
	mu    sync.Mutex
	items map[int64]int
}

func NewMemoryCart() *MemoryCart {
	return &MemoryCart{items: make(map[int64]int)}
}

func (m *MemoryCart) Lines(context.Context) ([]CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := make([]CartLine, 0, len(m.items))
	for id, qty := range m.items {
		lines = append(lines, CartLine{ProductID: id, Qty: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func (m *MemoryCart) Add(_ context.Context, productID int64, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[productID] += qty
	return m.items[productID], nil
}

func (m *MemoryCart) Set(_ context.Context, productID int64, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[productID]; !ok {
		return false, nil
	}
	m.items[productID] = qty
	return true, nil
}

func (m *MemoryCart) Remove(_ context.Context, productID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[productID]; !ok {
		return false, nil
	}
	delete(m.items, productID)
	return true, nil
}

func (m *MemoryCart) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[int64]int)
	return nil
}

const redisCartKey = "shop:cart"

// RedisCart keeps the cart in a Redis hash so it survives process restarts.
type RedisCart struct {
	client *redis.Client
}

func NewRedisCart(client *redis.Client) *RedisCart {
	return &RedisCart{client: client}
}

func (r *RedisCart) Lines(ctx context.Context) ([]CartLine, error) {
	raw, err := r.client.HGetAll(ctx, redisCartKey).Result()
	if err != nil {
		return nil, err
	}
	lines := make([]CartLine, 0, len(raw))
	for field, value := range raw {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		qty, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		lines = append(lines, CartLine{ProductID: id, Qty: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func (r *RedisCart) Add(ctx context.Context, productID int64, qty int) (int, error) {
	total, err := r.client.HIncrBy(ctx, redisCartKey, field(productID), int64(qty)).Result()
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (r *RedisCart) Set(ctx context.Context, productID int64, qty int) (bool, error) {
	exists, err := r.client.HExists(ctx, redisCartKey, field(productID)).Result()
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	if err := r.client.HSet(ctx, redisCartKey, field(productID), qty).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisCart) Remove(ctx context.Context, productID int64) (bool, error) {
	removed, err := r.client.HDel(ctx, redisCartKey, field(productID)).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (r *RedisCart) Clear(ctx context.Context) error {
	return r.client.Del(ctx, redisCartKey).Err()
}

func field(productID int64) string {
	return strconv.FormatInt(productID, 10)
}
