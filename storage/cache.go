package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Krishna-R-Sonar/smart-trello/domain"
)

const (
	boardCachePrefix = "bd:"
	cardsCachePrefix = "cd:"
)

// Cache wraps a Store with redis-backed caching for the hot board read path.
// Board and card-set entries are keyed per board and evicted on every
// mutation of that board. Redis problems degrade to cache misses.
type Cache struct {
	base  domain.Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Store wrapper using the provided redis client
// and TTL.
func NewCache(base domain.Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) FindBoard(ctx context.Context, boardID string) (*domain.Board, error) {
	if c.redis != nil {
		if data, err := c.redis.Get(ctx, boardCachePrefix+boardID).Bytes(); err == nil {
			var board domain.Board
			if err := json.Unmarshal(data, &board); err == nil {
				return &board, nil
			}
		}
	}
	board, err := c.base.FindBoard(ctx, boardID)
	if err != nil || board == nil {
		return board, err
	}
	c.store(ctx, boardCachePrefix+boardID, board)
	return board, nil
}

func (c *Cache) SaveBoard(ctx context.Context, board domain.Board) error {
	if err := c.base.SaveBoard(ctx, board); err != nil {
		return err
	}
	c.evict(ctx, board.ID)
	return nil
}

func (c *Cache) FindBoardsByMember(ctx context.Context, userID string) ([]domain.Board, error) {
	return c.base.FindBoardsByMember(ctx, userID)
}

func (c *Cache) FindBoardsByInvite(ctx context.Context, email string) ([]domain.Board, error) {
	return c.base.FindBoardsByInvite(ctx, email)
}

func (c *Cache) FindCard(ctx context.Context, cardID string) (*domain.Card, error) {
	return c.base.FindCard(ctx, cardID)
}

func (c *Cache) SaveCard(ctx context.Context, card domain.Card) error {
	if err := c.base.SaveCard(ctx, card); err != nil {
		return err
	}
	c.evict(ctx, card.BoardID)
	return nil
}

func (c *Cache) FindCardsByBoard(ctx context.Context, boardID string) ([]domain.Card, error) {
	if c.redis != nil {
		if data, err := c.redis.Get(ctx, cardsCachePrefix+boardID).Bytes(); err == nil {
			var cards []domain.Card
			if err := json.Unmarshal(data, &cards); err == nil {
				return cards, nil
			}
		}
	}
	cards, err := c.base.FindCardsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cardsCachePrefix+boardID, cards)
	return cards, nil
}

// EnqueueRepair passes through when the base store carries a repair queue.
func (c *Cache) EnqueueRepair(ctx context.Context, boardID string) error {
	if rq, ok := c.base.(domain.RepairQueue); ok {
		return rq.EnqueueRepair(ctx, boardID)
	}
	return nil
}

func (c *Cache) store(ctx context.Context, key string, value any) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.redis.Set(ctx, key, data, c.ttl)
}

func (c *Cache) evict(ctx context.Context, boardID string) {
	if c.redis == nil {
		return
	}
	c.redis.Del(ctx, boardCachePrefix+boardID, cardsCachePrefix+boardID)
}
