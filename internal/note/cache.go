package note

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreCache is an optional cache of the materialized UserStore. Mutations
// write the refreshed store through after commit with Set; read misses fill
// with SetNX so a read that raced a mutation cannot replace the fresh entry
// with a pre-mutation one. Cache errors degrade to misses; the service never
// depends on Redis being up.
type StoreCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStoreCache(redisURL string, ttl time.Duration) (*StoreCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &StoreCache{client: client, ttl: ttl}, nil
}

func storeKey(userID string) string {
	return "userstore:" + userID
}

func (c *StoreCache) Get(ctx context.Context, userID string) (UserStore, bool) {
	data, err := c.client.Get(ctx, storeKey(userID)).Bytes()
	if err == redis.Nil {
		return UserStore{}, false
	}
	if err != nil {
		log.Printf("store cache get user=%s: %v", userID, err)
		return UserStore{}, false
	}
	var store UserStore
	if err := json.Unmarshal(data, &store); err != nil {
		log.Printf("store cache decode user=%s: %v", userID, err)
		return UserStore{}, false
	}
	return store, true
}

func (c *StoreCache) Set(ctx context.Context, userID string, store UserStore) {
	data, err := json.Marshal(store)
	if err != nil {
		log.Printf("store cache encode user=%s: %v", userID, err)
		return
	}
	if err := c.client.Set(ctx, storeKey(userID), data, c.ttl).Err(); err != nil {
		log.Printf("store cache set user=%s: %v", userID, err)
	}
}

// SetNX fills the cache only when no entry exists for the user.
func (c *StoreCache) SetNX(ctx context.Context, userID string, store UserStore) {
	data, err := json.Marshal(store)
	if err != nil {
		log.Printf("store cache encode user=%s: %v", userID, err)
		return
	}
	if err := c.client.SetNX(ctx, storeKey(userID), data, c.ttl).Err(); err != nil {
		log.Printf("store cache setnx user=%s: %v", userID, err)
	}
}

func (c *StoreCache) Invalidate(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, storeKey(userID)).Err(); err != nil {
		log.Printf("store cache invalidate user=%s: %v", userID, err)
	}
}

func (c *StoreCache) Close() error {
	return c.client.Close()
}
