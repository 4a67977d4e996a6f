package redisStore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

var (
	instances = make(map[int]*Store)
	mu        sync.RWMutex
	logger    = logger_i.NewLogger("Redis Store")
	once      sync.Once
)

type Store struct {
	client *redis.Client
	Type   int
}

type Options struct {
	Addr     string
	Password string
	DB       int
}

// GetRedisStore returns the shared store for one logical database, connecting on first use.
// All stores are closed when ctx ends.
func GetRedisStore(ctx context.Context, opts Options) (*Store, error) {
	mu.RLock()
	instance, exists := instances[opts.DB]
	mu.RUnlock()

	if exists {
		return instance, nil
	}

	mu.Lock()
	defer mu.Unlock()

	if instance, exists = instances[opts.DB]; exists {
		return instance, nil
	}
	return createNewStore(ctx, opts)
}

func closeRedisStores(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Redis Stores")
	mu.Lock()
	defer mu.Unlock()
	for db, store := range instances {
		if err := store.client.Close(); err != nil {
			logger.Error("Error closing redis client", "db", db, "error", err)
		}
		delete(instances, db)
	}
	logger.Info("Redis Store Closed successfully")
}

func createNewStore(ctx context.Context, opts Options) (*Store, error) {
	newClient := redis.NewClient(&redis.Options{
		Addr:                  opts.Addr,
		Password:              opts.Password,
		DB:                    opts.DB,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := newClient.Ping(pingCtx).Err(); err != nil {
		_ = newClient.Close()
		logger.Error("Redis is offline", "addr", opts.Addr, "error", err)
		return nil, fmt.Errorf("redis %s db %d: %w", opts.Addr, opts.DB, err)
	}

	logger.Info("Redis client init successfully", "db", opts.DB)

	newStore := &Store{client: newClient, Type: opts.DB}
	instances[opts.DB] = newStore
	once.Do(func() {
		go closeRedisStores(ctx)
	})
	return newStore, nil
}

// NewTestStore wraps an existing client, bypassing the shared registry.
func NewTestStore(client *redis.Client) *Store {
	return &Store{client: client}
}
