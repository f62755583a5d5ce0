package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	clientName    = "task-manager-api"
	pingTimeout   = 5 * time.Second
	commandBudget = 2 * time.Second
)

// Config holds the Redis endpoint used for reminder dedup.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Connect returns a client that has answered a PING. Commands are capped at a
// short read/write timeout: dedup is best effort and must not stall a sweep.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   clientName,
		DialTimeout:  pingTimeout,
		ReadTimeout:  commandBudget,
		WriteTimeout: commandBudget,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
