// internal/database/redis.go
package database

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedis initializes the Redis connection used for realtime fan-out.
func InitRedis(redisURL string) *redis.Client {
	if redisURL == "" {
		log.Println("⚠️ Redis URL not configured, using default: redis://localhost:6379/0")
		redisURL = "redis://localhost:6379/0"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("❌ Failed to parse REDIS_URL: %v", err)
		return nil
	}

	redisClient = redis.NewClient(opt)

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("❌ Failed to connect to Redis: %v", err)
		return nil
	}

	log.Println("✅ Redis connected successfully")
	return redisClient
}

// GetRedis returns the Redis client
func GetRedis() *redis.Client {
	return redisClient
}

// PublishChannelEvent publishes a realtime frame to a logical channel
// (room:{id} or workspace:{id}).
func PublishChannelEvent(ctx context.Context, channel string, payload []byte) error {
	if redisClient == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return redisClient.Publish(ctx, "realtime:"+channel, payload).Err()
}

// SubscribeChannelEvents subscribes to realtime frames for a logical channel.
func SubscribeChannelEvents(ctx context.Context, channel string) *redis.PubSub {
	if redisClient == nil {
		return nil
	}
	return redisClient.Subscribe(ctx, "realtime:"+channel)
}
