package middleware

import (
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// RedisClientKey is the context key handlers read the cache client from.
const RedisClientKey = "redisClient"

// RedisInjector stores the Redis client in the request context so handlers
// can cache responses. The client may be nil, which disables caching.
func RedisInjector(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(RedisClientKey, rdb) // Inject client
		c.Next()                   // Proceed to the next handler
	}
}

// ClientFrom extracts the Redis client from the request context, nil when
// caching is disabled.
func ClientFrom(c *gin.Context) *redis.Client {
	if v, ok := c.Get(RedisClientKey); ok {
		if rdb, ok := v.(*redis.Client); ok {
			return rdb
		}
	}
	return nil
}
