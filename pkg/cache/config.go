package cache

import "time"

// RedisOption configures the Redis-backed state mirror.
type RedisOption func(*RedisConfig)

// RedisConfig holds Redis connection settings. Keys are namespaced by Prefix.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
	Prefix       string
}

func defaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     4,
		MinIdleConns: 1,
		PingTimeout:  5 * time.Second,
		Prefix:       "arbwatch",
	}
}

// WithRedisAddr sets host:port.
func WithRedisAddr(addr string) RedisOption {
	return func(c *RedisConfig) { c.Addr = addr }
}

// WithRedisAuth sets password and logical database.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithRedisPool sizes the connection pool. The mirror writes from a single worker,
// so small pools are enough.
func WithRedisPool(size, minIdle int) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = size
		c.MinIdleConns = minIdle
	}
}

// WithRedisPrefix sets key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}
