package config

import "time"

// RateLimitConfig configures the Redis token bucket.  Writes uses a
// separate, usually smaller, bucket for booking and checkout requests.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.
func LoadRateLimitConfig() RateLimitConfig {
	return normalizeRateLimit(RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	})
}

// LoadWriteRateLimitConfig is the bucket for POST /bookings and
// /checkout, keyed per user.
func LoadWriteRateLimitConfig() RateLimitConfig {
	base := LoadRateLimitConfig()
	base.Capacity = envInt("RATE_LIMIT_WRITE_CAPACITY", 10)
	base.RefillInterval = envDur("RATE_LIMIT_WRITE_REFILL_INTERVAL", 6*time.Second)
	base.KeyStrategy = "user_route"
	base.Prefix = base.Prefix + ":write"
	return normalizeRateLimit(base)
}

func normalizeRateLimit(c RateLimitConfig) RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
