package vault

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisConfig contains Redis vault configuration.
type RedisConfig struct {
	RedisURL       string `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int    `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int    `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
}

// RedisVault is a Redis-backed TokenVault. Mappings survive process
// restarts, which keeps tokenization idempotent across masking jobs.
type RedisVault struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisVault creates a Redis-backed vault and verifies connectivity.
func NewRedisVault(config *RedisConfig, logger *zap.Logger) (*RedisVault, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.MaxConnections
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis token vault initialized",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Int("max_connections", config.MaxConnections))

	return &RedisVault{client: client, logger: logger}, nil
}

func (v *RedisVault) metaKey(ns string) string { return "fieldmask:vault:" + ns + ":meta" }
func (v *RedisVault) v2tKey(ns string) string  { return "fieldmask:vault:" + ns + ":v2t" }
func (v *RedisVault) t2vKey(ns string) string  { return "fieldmask:vault:" + ns + ":t2v" }

// Init marks a namespace as ready for use.
func (v *RedisVault) Init(ctx context.Context, namespace string) error {
	if namespace == "" {
		return fmt.Errorf("vault namespace must not be empty")
	}
	if err := v.client.Set(ctx, v.metaKey(namespace), time.Now().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("failed to initialize vault namespace: %w", err)
	}
	return nil
}

// Clear removes a namespace and all of its mappings.
func (v *RedisVault) Clear(ctx context.Context, namespace string) error {
	if err := v.client.Del(ctx, v.metaKey(namespace), v.v2tKey(namespace), v.t2vKey(namespace)).Err(); err != nil {
		return fmt.Errorf("failed to clear vault namespace: %w", err)
	}
	return nil
}

func (v *RedisVault) ensureInitialized(ctx context.Context, namespace string) error {
	exists, err := v.client.Exists(ctx, v.metaKey(namespace)).Result()
	if err != nil {
		return fmt.Errorf("vault lookup failed: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrVaultNotInitialized, namespace)
	}
	return nil
}

// Tokenize returns the token for a value, minting one on first use.
func (v *RedisVault) Tokenize(ctx context.Context, namespace, value string) (string, error) {
	if err := v.ensureInitialized(ctx, namespace); err != nil {
		return "", err
	}

	token, err := v.client.HGet(ctx, v.v2tKey(namespace), value).Result()
	if err == nil {
		return token, nil
	}
	if err != redis.Nil {
		return "", fmt.Errorf("vault lookup failed: %w", err)
	}

	token, err = newToken()
	if err != nil {
		return "", err
	}

	// HSetNX so a concurrent mint of the same value wins exactly once.
	set, err := v.client.HSetNX(ctx, v.v2tKey(namespace), value, token).Result()
	if err != nil {
		return "", fmt.Errorf("vault write failed: %w", err)
	}
	if !set {
		token, err = v.client.HGet(ctx, v.v2tKey(namespace), value).Result()
		if err != nil {
			return "", fmt.Errorf("vault lookup failed: %w", err)
		}
		return token, nil
	}

	if err := v.client.HSet(ctx, v.t2vKey(namespace), token, value).Err(); err != nil {
		return "", fmt.Errorf("vault write failed: %w", err)
	}

	v.logger.Debug("Token minted",
		zap.String("namespace", namespace),
		zap.String("token", token))

	return token, nil
}

// Detokenize reverses the mapping for a previously issued token.
func (v *RedisVault) Detokenize(ctx context.Context, namespace, token string) (string, bool, error) {
	if err := v.ensureInitialized(ctx, namespace); err != nil {
		return "", false, err
	}

	value, err := v.client.HGet(ctx, v.t2vKey(namespace), token).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("vault lookup failed: %w", err)
	}
	return value, true, nil
}

// Close releases the Redis connection pool.
func (v *RedisVault) Close() error {
	return v.client.Close()
}

// maskRedisURL hides credentials in a Redis URL for logging.
func maskRedisURL(url string) string {
	if idx := strings.Index(url, "@"); idx != -1 {
		if schemeEnd := strings.Index(url, "://"); schemeEnd != -1 {
			return url[:schemeEnd+3] + "***@" + url[idx+1:]
		}
	}
	return url
}
