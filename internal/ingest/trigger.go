package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SergeOin/titan/internal/logger"
)

// Default trigger queue settings.
const (
	DefaultTriggerQueue = "titan:triggers"
	popTimeout          = 5 * time.Second
)

// RedisConfig holds the optional external trigger queue settings. When Addr
// is empty the queue is disabled and only the HTTP trigger endpoint wakes
// the loop.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"     yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db"       yaml:"db"`
	Queue    string `mapstructure:"queue"    yaml:"queue"`
}

// SetDefaults applies default values to unset fields.
func (c *RedisConfig) SetDefaults() {
	if c.Queue == "" {
		c.Queue = DefaultTriggerQueue
	}
}

// Enabled reports whether the queue is configured.
func (c *RedisConfig) Enabled() bool { return c.Addr != "" }

// RedisTrigger consumes an external trigger queue and wakes the loop for
// each element popped. Operators push any value onto the list to request an
// immediate cycle without going through the HTTP API.
type RedisTrigger struct {
	client *redis.Client
	queue  string
	notify func()
	logger logger.Logger
}

// NewRedisTrigger connects to the queue. notify is called once per popped
// element.
func NewRedisTrigger(cfg RedisConfig, notify func(), log logger.Logger) *RedisTrigger {
	cfg.SetDefaults()
	return &RedisTrigger{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		queue:  cfg.Queue,
		notify: notify,
		logger: log,
	}
}

// Ping reports queue connectivity.
func (t *RedisTrigger) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

// Close releases the connection.
func (t *RedisTrigger) Close() error {
	return t.client.Close()
}

// Run blocks on the queue until the context is cancelled. Connection
// failures are logged and retried; the queue is a convenience, not a
// dependency the loop should die over.
func (t *RedisTrigger) Run(ctx context.Context) error {
	t.logger.Info("trigger queue listener started", logger.String("queue", t.queue))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := t.client.BLPop(ctx, popTimeout, t.queue).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue // timeout with no element
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			t.logger.Warn("trigger queue read failed", logger.Error(err))
			if sleepErr := sleepCtx(ctx, time.Second); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		if len(res) > 1 {
			t.logger.Info("external trigger received", logger.String("payload", res[1]))
		}
		t.notify()
	}
}
