package mirror

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/game2048-metrics/pkg/metrics"
)

// FieldLastUpdate holds the RFC 3339 publish time in the mirror hash.
const FieldLastUpdate = "last_update"

var (
	// ErrNotPublished indicates the mirror hash does not exist yet.
	ErrNotPublished = errors.New("counters not published")

	// ErrInvalidTotals indicates the mirror hash holds a value that is not a count.
	ErrInvalidTotals = errors.New("invalid mirrored totals")
)

// Source provides counter snapshots. *metrics.Registry satisfies it.
type Source interface {
	Snapshot() ([]metrics.Sample, error)
}

// Config holds mirror settings.
type Config struct {
	// Key is the Redis hash receiving the totals.
	Key string

	// Interval between publishes.
	Interval time.Duration
}

// Mirror periodically publishes counter totals to Redis.
type Mirror struct {
	redis  *redis.Client
	source Source
	config Config
	logger zerolog.Logger
}

// New creates a mirror.
func New(redisClient *redis.Client, source Source, cfg Config, logger zerolog.Logger) *Mirror {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Mirror{
		redis:  redisClient,
		source: source,
		config: cfg,
		logger: logger,
	}
}

// Publish writes the current totals in a single pipeline.
func (m *Mirror) Publish(ctx context.Context) error {
	samples, err := m.source.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot counters: %w", err)
	}

	fields := hashFields(samples, time.Now())

	pipe := m.redis.TxPipeline()
	pipe.HSet(ctx, m.config.Key, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset %s: %w", m.config.Key, err)
	}

	m.logger.Debug().
		Str("key", m.config.Key).
		Int("counters", len(samples)).
		Msg("Published counter totals")

	return nil
}

// Run publishes immediately, then on every interval until ctx is done.
// Publish failures are logged and never retried.
func (m *Mirror) Run(ctx context.Context) error {
	if m.config.Interval <= 0 {
		return fmt.Errorf("mirror interval must be positive (got %s)", m.config.Interval)
	}

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.publishOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.publishOnce(ctx)
		}
	}
}

func (m *Mirror) publishOnce(ctx context.Context) {
	if err := m.Publish(ctx); err != nil && ctx.Err() == nil {
		m.logger.Warn().Err(err).Str("key", m.config.Key).Msg("Counter mirror publish failed")
	}
}

// Totals reads the mirrored totals back from Redis.
// Returns ErrNotPublished if nothing was published yet.
func (m *Mirror) Totals(ctx context.Context) (map[string]uint64, time.Time, error) {
	values, err := m.redis.HGetAll(ctx, m.config.Key).Result()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("redis hgetall %s: %w", m.config.Key, err)
	}
	if len(values) == 0 {
		return nil, time.Time{}, ErrNotPublished
	}
	return parseHash(values)
}

// hashFields converts a snapshot into Redis hash fields.
func hashFields(samples []metrics.Sample, now time.Time) map[string]any {
	fields := make(map[string]any, len(samples)+1)
	for _, s := range samples {
		fields[s.Name] = strconv.FormatUint(s.Value, 10)
	}
	fields[FieldLastUpdate] = now.UTC().Format(time.RFC3339)
	return fields
}

// parseHash is the inverse of hashFields.
func parseHash(values map[string]string) (map[string]uint64, time.Time, error) {
	var updated time.Time
	totals := make(map[string]uint64, len(values))

	for field, raw := range values {
		if field == FieldLastUpdate {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, time.Time{}, fmt.Errorf("%w: %s: %v", ErrInvalidTotals, field, err)
			}
			updated = t
			continue
		}
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: %s: %v", ErrInvalidTotals, field, err)
		}
		totals[field] = n
	}

	return totals, updated, nil
}
