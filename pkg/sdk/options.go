package scaledex

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver     string // "redis" or "badger"
	addrs      []string
	password   string
	badgerPath string
	inMemory   bool

	embedder   Embedder
	dimensions int

	quota          int
	window         time.Duration
	anonymousLimit int
	snapshotTTL    time.Duration
	usage          bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis stores the catalog and counters in Redis (RedisJSON required).
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithBadger stores the catalog and counters in an embedded Badger database at path.
func WithBadger(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "badger"
		c.badgerPath = path
		c.inMemory = false
	})
}

// WithBadgerInMemory keeps everything in memory. Data is lost on Close.
func WithBadgerInMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "badger"
		c.badgerPath = ""
		c.inMemory = true
	})
}

// WithEmbedder sets the query embedding provider.
// dimensions is the expected vector length; 0 accepts any length.
func WithEmbedder(e Embedder, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.dimensions = dimensions
	})
}

// WithAnonymousQuota sets how many searches an anonymous caller may run per window,
// and the page size cap applied to them. Non-positive values keep the defaults (3 per 24h, 5 results).
func WithAnonymousQuota(quota int, window time.Duration, limit int) Option {
	return optionFunc(func(c *clientConfig) {
		c.quota = quota
		c.window = window
		c.anonymousLimit = limit
	})
}

// WithSnapshotTTL sets how long a fetched catalog snapshot is reused. Default: 30s.
func WithSnapshotTTL(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.snapshotTTL = d
	})
}

// WithUsageCounters records per-day and total search counters in the database.
func WithUsageCounters() Option {
	return optionFunc(func(c *clientConfig) {
		c.usage = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
