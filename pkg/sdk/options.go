package livetable

import (
	"log/slog"

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
	addrs     []string
	password  string
	keyPrefix string

	seed     []Document
	seedFile string

	workers           int
	warnOnEmptyResult bool
	idColumnName      string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		keyPrefix:         "livetable:",
		workers:           4,
		warnOnEmptyResult: true,
		idColumnName:      "File",
	}
}

// WithValkey stores the corpus in a Valkey instance instead of memory.
// Clients sharing the instance and key prefix observe each other's writes.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the Valkey key prefix. Default: "livetable:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithDocuments loads docs into an empty corpus at startup.
func WithDocuments(docs ...Document) Option {
	return optionFunc(func(c *clientConfig) {
		c.seed = append(c.seed, docs...)
	})
}

// WithSeedFile loads a YAML corpus fixture into an empty corpus at startup.
func WithSeedFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.seedFile = path
	})
}

// WithWorkers bounds concurrent view evaluations. Default: 4.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithWarnOnEmptyResult toggles the empty-table notice. Default: on.
func WithWarnOnEmptyResult(on bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.warnOnEmptyResult = on
	})
}

// WithIDColumnName sets the heading of the identifier column. Default: "File".
func WithIDColumnName(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.idColumnName = name
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
