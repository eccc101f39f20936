package n5

import (
	"runtime"
	"time"

	"github.com/go-logr/logr"
	"github.com/patrickmn/go-cache"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger      logr.Logger
	cacheAttrs  bool
	cacheTTL    time.Duration
	parallelism int
}

func defaultOptions() *options {
	return &options{
		logger:      logr.Discard(),
		cacheAttrs:  true,
		cacheTTL:    cache.NoExpiration,
		parallelism: runtime.GOMAXPROCS(0),
	}
}

// WithLogger sets the logger. Dataset lifecycle events are logged at Info,
// block I/O at V(1).
func WithLogger(logger logr.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAttributeCache keeps parsed dataset attributes in memory for ttl.
// Zero or a negative ttl never expires entries.
func WithAttributeCache(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheAttrs = true
		o.cacheTTL = ttl
		if ttl <= 0 {
			o.cacheTTL = cache.NoExpiration
		}
	}
}

// WithoutAttributeCache reads attributes.json on every operation. Use it when
// another process may re-create datasets in the same store.
func WithoutAttributeCache() Option {
	return func(o *options) {
		o.cacheAttrs = false
	}
}

// WithParallelism bounds the number of blocks WriteBlocks and ReadRegion
// process at once.
func WithParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.parallelism = n
		}
	}
}
