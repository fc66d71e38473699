package cache

// config holds the resolved settings shared by Pool, SimpleCache and Item.
type config struct {
	clock Clock
	codec Codec
}

// Option configures a Pool, SimpleCache or Item.
type Option func(*config)

func defaultConfig() config {
	return config{
		clock: SystemClock,
		codec: MsgpackCodec,
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithClock injects the reference clock. Tests use FixedClock to make TTL
// math and hit computation deterministic.
func WithClock(clock Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithCodec replaces the msgpack value codec.
func WithCodec(codec Codec) Option {
	return func(c *config) {
		if codec != nil {
			c.codec = codec
		}
	}
}
