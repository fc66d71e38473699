package cache

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"
)

// TTL is the time-to-live requested for a write. The zero value is Forever.
type TTL struct {
	d   time.Duration
	set bool
	err error
}

// Forever means the entry never expires.
var Forever = TTL{}

// Seconds returns a TTL of n seconds. Negative values are rejected when the
// TTL is converted to an expiration.
func Seconds(n int64) TTL {
	if n < 0 {
		return TTL{err: invalidExpiration("ttl of %d seconds is negative", n)}
	}
	if n > math.MaxInt64/int64(time.Second) {
		return TTL{err: invalidExpiration("ttl of %d seconds overflows", n)}
	}
	return TTL{d: time.Duration(n) * time.Second, set: true}
}

// For returns a TTL of d. Durations are accepted as-is, so a negative value
// produces an expiration in the past.
func For(d time.Duration) TTL {
	return TTL{d: d, set: true}
}

// IsForever reports whether the TTL produces no expiration.
func (t TTL) IsForever() bool {
	return !t.set && t.err == nil
}

// Err returns the validation error carried by the TTL, if any.
func (t TTL) Err() error {
	return t.err
}

// ExpirationFrom converts the TTL into an absolute expiration relative to now.
// A nil result means the entry never expires.
func (t TTL) ExpirationFrom(now time.Time) (*time.Time, error) {
	if t.err != nil {
		return nil, t.err
	}
	if !t.set {
		return nil, nil
	}
	exp := now.Add(t.d)
	return &exp, nil
}

func (t TTL) String() string {
	switch {
	case t.err != nil:
		return "invalid"
	case !t.set:
		return "forever"
	default:
		return str2duration.String(t.d)
	}
}

// ParseTTL converts a loosely typed TTL, as found in JSON bodies and command
// line flags, into a TTL. Accepted values are nil, integer kinds (seconds),
// integral float64 (seconds), time.Duration, and strings holding either a
// number of seconds or a duration such as "90s" or "1d2h".
func ParseTTL(v any) (TTL, error) {
	switch val := v.(type) {
	case nil:
		return Forever, nil
	case TTL:
		return val, val.err
	case time.Duration:
		return For(val), nil
	case int:
		return checked(Seconds(int64(val)))
	case int8:
		return checked(Seconds(int64(val)))
	case int16:
		return checked(Seconds(int64(val)))
	case int32:
		return checked(Seconds(int64(val)))
	case int64:
		return checked(Seconds(val))
	case uint:
		return unsignedSeconds(uint64(val))
	case uint8:
		return unsignedSeconds(uint64(val))
	case uint16:
		return unsignedSeconds(uint64(val))
	case uint32:
		return unsignedSeconds(uint64(val))
	case uint64:
		return unsignedSeconds(val)
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) || math.IsNaN(val) {
			return TTL{}, invalidExpiration("ttl %v is not a whole number of seconds", val)
		}
		if math.Abs(val) >= math.MaxInt64 {
			return TTL{}, invalidExpiration("ttl of %v seconds overflows", val)
		}
		return checked(Seconds(int64(val)))
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return checked(Seconds(n))
		}
		d, err := str2duration.ParseDuration(s)
		if err != nil {
			return TTL{}, invalidExpiration("ttl %q is not a duration", val)
		}
		return For(d), nil
	default:
		return TTL{}, invalidExpiration("ttl of type %T is not supported", v)
	}
}

func checked(t TTL) (TTL, error) {
	if t.err != nil {
		return TTL{}, t.err
	}
	return t, nil
}

func unsignedSeconds(n uint64) (TTL, error) {
	if n > math.MaxInt64 {
		return TTL{}, invalidExpiration("ttl of %d seconds overflows", n)
	}
	return checked(Seconds(int64(n)))
}
