package cache

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidKey is returned when a key contains a reserved character.
	ErrInvalidKey = errors.New("cache: invalid key")

	// ErrInvalidExpiration is returned when a TTL is neither absent, a
	// non-negative number of seconds, nor a duration.
	ErrInvalidExpiration = errors.New("cache: invalid expiration")

	// ErrStorageFailure marks any error coming from a Storage implementation.
	// The adapter error stays reachable through errors.Is / errors.As.
	ErrStorageFailure = errors.New("cache: storage failure")

	// ErrNilItem is returned when a nil *Item is saved.
	ErrNilItem = errors.New("cache: nil item")
)

func invalidKey(key string) error {
	return errors.Wrapf(ErrInvalidKey, "key %q contains a reserved character", key)
}

func invalidExpiration(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidExpiration, format, args...)
}

func storageFailure(err error, op, namespace string) error {
	return errors.Mark(errors.Wrapf(err, "cache: %s on %q", op, namespace), ErrStorageFailure)
}
