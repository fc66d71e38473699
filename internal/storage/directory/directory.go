// Package directory stores cache records as one file per key inside a
// directory. The namespace of a pool is the directory path.
package directory

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cache-store-api/internal/cache"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Extension is appended to every record file name.
const Extension = ".cache"

// maxNameLen is the common file name limit (NAME_MAX) of Linux and macOS
// filesystems.
const maxNameLen = 255

// hashedPrefix marks file names derived from a key hash. It is outside the
// base64url alphabet, so hashed and encoded names never collide.
const hashedPrefix = "~"

// record is the on-disk form of a cache.Record.
type record struct {
	Key        string `msgpack:"key"`
	Value      []byte `msgpack:"value"`
	Expiration *int64 `msgpack:"expiration"` // unix nanoseconds
}

// Storage is a cache.Storage backed by the filesystem.
type Storage struct {
	fileMode os.FileMode
	dirMode  os.FileMode
}

var (
	_ cache.Storage  = (*Storage)(nil)
	_ cache.Upserter = (*Storage)(nil)
	_ cache.Lister   = (*Storage)(nil)
)

// New returns a directory Storage. Directories are created on first write.
func New() *Storage {
	return &Storage{fileMode: 0o644, dirMode: 0o755}
}

// NewCache returns a SimpleCache storing its entries under dir.
func NewCache(dir string, opts ...cache.Option) *cache.SimpleCache {
	pool := cache.NewPool(New(), dir, opts...)
	return cache.NewSimpleCache(pool, opts...)
}

// FileName returns the file name used for key: the base64url encoding of the
// key, or, when that would exceed 255 bytes (keys longer than about 185
// bytes), "~" followed by the hex SHA-256 of the key. Hashed names cannot be
// reversed; the key is also stored inside the record.
func FileName(key string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(key)) + Extension
	if len(name) <= maxNameLen {
		return name
	}
	sum := sha256.Sum256([]byte(key))
	return hashedPrefix + hex.EncodeToString(sum[:]) + Extension
}

// KeyFromFileName reverses FileName for non-hashed names.
func KeyFromFileName(name string) (string, error) {
	if !strings.HasSuffix(name, Extension) {
		return "", errors.Newf("directory: %q is not a cache record", name)
	}
	if strings.HasPrefix(name, hashedPrefix) {
		return "", errors.Newf("directory: %q is a hashed name, read the record for its key", name)
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, Extension))
	if err != nil {
		return "", errors.Wrapf(err, "directory: decode %q", name)
	}
	return string(b), nil
}

func path(dir, key string) string {
	return filepath.Join(dir, FileName(key))
}

func readRecord(file, key string) (*record, error) {
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrapf(err, "directory: corrupt record for %q", key)
	}
	return &r, nil
}

func (s *Storage) FindByKey(ctx context.Context, dir, key string) (*cache.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := readRecord(path(dir, key), key)
	if err != nil || r == nil {
		return nil, err
	}
	rec := &cache.Record{Value: r.Value}
	if r.Expiration != nil {
		t := time.Unix(0, *r.Expiration)
		rec.Expiration = &t
	}
	return rec, nil
}

func (s *Storage) Exists(ctx context.Context, dir, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(path(dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Storage) Insert(ctx context.Context, dir, key string, rec cache.Record) error {
	return s.Upsert(ctx, dir, key, rec)
}

func (s *Storage) Update(ctx context.Context, dir, key string, rec cache.Record) error {
	return s.Upsert(ctx, dir, key, rec)
}

// Upsert writes the record to a temporary file and renames it into place, so
// readers never see a partial record.
func (s *Storage) Upsert(ctx context.Context, dir, key string, rec cache.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := record{Key: key, Value: rec.Value}
	if rec.Expiration != nil {
		n := rec.Expiration.UnixNano()
		r.Expiration = &n
	}
	data, err := msgpack.Marshal(&r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, s.dirMode); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(s.fileMode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path(dir, key))
}

// Delete removes the file of every key that has one.
func (s *Storage) Delete(ctx context.Context, dir string, keys []string) error {
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Remove(path(dir, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// DeleteAll removes every record file in dir. Other files are left alone. A
// missing directory is already empty.
func (s *Storage) DeleteAll(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Keys lists the keys stored in dir, expired or not.
func (s *Storage) Keys(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.HasPrefix(e.Name(), hashedPrefix) {
			r, err := readRecord(filepath.Join(dir, e.Name()), e.Name())
			if err != nil {
				return nil, err
			}
			if r != nil {
				keys = append(keys, r.Key)
			}
			continue
		}
		key, err := KeyFromFileName(e.Name())
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
