package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Astemirdum/library-loans/library/config"
	"github.com/Astemirdum/library-loans/library/internal/model"
)

const (
	booksKey   = "library:books:active"
	versionKey = "library:books:version"
)

type Cache struct {
	db  *redis.Client
	ttl time.Duration
}

func New(ctx context.Context, cfg config.Redis) (*Cache, error) {
	db := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := db.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "cache.New")
	}
	return &Cache{db: db, ttl: cfg.TTL}, nil
}

// GetBooks returns the cached listing, or the current version on a miss.
func (c *Cache) GetBooks(ctx context.Context) ([]model.Book, int64, bool, error) {
	version, err := c.version(ctx, c.db)
	if err != nil {
		return nil, 0, false, err
	}
	val, err := c.db.Get(ctx, booksKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, version, false, nil
	}
	if err != nil {
		return nil, 0, false, errors.Wrap(err, "cache.GetBooks")
	}
	var books []model.Book
	if err = json.Unmarshal(val, &books); err != nil {
		return nil, 0, false, errors.Wrap(err, "cache.GetBooks")
	}
	return books, version, true, nil
}

// SetBooks stores books read at version. A listing read before the last
// Invalidate is discarded.
func (c *Cache) SetBooks(ctx context.Context, version int64, books []model.Book) error {
	if books == nil {
		books = []model.Book{}
	}
	data, err := json.Marshal(books)
	if err != nil {
		return errors.Wrap(err, "cache.SetBooks")
	}
	err = c.db.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.version(ctx, tx)
		if err != nil || current != version {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, booksKey, data, c.ttl)
			return nil
		})
		return err
	}, versionKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return errors.Wrap(err, "cache.SetBooks")
}

// Invalidate drops the listing and bumps the version in one transaction.
func (c *Cache) Invalidate(ctx context.Context) error {
	_, err := c.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey)
		pipe.Del(ctx, booksKey)
		return nil
	})
	return errors.Wrap(err, "cache.Invalidate")
}

func (c *Cache) Close() error {
	return c.db.Close()
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *Cache) version(ctx context.Context, cmd getter) (int64, error) {
	v, err := cmd.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, errors.Wrap(err, "cache.version")
}

// Nop never hits. It is used when Redis is disabled.
type Nop struct{}

func (Nop) GetBooks(context.Context) ([]model.Book, int64, bool, error) { return nil, 0, false, nil }

func (Nop) SetBooks(context.Context, int64, []model.Book) error { return nil }

func (Nop) Invalidate(context.Context) error { return nil }

func (Nop) Close() error { return nil }
