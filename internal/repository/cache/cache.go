// Package cache decorates an ItemRepository with a Redis read-through cache.
//
// Each owner has a version counter. A listing is stored under its own key,
// derived from the owner, the version read before the listing was loaded and
// the query, with its own expiry. Writes by an owner bump the counter, so
// listings loaded before the write are never read again. Redis calls go
// through a circuit breaker; when Redis misbehaves every call falls through to
// the wrapped store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/karming-leong/datacentric-assingment/internal/domain"
	"github.com/karming-leong/datacentric-assingment/internal/repository"
)

const (
	defaultPrefix  = "supplies:items:"
	defaultTTL     = time.Minute
	defaultTimeout = 250 * time.Millisecond
)

// Repository caches item listings in front of another ItemRepository.
type Repository struct {
	next    repository.ItemRepository
	client  *redis.Client
	cb      *gobreaker.CircuitBreaker
	log     *slog.Logger
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

var _ repository.ItemRepository = (*Repository)(nil)

// New wraps next with a cache stored in client.
func New(next repository.ItemRepository, client *redis.Client, ttl time.Duration, log *slog.Logger) *Repository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	settings := gobreaker.Settings{
		Name:        "item-cache",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("cache circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Repository{
		next:    next,
		client:  client,
		cb:      gobreaker.NewCircuitBreaker(settings),
		log:     log,
		prefix:  defaultPrefix,
		ttl:     ttl,
		timeout: defaultTimeout,
	}
}

// Dial connects to Redis and verifies it answers.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// CreateItem stores the item and drops the owner's cached listings.
func (r *Repository) CreateItem(ctx context.Context, item *domain.Item) error {
	if err := r.next.CreateItem(ctx, item); err != nil {
		return err
	}
	r.invalidate(ctx, item.Owner)
	return nil
}

// ListItems serves the listing from cache when present.
func (r *Repository) ListItems(ctx context.Context, query domain.ItemQuery) ([]domain.Item, error) {
	field, err := queryField(query)
	if err != nil {
		return r.next.ListItems(ctx, query)
	}
	version, ok := r.version(ctx, query.Owner)
	if !ok {
		return r.next.ListItems(ctx, query)
	}
	key := r.listingKey(query.Owner, version, field)
	if items, ok := r.lookup(ctx, key); ok {
		return items, nil
	}
	items, err := r.next.ListItems(ctx, query)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, items)
	return items, nil
}

// UpdateItem updates the item and drops the owner's cached listings unless
// the patch changes nothing.
func (r *Repository) UpdateItem(ctx context.Context, owner, id string, patch domain.ItemPatch) (*domain.Item, error) {
	item, err := r.next.UpdateItem(ctx, owner, id, patch)
	if err != nil {
		return nil, err
	}
	if !patch.Empty() {
		r.invalidate(ctx, owner)
	}
	return item, nil
}

// DeleteItem deletes the item and drops the owner's cached listings.
func (r *Repository) DeleteItem(ctx context.Context, owner, id string) error {
	if err := r.next.DeleteItem(ctx, owner, id); err != nil {
		return err
	}
	r.invalidate(ctx, owner)
	return nil
}

// version returns the owner's current listing version; false means Redis
// could not be asked and the listing must not be cached.
func (r *Repository) version(ctx context.Context, owner string) (int64, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.cb.Execute(func() (interface{}, error) {
		v, err := r.client.Get(ctx, r.versionKey(owner)).Int64()
		if errors.Is(err, redis.Nil) {
			return int64(0), nil
		}
		return v, err
	})
	if err != nil {
		r.logError("get version", err)
		return 0, false
	}
	return raw.(int64), true
}

func (r *Repository) lookup(ctx context.Context, key string) ([]domain.Item, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.cb.Execute(func() (interface{}, error) {
		data, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		r.logError("get", err)
		return nil, false
	}
	data, _ := raw.([]byte)
	if data == nil {
		return nil, false
	}
	var items []domain.Item
	if err := json.Unmarshal(data, &items); err != nil {
		r.logError("decode", err)
		return nil, false
	}
	if items == nil {
		items = make([]domain.Item, 0)
	}
	return items, true
}

func (r *Repository) store(ctx context.Context, key string, items []domain.Item) {
	data, err := json.Marshal(items)
	if err != nil {
		r.logError("encode", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err = r.cb.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, key, data, r.ttl).Err()
	})
	if err != nil {
		r.logError("set", err)
	}
}

// invalidate ignores the breaker state: a skipped bump would leave stale
// listings for up to ttl.
func (r *Repository) invalidate(ctx context.Context, owner string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.client.Incr(ctx, r.versionKey(owner)).Err(); err != nil {
		r.logError("incr version", err)
	}
}

// The version key carries no expiry: resetting it to zero could revive
// listings still stored under an earlier zero version.
func (r *Repository) versionKey(owner string) string {
	return r.prefix + owner + ":version"
}

func (r *Repository) listingKey(owner string, version int64, field string) string {
	return r.prefix + owner + ":v" + strconv.FormatInt(version, 10) + ":" + field
}

func (r *Repository) logError(op string, err error) {
	r.log.Warn("item cache error", "op", op, "error", err)
}

type cacheField struct {
	Level *int   `json:"l,omitempty"`
	Text  string `json:"q,omitempty"`
	Type  string `json:"t,omitempty"`
	Sort  string `json:"s"`
}

// queryField encodes the non-owner parts of a query unambiguously.
func queryField(q domain.ItemQuery) (string, error) {
	data, err := json.Marshal(cacheField{Level: q.Level, Text: q.Text, Type: q.Type, Sort: string(q.Sort)})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
