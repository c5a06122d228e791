// Package store persists entity collections as versioned JSON envelopes
// under stable keys of an ordinary key-value substrate. The substrate is
// non-transactional: atomicity across lines lives in the callers
// (validate-all-then-apply-all), while lost multi-writer races are caught
// by a per-key monotonic revision compare-and-swap.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/gamercodedev-jpg/smartpos-inventory/config"
	"github.com/gamercodedev-jpg/smartpos-inventory/models"
)

// Store is the key-value substrate. A missing key reads as ok=false with
// revision 0; Put succeeds only when expectRev matches the current revision
// (0 for a key that does not exist yet) and returns the new revision.
// A mismatch returns *models.ConflictError.
type Store interface {
	Get(ctx context.Context, key string) (payload string, rev int64, ok bool, err error)
	Put(ctx context.Context, key string, payload string, expectRev int64) (int64, error)
	Del(ctx context.Context, key string) error
}

// envelope is the persisted shape of every collection.
type envelope struct {
	Version int             `json:"version"`
	Records json.RawMessage `json:"records"`
}

const mutateRetries = 5

// Collection reads and writes one entity collection's envelope. A payload
// that fails to parse or carries an unexpected schema version is reseeded
// from built-in defaults rather than crashing the process.
type Collection[T any] struct {
	store   Store
	key     string
	version int
	logger  *logrus.Logger
	seed    func() []T
}

func NewCollection[T any](s Store, logger *logrus.Logger, key string, version int, seed func() []T) *Collection[T] {
	if seed == nil {
		seed = func() []T { return []T{} }
	}
	return &Collection[T]{store: s, key: key, version: version, logger: logger, seed: seed}
}

func (c *Collection[T]) Key() string {
	return c.key
}

// Load returns the current records and the revision to pass back to Save.
func (c *Collection[T]) Load(ctx context.Context) ([]T, int64, error) {
	payload, rev, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return c.reseed(ctx, 0, "missing")
	}

	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return c.reseed(ctx, rev, "unparseable payload")
	}
	if env.Version != c.version {
		return c.reseed(ctx, rev, "schema version mismatch")
	}
	var records []T
	if err := json.Unmarshal(env.Records, &records); err != nil {
		return c.reseed(ctx, rev, "unparseable records")
	}
	if records == nil {
		records = []T{}
	}
	return records, rev, nil
}

// Save writes records at the given revision; *models.ConflictError means a
// concurrent writer won and the caller must re-read.
func (c *Collection[T]) Save(ctx context.Context, records []T, rev int64) (int64, error) {
	raw, err := json.Marshal(records)
	if err != nil {
		return 0, err
	}
	payload, err := json.Marshal(envelope{Version: c.version, Records: raw})
	if err != nil {
		return 0, err
	}
	return c.store.Put(ctx, c.key, string(payload), rev)
}

// Mutate runs a read-modify-write against the collection, retrying a
// bounded number of times on revision conflicts.
func (c *Collection[T]) Mutate(ctx context.Context, fn func(records []T) ([]T, error)) ([]T, error) {
	var lastErr error
	for attempt := 0; attempt < mutateRetries; attempt++ {
		records, rev, err := c.Load(ctx)
		if err != nil {
			return nil, err
		}
		out, err := fn(records)
		if err != nil {
			return nil, err
		}
		if out == nil {
			// fn declined to change anything
			return records, nil
		}
		if _, err := c.Save(ctx, out, rev); err != nil {
			var conflict *models.ConflictError
			if errors.As(err, &conflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return out, nil
	}
	return nil, lastErr
}

func (c *Collection[T]) reseed(ctx context.Context, rev int64, reason string) ([]T, int64, error) {
	if c.logger != nil && rev != 0 {
		config.LogWarn(c.logger, "store.go", "Load", c.key, "reseeding collection: "+reason)
	}
	records := c.seed()
	newRev, err := c.Save(ctx, records, rev)
	if err != nil {
		var conflict *models.ConflictError
		if errors.As(err, &conflict) {
			// another replica reseeded first; read theirs
			return c.Load(ctx)
		}
		return nil, 0, err
	}
	return records, newRev, nil
}
