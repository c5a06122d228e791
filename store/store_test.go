package store

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/gamercodedev-jpg/smartpos-inventory/models"
)

type testRecord struct {
	Name string `json:"name"`
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestMemoryStoreCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	rev, err := m.Put(ctx, "k", "v1", 0)
	if err != nil {
		t.Fatalf("first put: %v", err)
	}
	if rev != 1 {
		t.Fatalf("expected revision 1, got %d", rev)
	}

	// stale writer loses
	_, err = m.Put(ctx, "k", "v2", 0)
	var conflict *models.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	payload, rev, ok, err := m.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if payload != "v1" || rev != 1 {
		t.Fatalf("expected v1 at revision 1, got %q at %d", payload, rev)
	}
}

func TestCollectionLoadSeedsMissingKey(t *testing.T) {
	ctx := context.Background()
	c := NewCollection[testRecord](NewMemoryStore(), discardLogger(), "k", 1, nil)

	records, rev, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty seed, got %d records", len(records))
	}
	if rev == 0 {
		t.Fatal("expected seed to be persisted with a fresh revision")
	}
}

func TestCollectionReseedsCorruptPayload(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if _, err := m.Put(ctx, "k", "{not json", 0); err != nil {
		t.Fatalf("seed corrupt payload: %v", err)
	}

	c := NewCollection[testRecord](m, discardLogger(), "k", 1, nil)
	records, _, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected reseeded empty collection, got %d records", len(records))
	}

	// subsequent loads read the healed envelope
	records, _, err = c.Load(ctx)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if records == nil {
		t.Fatal("expected non-nil records after reseed")
	}
}

func TestCollectionReseedsSchemaVersionMismatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if _, err := m.Put(ctx, "k", `{"version":99,"records":[{"name":"old"}]}`, 0); err != nil {
		t.Fatalf("seed old schema: %v", err)
	}

	c := NewCollection[testRecord](m, discardLogger(), "k", 1, nil)
	records, _, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected old-schema payload discarded, got %d records", len(records))
	}
}

func TestCollectionMutateRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewCollection[testRecord](NewMemoryStore(), discardLogger(), "k", 1, nil)

	out, err := c.Mutate(ctx, func(records []testRecord) ([]testRecord, error) {
		return append(records, testRecord{Name: "first"}), nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if len(out) != 1 || out[0].Name != "first" {
		t.Fatalf("unexpected mutate result %+v", out)
	}

	records, _, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 1 || records[0].Name != "first" {
		t.Fatalf("unexpected persisted records %+v", records)
	}
}

func TestCollectionMutateNilMeansNoWrite(t *testing.T) {
	ctx := context.Background()
	c := NewCollection[testRecord](NewMemoryStore(), discardLogger(), "k", 1, nil)

	if _, err := c.Mutate(ctx, func(records []testRecord) ([]testRecord, error) {
		return append(records, testRecord{Name: "first"}), nil
	}); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	_, rev1, _ := c.Load(ctx)

	if _, err := c.Mutate(ctx, func(records []testRecord) ([]testRecord, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("no-op mutate: %v", err)
	}
	_, rev2, _ := c.Load(ctx)
	if rev1 != rev2 {
		t.Fatalf("no-op mutate must not bump the revision: %d -> %d", rev1, rev2)
	}
}

// conflictingStore forces a conflict on the first n Puts to exercise the
// Mutate retry loop.
type conflictingStore struct {
	inner     *MemoryStore
	conflicts int
}

func (s *conflictingStore) Get(ctx context.Context, key string) (string, int64, bool, error) {
	return s.inner.Get(ctx, key)
}

func (s *conflictingStore) Put(ctx context.Context, key string, payload string, expectRev int64) (int64, error) {
	if s.conflicts > 0 {
		s.conflicts--
		return 0, &models.ConflictError{Key: key}
	}
	return s.inner.Put(ctx, key, payload, expectRev)
}

func (s *conflictingStore) Del(ctx context.Context, key string) error {
	return s.inner.Del(ctx, key)
}

func TestCollectionMutateRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	seed := NewCollection[testRecord](m, discardLogger(), "k", 1, nil)
	if _, _, err := seed.Load(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	calls := 0
	c := NewCollection[testRecord](&conflictingStore{inner: m, conflicts: 2}, discardLogger(), "k", 1, nil)
	out, err := c.Mutate(ctx, func(records []testRecord) ([]testRecord, error) {
		calls++
		return append(records, testRecord{Name: "retried"}), nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
}

func TestCollectionMutateGivesUpEventually(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	seed := NewCollection[testRecord](m, discardLogger(), "k", 1, nil)
	if _, _, err := seed.Load(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c := NewCollection[testRecord](&conflictingStore{inner: m, conflicts: 100}, discardLogger(), "k", 1, nil)
	_, err := c.Mutate(ctx, func(records []testRecord) ([]testRecord, error) {
		return append(records, testRecord{Name: "never"}), nil
	})
	var conflict *models.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict error after exhausting retries, got %v", err)
	}
}
