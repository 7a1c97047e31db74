package lifecycle

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recordkit/recordkit/pkg/observability"
	"github.com/recordkit/recordkit/pkg/query"
	"github.com/recordkit/recordkit/pkg/record"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

// fakeStore is an in-memory RecordStore with CAS semantics. The mutex keeps
// it safe under the sweeper's concurrent replays.
type fakeStore struct {
	mu         sync.Mutex
	records    map[int64]*record.Record
	references map[int64]int64
	nextID     int64

	lastFilter *query.Filter
	lastSort   query.Sort
	lastPage   query.PageSpec
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:    map[int64]*record.Record{},
		references: map[int64]int64{},
	}
}

func (s *fakeStore) Create(ctx context.Context, rec *record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = s.nextID
	rec.LockVersion = 1
	clone := *rec
	s.records[rec.ID] = &clone
	return nil
}

func (s *fakeStore) Get(ctx context.Context, id int64) (*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, record.NewError(record.KindNotFound, "record not found")
	}
	clone := *rec
	return &clone, nil
}

func (s *fakeStore) Update(ctx context.Context, rec *record.Record, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[rec.ID]
	if !ok {
		return record.NewError(record.KindNotFound, "record not found")
	}
	if err := record.CheckVersion(stored.LockVersion, expectedVersion); err != nil {
		return err
	}
	rec.LockVersion = expectedVersion + 1
	clone := *rec
	s.records[rec.ID] = &clone
	return nil
}

func (s *fakeStore) SetSyncFlag(ctx context.Context, id int64, flag *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		rec.SyncFlag = flag
	}
	return nil
}

func (s *fakeStore) List(ctx context.Context, f *query.Filter, sort query.Sort, page query.PageSpec) ([]*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter, s.lastSort, s.lastPage = f, sort, page
	var out []*record.Record
	for _, rec := range s.records {
		clone := *rec
		out = append(out, &clone)
	}
	return out, nil
}

func (s *fakeStore) Count(ctx context.Context, f *query.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}

func (s *fakeStore) ListPendingSync(ctx context.Context, limit int) ([]*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*record.Record
	for _, rec := range s.records {
		if rec.NeedsSync() && len(out) < limit {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *fakeStore) ReferenceCount(ctx context.Context, id int64) (int64, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.references[id], "record_links.record_id", nil
}

func (s *fakeStore) HealthCheck(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                          { return nil }

// fakeMirror records upserts and can be told to fail.
type fakeMirror struct {
	mu      sync.Mutex
	fail    bool
	upserts map[int64]*record.Record
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{upserts: map[int64]*record.Record{}}
}

func (m *fakeMirror) Upsert(ctx context.Context, rec *record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("mirror unreachable")
	}
	clone := *rec
	m.upserts[rec.ID] = &clone
	return nil
}

func (m *fakeMirror) Ping(ctx context.Context) error { return nil }
func (m *fakeMirror) Close() error                   { return nil }

var testTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore, mirror *fakeMirror) *Service {
	opts := Options{Now: func() time.Time { return testTime }, Logger: testLogger()}
	if mirror != nil {
		opts.Mirror = mirror
	}
	policy, err := record.NewPolicy(record.DefaultTransitions(), nil)
	if err != nil {
		panic(err)
	}
	return NewService(store, policy, opts)
}

func seedRecord(t *testing.T, svc *Service, name string) *record.Record {
	t.Helper()
	rec, err := svc.Create(context.Background(), record.SystemActor(), Input{"name": name})
	require.NoError(t, err)
	return rec
}

func TestServiceCreate(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	rec, err := svc.Create(context.Background(), record.Actor{Name: "alice"}, Input{"name": "Item A"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, record.StatusDraft, rec.Status)
	assert.Equal(t, int64(1), rec.LockVersion)
	assert.Equal(t, "alice", rec.Detail.ChangeLog.CreatedBy)
	assert.Equal(t, testTime, rec.Detail.ChangeLog.CreatedAt)
	assert.Nil(t, rec.Detail.ChangeLog.UpdatedAt)
}

func TestServiceCreateStatusOverride(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	rec, err := svc.Create(context.Background(), record.SystemActor(), Input{
		"name":   "Item A",
		"status": float64(record.StatusActive),
	})
	require.NoError(t, err)
	assert.Equal(t, record.StatusActive, rec.Status)
}

func TestServiceCreateValidation(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input Input
		field string
	}{
		{name: "missing name", input: Input{}, field: "name"},
		{name: "unknown field", input: Input{"name": "x", "color": "red"}, field: "color"},
		{name: "id not permitted on create", input: Input{"name": "x", "id": float64(3)}, field: "id"},
		{name: "invalid status", input: Input{"name": "x", "status": float64(42)}, field: "status"},
		{name: "empty name", input: Input{"name": ""}, field: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, record.SystemActor(), tt.input)
			require.Error(t, err)
			assert.True(t, record.IsKind(err, record.KindValidation))
			fields := record.FieldsOf(err)
			require.NotEmpty(t, fields)
			found := false
			for _, f := range fields {
				if f.Field == tt.field {
					found = true
				}
			}
			assert.True(t, found, "expected a field error on %q, got %v", tt.field, fields)
		})
	}
}

func TestServiceUpdate(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()
	rec := seedRecord(t, svc, "Item A")

	got, err := svc.Update(ctx, record.Actor{Name: "bob"}, Input{
		"id":           float64(rec.ID),
		"lock_version": float64(1),
		"name":         "Item A v2",
	})
	require.NoError(t, err)

	assert.Equal(t, "Item A v2", got.Name)
	assert.Equal(t, int64(2), got.LockVersion)
	require.NotNil(t, got.Detail.ChangeLog.UpdatedAt)
	assert.Equal(t, "bob", got.Detail.ChangeLog.UpdatedBy)
	// created fields never move
	assert.Equal(t, "system", got.Detail.ChangeLog.CreatedBy)
}

func TestServiceUpdateStaleLock(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()
	rec := seedRecord(t, svc, "Item A")

	// bump to version 3
	for _, name := range []string{"v2", "v3"} {
		var err error
		rec, err = svc.Update(ctx, record.SystemActor(), Input{
			"id": float64(rec.ID), "lock_version": float64(rec.LockVersion), "name": name,
		})
		require.NoError(t, err)
	}
	require.Equal(t, int64(3), rec.LockVersion)

	_, err := svc.Update(ctx, record.SystemActor(), Input{
		"id": float64(rec.ID), "lock_version": float64(2), "name": "stale",
	})
	require.Error(t, err)
	assert.True(t, record.IsKind(err, record.KindLockConflict))
	// nothing persisted
	stored, _ := store.Get(ctx, rec.ID)
	assert.Equal(t, "v3", stored.Name)
}

func TestServiceUpdateStatusRegression(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()
	rec := seedRecord(t, svc, "Item A")

	// Draft -> Active -> Completed
	rec, err := svc.Update(ctx, record.SystemActor(), Input{
		"id": float64(rec.ID), "lock_version": float64(1), "status": float64(record.StatusActive),
	})
	require.NoError(t, err)
	rec, err = svc.Update(ctx, record.SystemActor(), Input{
		"id": float64(rec.ID), "lock_version": float64(2), "status": float64(record.StatusCompleted),
	})
	require.NoError(t, err)

	_, err = svc.Update(ctx, record.SystemActor(), Input{
		"id": float64(rec.ID), "lock_version": float64(3), "status": float64(record.StatusDraft),
	})
	require.Error(t, err)
	assert.True(t, record.IsKind(err, record.KindInvalidTransition))
}

func TestServiceStatusCheckedBeforeLock(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()
	rec := seedRecord(t, svc, "Item A")

	rec, err := svc.Update(ctx, record.SystemActor(), Input{
		"id": float64(rec.ID), "lock_version": float64(1), "status": float64(record.StatusActive),
	})
	require.NoError(t, err)

	// both an illegal transition and a stale lock: the transition wins
	_, err = svc.Update(ctx, record.SystemActor(), Input{
		"id": float64(rec.ID), "lock_version": float64(1), "status": float64(record.StatusDraft),
	})
	require.Error(t, err)
	assert.True(t, record.IsKind(err, record.KindInvalidTransition))
}

func TestServiceNoEffectiveChange(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()
	rec := seedRecord(t, svc, "Item A")

	t.Run("only id and lock version submitted", func(t *testing.T) {
		_, err := svc.Update(ctx, record.SystemActor(), Input{
			"id": float64(rec.ID), "lock_version": float64(1),
		})
		require.Error(t, err)
		assert.True(t, record.IsKind(err, record.KindNoEffectiveChange))
		assert.Contains(t, err.Error(), "no record updated")
	})

	t.Run("same values submitted", func(t *testing.T) {
		_, err := svc.Update(ctx, record.SystemActor(), Input{
			"id": float64(rec.ID), "lock_version": float64(1), "name": "Item A",
		})
		require.Error(t, err)
		assert.True(t, record.IsKind(err, record.KindNoEffectiveChange))
	})

	t.Run("change log untouched by rejected saves", func(t *testing.T) {
		stored, err := store.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.Detail.ChangeLog.UpdatedAt)
	})
}

func TestServiceDelete(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()
	rec := seedRecord(t, svc, "Item A")

	got, err := svc.Delete(ctx, record.Actor{Name: "bob"}, Input{
		"id": float64(rec.ID), "lock_version": float64(1),
	})
	require.NoError(t, err)

	assert.Equal(t, record.StatusDeleted, got.Status)
	require.NotNil(t, got.Detail.ChangeLog.DeletedAt)
	assert.Equal(t, "bob", got.Detail.ChangeLog.DeletedBy)
	assert.Nil(t, got.Detail.ChangeLog.UpdatedAt)

	t.Run("deleting again is a no-op", func(t *testing.T) {
		_, err := svc.Delete(ctx, record.SystemActor(), Input{
			"id": float64(rec.ID), "lock_version": float64(2),
		})
		require.Error(t, err)
		assert.True(t, record.IsKind(err, record.KindNoEffectiveChange))
		assert.Contains(t, err.Error(), "no record deleted")
	})
}

func TestServiceDeletedRecordFrozen(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()
	rec := seedRecord(t, svc, "Item A")

	_, err := svc.Delete(ctx, record.SystemActor(), Input{
		"id": float64(rec.ID), "lock_version": float64(1),
	})
	require.NoError(t, err)

	t.Run("plain actor cannot touch it", func(t *testing.T) {
		_, err := svc.Update(ctx, record.SystemActor(), Input{
			"id": float64(rec.ID), "lock_version": float64(2), "name": "sneaky",
		})
		require.Error(t, err)
		assert.True(t, record.IsKind(err, record.KindPermissionDenied))
	})

	t.Run("superadmin revives it", func(t *testing.T) {
		admin := record.Actor{Name: "root", Privileges: []string{record.PrivilegeSuperadmin}}
		got, err := svc.Update(ctx, admin, Input{
			"id": float64(rec.ID), "lock_version": float64(2), "status": float64(record.StatusActive),
		})
		require.NoError(t, err)
		assert.Equal(t, record.StatusActive, got.Status)
	})
}

func TestServiceDependencyBlocked(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()
	rec := seedRecord(t, svc, "Item A")
	store.references[rec.ID] = 2

	t.Run("rename blocked", func(t *testing.T) {
		_, err := svc.Update(ctx, record.SystemActor(), Input{
			"id": float64(rec.ID), "lock_version": float64(1), "name": "renamed",
		})
		require.Error(t, err)
		assert.True(t, record.IsKind(err, record.KindDependencyBlocked))
		assert.Contains(t, err.Error(), "record_links.record_id")
	})

	t.Run("delete blocked", func(t *testing.T) {
		_, err := svc.Delete(ctx, record.SystemActor(), Input{
			"id": float64(rec.ID), "lock_version": float64(1),
		})
		require.Error(t, err)
		assert.True(t, record.IsKind(err, record.KindDependencyBlocked))
	})

	t.Run("description change is not guarded", func(t *testing.T) {
		_, err := svc.Update(ctx, record.SystemActor(), Input{
			"id": float64(rec.ID), "lock_version": float64(1), "description": "more detail",
		})
		assert.NoError(t, err)
	})
}

func TestServiceMirrorWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("failure flags the record but the request succeeds", func(t *testing.T) {
		store := newFakeStore()
		mirror := newFakeMirror()
		mirror.fail = true
		svc := newTestService(store, mirror)

		rec, err := svc.Create(ctx, record.SystemActor(), Input{"name": "Item A"})
		require.NoError(t, err)
		assert.True(t, rec.NeedsSync())

		stored, err := store.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.True(t, stored.NeedsSync())
	})

	t.Run("success mirrors the record", func(t *testing.T) {
		store := newFakeStore()
		mirror := newFakeMirror()
		svc := newTestService(store, mirror)

		rec, err := svc.Create(ctx, record.SystemActor(), Input{"name": "Item A"})
		require.NoError(t, err)
		assert.Nil(t, rec.SyncFlag)
		assert.Contains(t, mirror.upserts, rec.ID)
	})

	t.Run("recovered mirror clears the flag", func(t *testing.T) {
		store := newFakeStore()
		mirror := newFakeMirror()
		mirror.fail = true
		svc := newTestService(store, mirror)

		rec, err := svc.Create(ctx, record.SystemActor(), Input{"name": "Item A"})
		require.NoError(t, err)
		require.True(t, rec.NeedsSync())

		mirror.fail = false
		rec, err = svc.Update(ctx, record.SystemActor(), Input{
			"id": float64(rec.ID), "lock_version": float64(1), "name": "Item A v2",
		})
		require.NoError(t, err)
		assert.Nil(t, rec.SyncFlag)
	})
}

func TestServiceGet(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()
	rec := seedRecord(t, svc, "Item A")

	got, err := svc.Get(ctx, record.SystemActor(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = svc.Get(ctx, record.SystemActor(), 999)
	assert.True(t, record.IsKind(err, record.KindNotFound))

	_, err = svc.Delete(ctx, record.SystemActor(), Input{
		"id": float64(rec.ID), "lock_version": float64(1),
	})
	require.NoError(t, err)

	t.Run("deleted is invisible to plain actors", func(t *testing.T) {
		_, err := svc.Get(ctx, record.SystemActor(), rec.ID)
		assert.True(t, record.IsKind(err, record.KindNotFound))
	})

	t.Run("deleted is visible to superadmin", func(t *testing.T) {
		admin := record.Actor{Name: "root", Privileges: []string{record.PrivilegeSuperadmin}}
		got, err := svc.Get(ctx, admin, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, record.StatusDeleted, got.Status)
	})
}

func TestServiceList(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		seedRecord(t, svc, name)
	}

	t.Run("page below one is rejected", func(t *testing.T) {
		_, _, err := svc.List(ctx, ListRequest{Page: 0})
		require.Error(t, err)
		assert.True(t, record.IsKind(err, record.KindValidation))
		assert.Contains(t, err.Error(), "greater than zero")
	})

	t.Run("size clamps to total", func(t *testing.T) {
		records, page, err := svc.List(ctx, ListRequest{Page: 1, Size: 10})
		require.NoError(t, err)
		assert.Len(t, records, 5)
		assert.Equal(t, 5, page.Size)
		assert.Equal(t, 0, page.Offset)
		assert.Equal(t, int64(5), page.Total)
	})

	t.Run("sort defaults to id desc", func(t *testing.T) {
		_, _, err := svc.List(ctx, ListRequest{Page: 1})
		require.NoError(t, err)
		assert.Equal(t, query.Sort{Field: "id", Direction: "desc"}, store.lastSort)
	})

	t.Run("unknown sort field falls back to id", func(t *testing.T) {
		_, _, err := svc.List(ctx, ListRequest{Page: 1, SortBy: "detail", SortOrder: "asc"})
		require.NoError(t, err)
		assert.Equal(t, query.Sort{Field: "id", Direction: "asc"}, store.lastSort)
	})

	t.Run("filters reach the store", func(t *testing.T) {
		_, _, err := svc.List(ctx, ListRequest{Page: 1, Name: "item", Search: "foo"})
		require.NoError(t, err)
		require.NotNil(t, store.lastFilter)
		where, _ := store.lastFilter.SQL(1)
		assert.Contains(t, where, "lower(name) LIKE")
		assert.Contains(t, where, " OR ")
	})
}

func TestSweeper(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	mirror := newFakeMirror()
	mirror.fail = true
	svc := newTestService(store, mirror)

	// three records created while the mirror is down
	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, record.SystemActor(), Input{"name": name})
		require.NoError(t, err)
	}

	sweeper := NewSweeper(store, mirror, testLogger(), nil, 10)

	t.Run("mirror still down keeps records flagged", func(t *testing.T) {
		synced, err := sweeper.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, synced)
		pending, _ := store.ListPendingSync(ctx, 10)
		assert.Len(t, pending, 3)
	})

	t.Run("recovered mirror drains the backlog", func(t *testing.T) {
		mirror.fail = false
		synced, err := sweeper.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, synced)
		assert.Len(t, mirror.upserts, 3)
		pending, _ := store.ListPendingSync(ctx, 10)
		assert.Empty(t, pending)
	})

	t.Run("nothing left to sweep", func(t *testing.T) {
		synced, err := sweeper.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, synced)
	})
}

func TestSweeperSchedule(t *testing.T) {
	sweeper := NewSweeper(newFakeStore(), newFakeMirror(), testLogger(), nil, 10)

	assert.Error(t, sweeper.Start("not a schedule"))
	assert.NoError(t, sweeper.Start("*/5 * * * *"))
	sweeper.Stop()
}
