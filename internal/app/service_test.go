package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/domain"
	"github.com/openfabrik/datakit/internal/domain/filter"
	"github.com/openfabrik/datakit/internal/domain/page"
	"github.com/openfabrik/datakit/internal/platform/correlation"
	"github.com/openfabrik/datakit/internal/ports"
	"github.com/openfabrik/datakit/internal/repository"
)

type note struct {
	entity domain.Entity
	Title  string
}

func (n *note) Envelope() *domain.Entity { return &n.entity }

func (n *note) Validate() error {
	if n.Title == "" {
		return errors.New("title is required")
	}
	return nil
}

// memoryStore is a minimal thread-safe store for service tests. Criteria are
// not evaluated; reads return everything held.
type memoryStore struct {
	mu      sync.Mutex
	notes   map[domain.EntityID]*note
	failAll error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{notes: make(map[domain.EntityID]*note)}
}

func (m *memoryStore) Create(_ context.Context, n *note) (*note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	m.notes[n.Envelope().ID] = n
	return n, nil
}

func (m *memoryStore) FindByID(_ context.Context, id domain.EntityID) (*note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	n, ok := m.notes[id]
	if !ok {
		return nil, apperr.NewNotFound("note", id)
	}
	return n, nil
}

func (m *memoryStore) FindMany(_ context.Context, _ ports.Query) ([]*note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	all := make([]*note, 0, len(m.notes))
	for _, n := range m.notes {
		all = append(all, n)
	}
	return all, nil
}

func (m *memoryStore) Update(_ context.Context, n *note) (*note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	m.notes[n.Envelope().ID] = n
	return n, nil
}

func (m *memoryStore) Delete(_ context.Context, id domain.EntityID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notes, id)
	return nil
}

func (m *memoryStore) Count(_ context.Context, _ filter.Criteria) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return 0, m.failAll
	}
	return int64(len(m.notes)), nil
}

func (m *memoryStore) Search(_ context.Context, _ ports.SearchQuery) ([]*note, error) {
	return m.FindMany(context.Background(), ports.Query{})
}

var _ ports.Store[*note] = (*memoryStore)(nil)

func newNoteService(t *testing.T, store ports.Store[*note], opts ...ServiceOption[*note]) *Service[*note] {
	t.Helper()
	repo := repository.New("note", store, repository.DefaultConfig(), nil)
	return NewService(repo, nil, opts...)
}

func TestServiceCreate(t *testing.T) {
	t.Parallel()

	t.Run("persists a valid entity", func(t *testing.T) {
		t.Parallel()

		svc := newNoteService(t, newMemoryStore())
		created, err := svc.Create(context.Background(), &note{Title: "first"})
		require.NoError(t, err)
		assert.False(t, created.Envelope().ID.IsZero())
		assert.Equal(t, int64(1), created.Envelope().Version)
	})

	t.Run("rejects an invalid entity before persistence", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStore()
		svc := newNoteService(t, store)

		_, err := svc.Create(context.Background(), &note{})
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
		assert.Empty(t, store.notes)
	})

	t.Run("skips validation when disabled", func(t *testing.T) {
		t.Parallel()

		svc := newNoteService(t, newMemoryStore(), WithValidation[*note](false))
		_, err := svc.Create(context.Background(), &note{})
		require.NoError(t, err)
	})

	t.Run("stamps failures with a trace id", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStore()
		store.failAll = errors.New("connection reset")
		svc := newNoteService(t, store)

		_, err := svc.Create(context.Background(), &note{Title: "doomed"})
		require.Error(t, err)

		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.False(t, appErr.TraceID().IsZero())
		assert.Equal(t, apperr.KindInternal, appErr.Kind())
	})

	t.Run("reuses a trace id already on the context", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStore()
		store.failAll = errors.New("boom")
		svc := newNoteService(t, store)

		id := domain.NewTraceID()
		ctx := correlation.WithTraceID(context.Background(), id)

		_, err := svc.Create(ctx, &note{Title: "doomed"})
		require.Error(t, err)

		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, id, appErr.TraceID())
	})
}

func TestServiceGet(t *testing.T) {
	t.Parallel()

	t.Run("applies after-find hooks", func(t *testing.T) {
		t.Parallel()

		svc := newNoteService(t, newMemoryStore(),
			WithAfterFind[*note](func(_ context.Context, n *note) error {
				n.Title = "decorated:" + n.Title
				return nil
			}))

		created, err := svc.Create(context.Background(), &note{Title: "plain"})
		require.NoError(t, err)

		got, err := svc.Get(context.Background(), created.Envelope().ID)
		require.NoError(t, err)
		assert.Equal(t, "decorated:plain", got.Title)
	})

	t.Run("hook failure fails the read", func(t *testing.T) {
		t.Parallel()

		hookErr := errors.New("redaction unavailable")
		svc := newNoteService(t, newMemoryStore(),
			WithAfterFind[*note](func(context.Context, *note) error { return hookErr }))

		created, err := svc.Create(context.Background(), &note{Title: "hidden"})
		require.NoError(t, err)

		_, err = svc.Get(context.Background(), created.Envelope().ID)
		require.Error(t, err)
	})

	t.Run("not found passes through typed", func(t *testing.T) {
		t.Parallel()

		svc := newNoteService(t, newMemoryStore())
		_, err := svc.Get(context.Background(), domain.NewEntityID())
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestServiceUpdate(t *testing.T) {
	t.Parallel()

	t.Run("validates before persisting", func(t *testing.T) {
		t.Parallel()

		svc := newNoteService(t, newMemoryStore())
		created, err := svc.Create(context.Background(), &note{Title: "v1"})
		require.NoError(t, err)

		created.Title = ""
		_, err = svc.Update(context.Background(), created)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("bumps the version through the repository", func(t *testing.T) {
		t.Parallel()

		svc := newNoteService(t, newMemoryStore())
		created, err := svc.Create(context.Background(), &note{Title: "v1"})
		require.NoError(t, err)

		created.Title = "v2"
		updated, err := svc.Update(context.Background(), created)
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Envelope().Version)
	})
}

func TestServiceDeleteAndRestore(t *testing.T) {
	t.Parallel()

	svc := newNoteService(t, newMemoryStore())
	created, err := svc.Create(context.Background(), &note{Title: "cycle"})
	require.NoError(t, err)
	id := created.Envelope().ID

	require.NoError(t, svc.Delete(context.Background(), id))

	_, err = svc.Get(context.Background(), id)
	assert.True(t, apperr.IsNotFound(err))

	exists, err := svc.Exists(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, exists)

	restored, err := svc.Restore(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, restored.Envelope().IsDeleted())

	got, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "cycle", got.Title)
}

func TestServiceList(t *testing.T) {
	t.Parallel()

	svc := newNoteService(t, newMemoryStore())
	for _, title := range []string{"a", "b", "c"} {
		_, err := svc.Create(context.Background(), &note{Title: title})
		require.NoError(t, err)
	}

	result, err := svc.List(context.Background(), repository.ListOptions{
		Page: page.Options{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.Len(t, result.Data, 3)
	assert.Equal(t, int64(3), result.Meta.Total)
	assert.False(t, result.Meta.HasNext)
}

func TestServiceCount(t *testing.T) {
	t.Parallel()

	svc := newNoteService(t, newMemoryStore())
	_, err := svc.Create(context.Background(), &note{Title: "only"})
	require.NoError(t, err)

	total, err := svc.Count(context.Background(), filter.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestServiceBulkUpdate(t *testing.T) {
	t.Parallel()

	t.Run("independent outcomes in input order", func(t *testing.T) {
		t.Parallel()

		svc := newNoteService(t, newMemoryStore())

		first, err := svc.Create(context.Background(), &note{Title: "one"})
		require.NoError(t, err)
		second, err := svc.Create(context.Background(), &note{Title: "two"})
		require.NoError(t, err)

		first.Title = "one updated"
		second.Title = "" // fails validation

		results, err := svc.BulkUpdate(context.Background(), []*note{first, second})
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.NoError(t, results[0].Err)
		assert.Equal(t, "one updated", results[0].Entity.Title)

		require.Error(t, results[1].Err)
		assert.True(t, apperr.IsKind(results[1].Err, apperr.KindValidation))
	})

	t.Run("empty batch returns no results", func(t *testing.T) {
		t.Parallel()

		svc := newNoteService(t, newMemoryStore())
		results, err := svc.BulkUpdate(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
