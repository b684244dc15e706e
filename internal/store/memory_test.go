package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.Create(ctx, CollectionDSA, &Document{Fields: map[string]any{"problemName": "Two Sum"}})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := s.Get(ctx, CollectionDSA, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Two Sum", got.Fields["problemName"])

	deleted, err := s.Delete(ctx, CollectionDSA, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = s.Get(ctx, CollectionDSA, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Delete(ctx, CollectionDSA, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.Create(ctx, CollectionVideos, &Document{Fields: map[string]any{"title": "a", "views": 10}})
	require.NoError(t, err)

	updated, err := s.Update(ctx, CollectionVideos, created.ID, map[string]any{"title": "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", updated.Fields["title"])
	assert.Equal(t, 10, updated.Fields["views"])

	_, err = s.Update(ctx, CollectionVideos, "missing", map[string]any{"title": "c"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ExternalIDIsSparselyUnique(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Create(ctx, CollectionVideos, &Document{Fields: map[string]any{}})
	require.NoError(t, err)
	_, err = s.Create(ctx, CollectionVideos, &Document{Fields: map[string]any{}})
	require.NoError(t, err)

	_, err = s.Create(ctx, CollectionVideos, &Document{ExternalID: "v1", Fields: map[string]any{}})
	require.NoError(t, err)
	_, err = s.Create(ctx, CollectionVideos, &Document{ExternalID: "v1", Fields: map[string]any{}})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryStore_FindSortsDescending(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, d := range []string{"2024-01-02", "2024-03-01", "2023-12-31"} {
		_, err := s.Create(ctx, CollectionDSA, &Document{Fields: map[string]any{"date": d}})
		require.NoError(t, err)
	}

	docs, err := s.Find(ctx, CollectionDSA, "date")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "2024-03-01", docs[0].Fields["date"])
	assert.Equal(t, "2023-12-31", docs[2].Fields["date"])
}

func TestMemoryStore_BulkUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ops := []UpsertOp{{
		ExternalID:  "v1",
		Set:         map[string]any{"title": "First"},
		SetOnInsert: map[string]any{"views": 0, "title": "ignored"},
	}}

	res, err := s.BulkUpsert(ctx, CollectionVideos, ops)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 0, res.Matched)

	docs, err := s.Find(ctx, CollectionVideos, "date")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "First", docs[0].Fields["title"])

	_, err = s.Update(ctx, CollectionVideos, docs[0].ID, map[string]any{"views": 120})
	require.NoError(t, err)

	ops[0].Set = map[string]any{"title": "Renamed"}
	res, err = s.BulkUpsert(ctx, CollectionVideos, ops)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 1, res.Matched)

	docs, err = s.Find(ctx, CollectionVideos, "date")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Renamed", docs[0].Fields["title"])
	assert.Equal(t, 120, docs[0].Fields["views"])
}

func TestMemoryStore_BulkUpsertRejectsMissingExternalID(t *testing.T) {
	s := NewMemoryStore()

	res, err := s.BulkUpsert(context.Background(), CollectionVideos, []UpsertOp{
		{Set: map[string]any{"title": "no id"}},
		{ExternalID: "v2", Set: map[string]any{"title": "ok"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "missing external id", res.Failed[0].Message)
}

func TestMemoryStore_ReturnedDocumentsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.Create(ctx, CollectionDSA, &Document{Fields: map[string]any{"topic": "graphs"}})
	require.NoError(t, err)
	created.Fields["topic"] = "mutated"

	got, err := s.Get(ctx, CollectionDSA, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "graphs", got.Fields["topic"])
}

func TestMemoryStore_ConcurrentReadsOfUnwrittenCollections(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("fresh_%d", i%10)

			docs, err := s.Find(ctx, name, "date")
			assert.NoError(t, err)
			assert.Empty(t, docs)

			_, err = s.Get(ctx, name, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.Create(ctx, "fresh_0", &Document{Fields: map[string]any{"date": "2024-03-10"}})
		assert.NoError(t, err)
	}()
	wg.Wait()

	docs, err := s.Find(ctx, "fresh_0", "date")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = s.Update(ctx, "never_written", "missing", map[string]any{"x": 1})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Delete(ctx, "never_written", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
