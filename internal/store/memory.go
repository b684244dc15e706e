package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryCollection struct {
	docs  map[string]*Document
	byAPI map[string]string
}

// MemoryStore keeps documents in process. It backs tests and local demos.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memoryCollection),
		now:         time.Now,
	}
}

var emptyCollection = &memoryCollection{}

// lookup never creates, so it is safe under the read lock.
func (s *MemoryStore) lookup(name string) *memoryCollection {
	if c, ok := s.collections[name]; ok {
		return c
	}
	return emptyCollection
}

// collection creates name on first write. Callers hold the write lock.
func (s *MemoryStore) collection(name string) *memoryCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{docs: make(map[string]*Document), byAPI: make(map[string]string)}
		s.collections[name] = c
	}
	return c
}

func cloneDocument(doc *Document) *Document {
	out := *doc
	out.Fields = maps.Clone(doc.Fields)
	if out.Fields == nil {
		out.Fields = map[string]any{}
	}
	return &out
}

func (s *MemoryStore) Find(ctx context.Context, collection, sortField string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.lookup(collection)
	docs := make([]*Document, 0, len(c.docs))
	for _, doc := range c.docs {
		docs = append(docs, cloneDocument(doc))
	}

	slices.SortFunc(docs, func(a, b *Document) int {
		if n := cmp.Compare(sortValue(b, sortField), sortValue(a, sortField)); n != 0 {
			return n
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return docs, nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.lookup(collection).docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (s *MemoryStore) Create(ctx context.Context, collection string, doc *Document) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	if doc.ExternalID != "" {
		if _, exists := c.byAPI[doc.ExternalID]; exists {
			return nil, fmt.Errorf("failed to create document: %w", ErrDuplicate)
		}
	}

	now := s.now()
	stored := cloneDocument(doc)
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	c.docs[stored.ID] = stored
	if stored.ExternalID != "" {
		c.byAPI[stored.ExternalID] = stored.ID
	}

	return cloneDocument(stored), nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.lookup(collection).docs[id]
	if !ok {
		return nil, ErrNotFound
	}

	maps.Copy(doc.Fields, fields)
	doc.UpdatedAt = s.now()

	return cloneDocument(doc), nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.lookup(collection)
	doc, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}

	delete(c.docs, id)
	if doc.ExternalID != "" {
		delete(c.byAPI, doc.ExternalID)
	}

	return doc, nil
}

func (s *MemoryStore) BulkUpsert(ctx context.Context, collection string, ops []UpsertOp) (*BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	result := &BulkResult{Failed: []OpError{}}
	now := s.now()

	for _, op := range ops {
		if op.ExternalID == "" {
			result.Failed = append(result.Failed, OpError{Message: "missing external id"})
			continue
		}

		if id, ok := c.byAPI[op.ExternalID]; ok {
			doc := c.docs[id]
			maps.Copy(doc.Fields, op.Set)
			doc.UpdatedAt = now
			result.Matched++
			continue
		}

		doc := &Document{
			ID:         uuid.NewString(),
			ExternalID: op.ExternalID,
			Fields:     insertFields(op),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		c.docs[doc.ID] = doc
		c.byAPI[op.ExternalID] = doc.ID
		result.Inserted++
	}

	return result, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
