package store

import (
	"context"
	"errors"
	"maps"
	"time"
)

const (
	CollectionDSA       = "dsa_entries"
	CollectionVideos    = "video_entries"
	CollectionInstagram = "instagram_posts"
	CollectionLinkedIn  = "linkedin_posts"
	CollectionProjects  = "projects"
	CollectionTasks     = "daily_tasks"
)

// Collections lists every collection the schema bootstrap creates.
var Collections = []string{
	CollectionDSA,
	CollectionVideos,
	CollectionInstagram,
	CollectionLinkedIn,
	CollectionProjects,
	CollectionTasks,
}

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate external id")
)

// Document is one stored record. An empty ExternalID marks a locally
// authored record; only non-empty ids are unique within a collection.
type Document struct {
	ID         string         `json:"id"`
	ExternalID string         `json:"apiId,omitempty"`
	Fields     map[string]any `json:"fields"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// UpsertOp reconciles one remote item. Set is written on every run;
// SetOnInsert only when the record is created, so locally edited fields
// survive later syncs.
type UpsertOp struct {
	ExternalID  string
	Set         map[string]any
	SetOnInsert map[string]any
}

type OpError struct {
	ExternalID string `json:"externalId"`
	Message    string `json:"message"`
}

type BulkResult struct {
	Inserted int       `json:"inserted"`
	Matched  int       `json:"matched"`
	Failed   []OpError `json:"failed"`
}

type Store interface {
	// Find returns every document in the collection, newest sortField first.
	Find(ctx context.Context, collection, sortField string) ([]*Document, error)
	Get(ctx context.Context, collection, id string) (*Document, error)
	Create(ctx context.Context, collection string, doc *Document) (*Document, error)
	// Update merges fields into the stored document and leaves the rest as is.
	Update(ctx context.Context, collection, id string, fields map[string]any) (*Document, error)
	Delete(ctx context.Context, collection, id string) (*Document, error)
	BulkUpsert(ctx context.Context, collection string, ops []UpsertOp) (*BulkResult, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// insertFields is what a freshly inserted upsert document holds.
func insertFields(op UpsertOp) map[string]any {
	fields := make(map[string]any, len(op.Set)+len(op.SetOnInsert))
	maps.Copy(fields, op.SetOnInsert)
	maps.Copy(fields, op.Set)
	return fields
}

// onInsertOnly strips keys from SetOnInsert that Set already writes.
func onInsertOnly(op UpsertOp) map[string]any {
	fields := make(map[string]any, len(op.SetOnInsert))
	for k, v := range op.SetOnInsert {
		if _, ok := op.Set[k]; !ok {
			fields[k] = v
		}
	}
	return fields
}

func sortValue(doc *Document, field string) string {
	if v, ok := doc.Fields[field].(string); ok {
		return v
	}
	return ""
}
