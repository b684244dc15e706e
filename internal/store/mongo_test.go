package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestNormalizeValue(t *testing.T) {
	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	oid := primitive.NewObjectID()

	got := normalizeValue(bson.D{
		{Key: "when", Value: primitive.NewDateTimeFromTime(at)},
		{Key: "tags", Value: bson.A{"go", int32(3), oid}},
		{Key: "meta", Value: bson.M{"views": int32(12), "ratio": 0.5}},
	})

	assert.Equal(t, map[string]any{
		"when": "2024-03-10T08:00:00Z",
		"tags": []any{"go", int64(3), oid.Hex()},
		"meta": map[string]any{"views": int64(12), "ratio": 0.5},
	}, got)

	assert.Equal(t, "plain", normalizeValue("plain"))
	assert.Equal(t, int64(7), normalizeValue(int64(7)))
}

func TestDocumentFromBSON(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	oid := primitive.NewObjectID()

	doc := documentFromBSON(bson.M{
		mongoIDField:        oid,
		mongoAPIIDField:     "v1",
		mongoCreatedAtField: primitive.NewDateTimeFromTime(created),
		mongoUpdatedAtField: primitive.NewDateTimeFromTime(updated),
		"title":             "Two Sum",
		"views":             int32(40),
	})

	assert.Equal(t, oid.Hex(), doc.ID)
	assert.Equal(t, "v1", doc.ExternalID)
	assert.True(t, created.Equal(doc.CreatedAt))
	assert.True(t, updated.Equal(doc.UpdatedAt))
	assert.Equal(t, map[string]any{"title": "Two Sum", "views": int64(40)}, doc.Fields)

	local := documentFromBSON(bson.M{mongoIDField: "custom", "title": "manual"})
	assert.Equal(t, "custom", local.ID)
	assert.Empty(t, local.ExternalID)
	assert.True(t, local.CreatedAt.IsZero())
}

func TestWithoutReserved(t *testing.T) {
	got := withoutReserved(map[string]any{
		mongoIDField:        "x",
		mongoAPIIDField:     "y",
		mongoCreatedAtField: "z",
		mongoUpdatedAtField: "w",
		"title":             "kept",
	})
	assert.Equal(t, bson.M{"title": "kept"}, got)
}

func TestObjectID_InvalidIsNotFound(t *testing.T) {
	_, err := objectID("not-an-object-id")
	assert.ErrorIs(t, err, ErrNotFound)

	oid := primitive.NewObjectID()
	got, err := objectID(oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, oid, got)
}

func TestUpsertModel_SetOnInsertSkipsSetKeys(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	m := upsertModel(UpsertOp{
		ExternalID:  "v1",
		Set:         map[string]any{"title": "One", "views": 9},
		SetOnInsert: map[string]any{"views": 0, "likes": 0},
	}, now)

	require.NotNil(t, m.Upsert)
	assert.True(t, *m.Upsert)
	assert.Equal(t, bson.D{{Key: mongoAPIIDField, Value: "v1"}}, m.Filter)

	update, ok := m.Update.(bson.D)
	require.True(t, ok)
	require.Len(t, update, 2)

	assert.Equal(t, "$set", update[0].Key)
	assert.Equal(t, bson.M{"title": "One", "views": 9, mongoUpdatedAtField: now}, update[0].Value)

	assert.Equal(t, "$setOnInsert", update[1].Key)
	assert.Equal(t, bson.M{"likes": 0, mongoCreatedAtField: now}, update[1].Value)
}

func TestWriteFailures_MapsIndexToOp(t *testing.T) {
	valid := []UpsertOp{{ExternalID: "a"}, {ExternalID: "b"}, {ExternalID: "c"}}

	failed := writeFailures(valid, []mongo.BulkWriteError{
		{WriteError: mongo.WriteError{Index: 1, Code: 11000, Message: "E11000 duplicate key"}},
		{WriteError: mongo.WriteError{Index: 9, Message: "out of range"}},
	})

	assert.Equal(t, []OpError{
		{ExternalID: "b", Message: "E11000 duplicate key"},
		{ExternalID: "", Message: "out of range"},
	}, failed)
}
