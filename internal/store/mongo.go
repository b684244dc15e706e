package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoIDField        = "_id"
	mongoAPIIDField     = "apiId"
	mongoCreatedAtField = "createdAt"
	mongoUpdatedAtField = "updatedAt"
)

// MongoStore maps each collection onto a Mongo collection with the record
// fields stored flat next to _id and apiId.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoStore{client: client, db: client.Database(database)}, nil
}

// EnsureSchema creates the sparse unique apiId index on every collection.
func (s *MongoStore) EnsureSchema(ctx context.Context) error {
	for _, c := range Collections {
		_, err := s.db.Collection(c).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: mongoAPIIDField, Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		})
		if err != nil {
			return fmt.Errorf("failed to create apiId index on %s: %w", c, err)
		}
	}
	return nil
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalizeValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339Nano)
	case primitive.ObjectID:
		return t.Hex()
	case int32:
		return int64(t)
	default:
		return v
	}
}

func documentFromBSON(raw bson.M) *Document {
	doc := &Document{Fields: make(map[string]any, len(raw))}

	for k, v := range raw {
		switch k {
		case mongoIDField:
			if oid, ok := v.(primitive.ObjectID); ok {
				doc.ID = oid.Hex()
			} else {
				doc.ID = fmt.Sprint(v)
			}
		case mongoAPIIDField:
			if s, ok := v.(string); ok {
				doc.ExternalID = s
			}
		case mongoCreatedAtField:
			if dt, ok := v.(primitive.DateTime); ok {
				doc.CreatedAt = dt.Time().UTC()
			}
		case mongoUpdatedAtField:
			if dt, ok := v.(primitive.DateTime); ok {
				doc.UpdatedAt = dt.Time().UTC()
			}
		default:
			doc.Fields[k] = normalizeValue(v)
		}
	}

	return doc
}

// withoutReserved drops keys that the store manages itself.
func withoutReserved(fields map[string]any) bson.M {
	out := make(bson.M, len(fields))
	for k, v := range fields {
		switch k {
		case mongoIDField, mongoAPIIDField, mongoCreatedAtField, mongoUpdatedAtField:
			continue
		}
		out[k] = v
	}
	return out
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func (s *MongoStore) Find(ctx context.Context, collection, sortField string) ([]*Document, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: sortField, Value: -1},
		{Key: mongoCreatedAtField, Value: -1},
	})

	cursor, err := s.db.Collection(collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	docs := make([]*Document, 0)
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", collection, err)
		}
		docs = append(docs, documentFromBSON(raw))
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", collection, err)
	}

	return docs, nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var raw bson.M
	err = s.db.Collection(collection).FindOne(ctx, bson.D{{Key: mongoIDField, Value: oid}}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return documentFromBSON(raw), nil
}

func (s *MongoStore) Create(ctx context.Context, collection string, doc *Document) (*Document, error) {
	now := time.Now().UTC()
	body := withoutReserved(doc.Fields)
	oid := primitive.NewObjectID()

	body[mongoIDField] = oid
	body[mongoCreatedAtField] = now
	body[mongoUpdatedAtField] = now
	if doc.ExternalID != "" {
		body[mongoAPIIDField] = doc.ExternalID
	}

	if _, err := s.db.Collection(collection).InsertOne(ctx, body); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("failed to create document: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return s.Get(ctx, collection, oid.Hex())
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	set := withoutReserved(fields)
	set[mongoUpdatedAtField] = time.Now().UTC()

	var raw bson.M
	err = s.db.Collection(collection).FindOneAndUpdate(ctx,
		bson.D{{Key: mongoIDField, Value: oid}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	return documentFromBSON(raw), nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) (*Document, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var raw bson.M
	err = s.db.Collection(collection).FindOneAndDelete(ctx, bson.D{{Key: mongoIDField, Value: oid}}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete document: %w", err)
	}
	return documentFromBSON(raw), nil
}

func upsertModel(op UpsertOp, now time.Time) *mongo.UpdateOneModel {
	set := withoutReserved(op.Set)
	set[mongoUpdatedAtField] = now

	onInsert := withoutReserved(onInsertOnly(op))
	onInsert[mongoCreatedAtField] = now

	return mongo.NewUpdateOneModel().
		SetFilter(bson.D{{Key: mongoAPIIDField, Value: op.ExternalID}}).
		SetUpdate(bson.D{
			{Key: "$set", Value: set},
			{Key: "$setOnInsert", Value: onInsert},
		}).
		SetUpsert(true)
}

// writeFailures maps per-write errors back to the ops they came from. Index
// is the position in the submitted models, which skips invalid ops.
func writeFailures(valid []UpsertOp, errs []mongo.BulkWriteError) []OpError {
	failed := make([]OpError, 0, len(errs))
	for _, we := range errs {
		ref := ""
		if we.Index >= 0 && we.Index < len(valid) {
			ref = valid[we.Index].ExternalID
		}
		failed = append(failed, OpError{ExternalID: ref, Message: we.Message})
	}
	return failed
}

// BulkWrite runs unordered, so one bad op does not stop the rest. A failure
// that is not a per-write error falls back to upserting op by op.
func (s *MongoStore) BulkUpsert(ctx context.Context, collection string, ops []UpsertOp) (*BulkResult, error) {
	result := &BulkResult{Failed: []OpError{}}
	now := time.Now().UTC()

	valid := make([]UpsertOp, 0, len(ops))
	models := make([]mongo.WriteModel, 0, len(ops))
	for _, op := range ops {
		if op.ExternalID == "" {
			result.Failed = append(result.Failed, OpError{Message: "missing external id"})
			continue
		}
		valid = append(valid, op)
		models = append(models, upsertModel(op, now))
	}

	if len(models) == 0 {
		return result, nil
	}

	coll := s.db.Collection(collection)
	res, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err == nil {
		result.Inserted += int(res.UpsertedCount)
		result.Matched += int(res.MatchedCount)
		return result, nil
	}

	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) && len(bulkErr.WriteErrors) > 0 {
		if res != nil {
			result.Inserted += int(res.UpsertedCount)
			result.Matched += int(res.MatchedCount)
		}
		result.Failed = append(result.Failed, writeFailures(valid, bulkErr.WriteErrors)...)
		return result, nil
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("failed to upsert into %s: %w", collection, ctx.Err())
	}

	for _, op := range valid {
		m := upsertModel(op, now)
		r, err := coll.UpdateOne(ctx, m.Filter, m.Update, options.Update().SetUpsert(true))
		if err != nil {
			result.Failed = append(result.Failed, OpError{ExternalID: op.ExternalID, Message: err.Error()})
			continue
		}
		if r.UpsertedCount > 0 {
			result.Inserted++
		} else {
			result.Matched++
		}
	}

	return result, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
