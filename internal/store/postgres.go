package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresStore keeps each collection in its own table with the record
// body in a JSONB column.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres builds the connection pool the way the API server does.
func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func table(collection string) string {
	return pgx.Identifier{collection}.Sanitize()
}

// EnsureSchema creates the collection tables and their partial unique
// index on api_id. It is safe to run on every start.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, c := range Collections {
		query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			api_id TEXT,
			data JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, table(c))
		if _, err := s.db.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", c, err)
		}

		index := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (api_id) WHERE api_id IS NOT NULL`,
			pgx.Identifier{c + "_api_id_key"}.Sanitize(), table(c))
		if _, err := s.db.Exec(ctx, index); err != nil {
			return fmt.Errorf("failed to create api_id index on %s: %w", c, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc   Document
		id    uuid.UUID
		apiID *string
		data  []byte
	)

	if err := row.Scan(&id, &apiID, &data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}

	doc.ID = id.String()
	if apiID != nil {
		doc.ExternalID = *apiID
	}
	if err := json.Unmarshal(data, &doc.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", doc.ID, err)
	}
	if doc.Fields == nil {
		doc.Fields = map[string]any{}
	}

	return &doc, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func encodeFields(fields map[string]any) (string, error) {
	if fields == nil {
		return "{}", nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(b), nil
}

func (s *PostgresStore) Find(ctx context.Context, collection, sortField string) ([]*Document, error) {
	query := fmt.Sprintf(`
	SELECT id, api_id, data, created_at, updated_at
	FROM %s
	ORDER BY data->>$1 DESC NULLS LAST, created_at DESC`, table(collection))

	rows, err := s.db.Query(ctx, query, sortField)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	docs := make([]*Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", collection, err)
	}

	return docs, nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	query := fmt.Sprintf(`SELECT id, api_id, data, created_at, updated_at FROM %s WHERE id = $1`, table(collection))

	doc, err := scanDocument(s.db.QueryRow(ctx, query, docID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) Create(ctx context.Context, collection string, doc *Document) (*Document, error) {
	data, err := encodeFields(doc.Fields)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, api_id, data)
	VALUES ($1, $2, $3::jsonb)
	RETURNING id, api_id, data, created_at, updated_at`, table(collection))

	created, err := scanDocument(s.db.QueryRow(ctx, query, uuid.New(), nullable(doc.ExternalID), data))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("failed to create document: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	data, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
	UPDATE %s
	SET data = data || $2::jsonb, updated_at = NOW()
	WHERE id = $1
	RETURNING id, api_id, data, created_at, updated_at`, table(collection))

	doc, err := scanDocument(s.db.QueryRow(ctx, query, docID, data))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) (*Document, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 RETURNING id, api_id, data, created_at, updated_at`, table(collection))

	doc, err := scanDocument(s.db.QueryRow(ctx, query, docID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete document: %w", err)
	}
	return doc, nil
}

func upsertQuery(collection string) string {
	return fmt.Sprintf(`
	INSERT INTO %s AS d (id, api_id, data)
	VALUES ($1, $2, $3::jsonb || $4::jsonb)
	ON CONFLICT (api_id) WHERE api_id IS NOT NULL
	DO UPDATE SET data = d.data || $4::jsonb, updated_at = NOW()
	RETURNING (xmax = 0) AS inserted`, table(collection))
}

type encodedOp struct {
	externalID  string
	set         string
	setOnInsert string
}

// BulkUpsert sends every op in one pipelined batch. The batch runs as one
// implicit transaction, so if any statement fails nothing from it is kept
// and each op is retried on its own.
func (s *PostgresStore) BulkUpsert(ctx context.Context, collection string, ops []UpsertOp) (*BulkResult, error) {
	result := &BulkResult{Failed: []OpError{}}
	query := upsertQuery(collection)

	encoded := make([]encodedOp, 0, len(ops))
	for _, op := range ops {
		if op.ExternalID == "" {
			result.Failed = append(result.Failed, OpError{Message: "missing external id"})
			continue
		}
		set, err := encodeFields(op.Set)
		if err != nil {
			result.Failed = append(result.Failed, OpError{ExternalID: op.ExternalID, Message: err.Error()})
			continue
		}
		onInsert, err := encodeFields(onInsertOnly(op))
		if err != nil {
			result.Failed = append(result.Failed, OpError{ExternalID: op.ExternalID, Message: err.Error()})
			continue
		}
		encoded = append(encoded, encodedOp{externalID: op.ExternalID, set: set, setOnInsert: onInsert})
	}

	if len(encoded) == 0 {
		return result, nil
	}

	inserted, matched, err := s.upsertBatch(ctx, query, encoded)
	if err == nil {
		result.Inserted += inserted
		result.Matched += matched
		return result, nil
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("failed to upsert into %s: %w", collection, ctx.Err())
	}

	for _, op := range encoded {
		var wasInserted bool
		err := s.db.QueryRow(ctx, query, uuid.New(), op.externalID, op.setOnInsert, op.set).Scan(&wasInserted)
		if err != nil {
			result.Failed = append(result.Failed, OpError{ExternalID: op.externalID, Message: err.Error()})
			continue
		}
		if wasInserted {
			result.Inserted++
		} else {
			result.Matched++
		}
	}

	return result, nil
}

func (s *PostgresStore) upsertBatch(ctx context.Context, query string, ops []encodedOp) (int, int, error) {
	batch := &pgx.Batch{}
	for _, op := range ops {
		batch.Queue(query, uuid.New(), op.externalID, op.setOnInsert, op.set)
	}

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	inserted, matched := 0, 0
	for range ops {
		var wasInserted bool
		if err := br.QueryRow().Scan(&wasInserted); err != nil {
			return 0, 0, err
		}
		if wasInserted {
			inserted++
		} else {
			matched++
		}
	}

	if err := br.Close(); err != nil {
		return 0, 0, err
	}
	return inserted, matched, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close(ctx context.Context) error {
	s.db.Close()
	return nil
}
