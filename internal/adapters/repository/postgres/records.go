package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avatarflowx/avatarflowx/internal/core/record"
)

// RecordStore implements record.Store on a JSONB table
type RecordStore struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewRecordStore creates a record store backed by table
func NewRecordStore(pool *pgxpool.Pool, table string) (*RecordStore, error) {
	if !isSafeIdent(table) {
		return nil, fmt.Errorf("%w: %q", record.ErrInvalidTable, table)
	}
	return &RecordStore{pool: pool, tableName: table}, nil
}

// CreateTable creates the record table and its collection index
func (r *RecordStore) CreateTable(ctx context.Context) error {
	t := r.tableName
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			collection VARCHAR(255) NOT NULL,
			fields JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_%s_collection ON %s (collection, created_at);
	`, t, t, t)

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create record table: %w", err)
	}
	return nil
}

// Insert stores fields under collection and returns the new record
func (r *RecordStore) Insert(ctx context.Context, collection string, fields map[string]interface{}) (*record.Record, error) {
	if collection == "" {
		return nil, record.ErrInvalidCollection
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}

	doc, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record fields: %w", err)
	}

	rec := &record.Record{
		ID:         uuid.NewString(),
		Collection: collection,
		Fields:     fields,
		CreatedAt:  time.Now().UTC(),
	}

	query := fmt.Sprintf("INSERT INTO %s (id, collection, fields, created_at) VALUES ($1, $2, $3, $4)", r.tableName)
	if _, err := r.pool.Exec(ctx, query, rec.ID, rec.Collection, doc, rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}
	return rec, nil
}

// FindOne returns the record with id
func (r *RecordStore) FindOne(ctx context.Context, id string) (*record.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, record.ErrRecordNotFound
	}

	query := fmt.Sprintf("SELECT id::text, collection, fields, created_at FROM %s WHERE id = $1", r.tableName)

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, record.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return rec, nil
}

// Query returns the records of collection, oldest first. A limit of zero
// returns all of them.
func (r *RecordStore) Query(ctx context.Context, collection string, limit int) ([]*record.Record, error) {
	query := fmt.Sprintf("SELECT id::text, collection, fields, created_at FROM %s WHERE collection = $1 ORDER BY created_at, id", r.tableName)
	args := []interface{}{collection}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]*record.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*record.Record, error) {
	var rec record.Record
	var doc []byte

	if err := row.Scan(&rec.ID, &rec.Collection, &doc, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, &rec.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode record fields: %w", err)
	}
	return &rec, nil
}

func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}
