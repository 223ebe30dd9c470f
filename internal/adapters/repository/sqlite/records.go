package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avatarflowx/avatarflowx/internal/core/record"
)

// RecordStore implements record.Store with JSON documents in a single table
type RecordStore struct {
	db        *sql.DB
	tableName string
}

// NewRecordStore creates a record store backed by table
func NewRecordStore(db *sql.DB, table string) (*RecordStore, error) {
	if !isSafeIdent(table) {
		return nil, fmt.Errorf("%w: %q", record.ErrInvalidTable, table)
	}
	return &RecordStore{db: db, tableName: table}, nil
}

// CreateTable creates the record table and its collection index
func (r *RecordStore) CreateTable(ctx context.Context) error {
	t := r.tableName
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			fields TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%s_collection ON %s (collection, created_at);
	`, t, t, t)

	if _, err := r.db.ExecContext(ctx, query); err != nil {
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

	query := fmt.Sprintf("INSERT INTO %s (id, collection, fields, created_at) VALUES (?, ?, ?, ?)", r.tableName)
	if _, err := r.db.ExecContext(ctx, query, rec.ID, rec.Collection, string(doc), rec.CreatedAt.UnixNano()); err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}
	return rec, nil
}

// FindOne returns the record with id
func (r *RecordStore) FindOne(ctx context.Context, id string) (*record.Record, error) {
	query := fmt.Sprintf("SELECT id, collection, fields, created_at FROM %s WHERE id = ?", r.tableName)

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, record.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return rec, nil
}

// Query returns the records of collection, oldest first. A limit of zero
// returns all of them.
func (r *RecordStore) Query(ctx context.Context, collection string, limit int) ([]*record.Record, error) {
	query := fmt.Sprintf("SELECT id, collection, fields, created_at FROM %s WHERE collection = ? ORDER BY created_at, id", r.tableName)
	args := []interface{}{collection}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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

func scanRecord(row rowScanner) (*record.Record, error) {
	var rec record.Record
	var doc string
	var created int64

	if err := row.Scan(&rec.ID, &rec.Collection, &doc, &created); err != nil {
		return nil, err
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	if err := json.Unmarshal([]byte(doc), &rec.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode record fields: %w", err)
	}
	return &rec, nil
}
