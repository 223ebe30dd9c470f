package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avatarflowx/avatarflowx/internal/core/checkpoint"
	"github.com/avatarflowx/avatarflowx/pkg/serialization"
	_ "modernc.org/sqlite"
)

const checkpointColumns = "id, flow_id, session_id, label, snapshot, metadata, timestamp, version"

// CheckpointSaver implements checkpoint.Saver interface for SQLite
type CheckpointSaver struct {
	db         *sql.DB
	serializer *serialization.Serializer
	tableName  string
}

// NewCheckpointSaver creates a new SQLite checkpoint saver
func NewCheckpointSaver(db *sql.DB, serializer *serialization.Serializer) *CheckpointSaver {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &CheckpointSaver{
		db:         db,
		serializer: serializer,
		tableName:  "flow_checkpoints",
	}
}

// WithTableName allows overriding the default table name with validation.
// Only alphanumeric and underscore are permitted to prevent SQL injection via identifiers.
func (s *CheckpointSaver) WithTableName(name string) *CheckpointSaver {
	if isSafeIdent(name) {
		s.tableName = name
	}
	return s
}

// TableName returns the table checkpoints are stored in
func (s *CheckpointSaver) TableName() string { return s.tableName }

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

// Save stores a checkpoint in SQLite
func (s *CheckpointSaver) Save(ctx context.Context, cp *checkpoint.Checkpoint) error {
	if cp == nil {
		return checkpoint.ErrInvalidCheckpointID
	}
	if err := cp.Validate(); err != nil {
		return err
	}

	data, err := s.serializer.EncodeSnapshot(cp.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint snapshot: %w", err)
	}

	metadataJSON, err := json.Marshal(cp.Metadata)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.tableName, checkpointColumns)

	_, err = s.db.ExecContext(ctx, query,
		cp.ID, cp.FlowID, cp.SessionID, cp.Label, data, string(metadataJSON), cp.Timestamp.UnixNano(), cp.Version)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

// Load retrieves a checkpoint by ID
func (s *CheckpointSaver) Load(ctx context.Context, id string) (*checkpoint.Checkpoint, error) {
	if id == "" {
		return nil, checkpoint.ErrInvalidCheckpointID
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", checkpointColumns, s.tableName)

	cp, err := s.scan(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, checkpoint.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return cp, nil
}

// List retrieves checkpoints based on filter criteria
func (s *CheckpointSaver) List(ctx context.Context, filter checkpoint.Filter) ([]*checkpoint.Checkpoint, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query, args := s.buildListQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []*checkpoint.Checkpoint
	for rows.Next() {
		cp, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		if !cp.HasTags(filter.Tags) {
			continue
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate checkpoints: %w", err)
	}

	// Tags live inside the metadata document, so paging happens after the
	// tag predicate when one is set.
	if len(filter.Tags) > 0 {
		checkpoints = filter.Page(checkpoints)
	}
	return checkpoints, nil
}

// Delete removes a checkpoint by ID
func (s *CheckpointSaver) Delete(ctx context.Context, id string) error {
	if id == "" {
		return checkpoint.ErrInvalidCheckpointID
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return checkpoint.ErrCheckpointNotFound
	}

	return nil
}

// CreateTables creates the necessary database tables
func (s *CheckpointSaver) CreateTables(ctx context.Context) error {
	t := s.tableName
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			flow_id TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			label TEXT NOT NULL DEFAULT '',
			snapshot BLOB NOT NULL,
			metadata TEXT,
			timestamp INTEGER NOT NULL,
			version TEXT NOT NULL DEFAULT '1'
		);

		CREATE INDEX IF NOT EXISTS idx_%s_flow_id ON %s (flow_id);
		CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s (session_id);
		CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s (timestamp);
	`, t, t, t, t, t, t, t)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *CheckpointSaver) scan(row rowScanner) (*checkpoint.Checkpoint, error) {
	var cp checkpoint.Checkpoint
	var data []byte
	var metadataJSON sql.NullString
	var timestamp int64

	if err := row.Scan(&cp.ID, &cp.FlowID, &cp.SessionID, &cp.Label, &data, &metadataJSON, &timestamp, &cp.Version); err != nil {
		return nil, err
	}

	cp.Timestamp = time.Unix(0, timestamp).UTC()

	snap, err := s.serializer.DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint snapshot: %w", err)
	}
	cp.Snapshot = snap

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to deserialize metadata: %w", err)
		}
	}

	return &cp, nil
}

// buildListQuery constructs the SQL query for listing checkpoints
func (s *CheckpointSaver) buildListQuery(filter checkpoint.Filter) (string, []interface{}) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1", checkpointColumns, s.tableName)
	args := make([]interface{}, 0)

	if filter.FlowID != "" {
		query += " AND flow_id = ?"
		args = append(args, filter.FlowID)
	}

	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}

	if filter.Since != nil {
		query += " AND timestamp > ?"
		args = append(args, filter.Since.UnixNano())
	}

	if filter.Before != nil {
		query += " AND timestamp < ?"
		args = append(args, filter.Before.UnixNano())
	}

	query += " ORDER BY timestamp DESC, id"

	if len(filter.Tags) > 0 {
		return query, args
	}

	// SQLite only accepts OFFSET after LIMIT
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ?"
		args = append(args, limit)
	}

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	return query, args
}

// Close closes the database connection
func (s *CheckpointSaver) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
