package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avatarflowx/avatarflowx/internal/core/checkpoint"
	"github.com/avatarflowx/avatarflowx/pkg/serialization"
)

const checkpointColumns = "id, flow_id, session_id, label, snapshot, metadata, timestamp, version"

// CheckpointSaver implements checkpoint.Saver interface for PostgreSQL
type CheckpointSaver struct {
	pool       *pgxpool.Pool
	serializer *serialization.Serializer
	tableName  string
}

// NewCheckpointSaver creates a new PostgreSQL checkpoint saver
func NewCheckpointSaver(pool *pgxpool.Pool, serializer *serialization.Serializer) *CheckpointSaver {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &CheckpointSaver{
		pool:       pool,
		serializer: serializer,
		tableName:  "flow_checkpoints",
	}
}

// WithTableName overrides the table name. Unsafe identifiers are ignored.
func (s *CheckpointSaver) WithTableName(name string) *CheckpointSaver {
	if isSafeIdent(name) {
		s.tableName = name
	}
	return s
}

// Save stores a checkpoint in PostgreSQL
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
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			snapshot = EXCLUDED.snapshot,
			metadata = EXCLUDED.metadata,
			timestamp = EXCLUDED.timestamp
	`, s.tableName, checkpointColumns)

	_, err = s.pool.Exec(ctx, query,
		cp.ID, cp.FlowID, cp.SessionID, cp.Label, data, metadataJSON, cp.Timestamp, cp.Version)
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

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", checkpointColumns, s.tableName)

	cp, err := s.scan(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

	query, args, err := s.buildListQuery(filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
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
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate checkpoints: %w", err)
	}

	return checkpoints, nil
}

// Delete removes a checkpoint by ID
func (s *CheckpointSaver) Delete(ctx context.Context, id string) error {
	if id == "" {
		return checkpoint.ErrInvalidCheckpointID
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	if result.RowsAffected() == 0 {
		return checkpoint.ErrCheckpointNotFound
	}

	return nil
}

// CreateTables creates the necessary database tables
func (s *CheckpointSaver) CreateTables(ctx context.Context) error {
	t := s.tableName
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			flow_id VARCHAR(255) NOT NULL,
			session_id VARCHAR(255) NOT NULL DEFAULT '',
			label TEXT NOT NULL DEFAULT '',
			snapshot BYTEA NOT NULL,
			metadata JSONB,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			version VARCHAR(50) NOT NULL DEFAULT '1'
		);

		CREATE INDEX IF NOT EXISTS idx_%s_flow_id ON %s (flow_id);
		CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s (session_id);
		CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s (timestamp);
	`, t, t, t, t, t, t, t)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (s *CheckpointSaver) scan(row pgx.Row) (*checkpoint.Checkpoint, error) {
	var cp checkpoint.Checkpoint
	var data []byte
	var metadataJSON []byte

	if err := row.Scan(&cp.ID, &cp.FlowID, &cp.SessionID, &cp.Label, &data, &metadataJSON, &cp.Timestamp, &cp.Version); err != nil {
		return nil, err
	}

	snap, err := s.serializer.DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint snapshot: %w", err)
	}
	cp.Snapshot = snap

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to deserialize metadata: %w", err)
		}
	}

	return &cp, nil
}

// buildListQuery constructs the SQL query for listing checkpoints
func (s *CheckpointSaver) buildListQuery(filter checkpoint.Filter) (string, []interface{}, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1", checkpointColumns, s.tableName)
	args := make([]interface{}, 0)
	argCount := 0

	if filter.FlowID != "" {
		argCount++
		query += fmt.Sprintf(" AND flow_id = $%d", argCount)
		args = append(args, filter.FlowID)
	}

	if filter.SessionID != "" {
		argCount++
		query += fmt.Sprintf(" AND session_id = $%d", argCount)
		args = append(args, filter.SessionID)
	}

	if filter.Since != nil {
		argCount++
		query += fmt.Sprintf(" AND timestamp > $%d", argCount)
		args = append(args, *filter.Since)
	}

	if filter.Before != nil {
		argCount++
		query += fmt.Sprintf(" AND timestamp < $%d", argCount)
		args = append(args, *filter.Before)
	}

	if len(filter.Tags) > 0 {
		tags, err := json.Marshal(filter.Tags)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode tag filter: %w", err)
		}
		argCount++
		query += fmt.Sprintf(" AND metadata->'tags' @> $%d::jsonb", argCount)
		args = append(args, string(tags))
	}

	query += " ORDER BY timestamp DESC, id"

	if filter.Limit > 0 {
		argCount++
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		argCount++
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	return query, args, nil
}

// Close closes the database connection pool
func (s *CheckpointSaver) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
