// Package sqlite provides SQLite implementation for checkpoint storage.
//
// SQLite is a lightweight, file-based database suitable for local development
// and single-process training jobs. Model state, classes and loss history are
// stored as JSON strings in TEXT fields.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oceanbase/embetter-go/pkg/storage"
)

// Client implements CheckpointStore using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// tableName is the name of the table storing checkpoints.
	tableName string
}

// Config contains configuration for creating a SQLite CheckpointStore.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TableName is the name of the table to use. Defaults to storage.DefaultTableName.
	TableName string
}

// NewClient creates a new SQLite CheckpointStore client.
//
// Parameters:
//   - cfg: Configuration containing database path and table name
//
// Returns:
//   - *Client: The SQLite client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.DBPath == "" {
		return nil, fmt.Errorf("NewSQLiteClient: db path is required")
	}

	// Create parent directory if it doesn't exist
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	tableName := cfg.TableName
	if tableName == "" {
		tableName = storage.DefaultTableName
	}

	client := &Client{
		db:        db,
		tableName: tableName,
	}

	// Initialize table structure
	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			size INTEGER NOT NULL,
			input_dim INTEGER NOT NULL,
			classes TEXT NOT NULL,
			epochs INTEGER NOT NULL,
			loss TEXT NOT NULL,
			state TEXT NOT NULL,
			hash TEXT NOT NULL,
			metadata TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`, c.tableName)

	_, err := c.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	// Create index
	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_name_created ON %s(name, created_at)
	`, c.tableName, c.tableName)
	_, err = c.db.ExecContext(ctx, indexQuery)
	if err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Save inserts a checkpoint into the SQLite database.
func (c *Client) Save(ctx context.Context, cp *storage.Checkpoint) error {
	if err := storage.Prepare(cp); err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	cols, err := storage.EncodeColumns(cp)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, name, size, input_dim, classes, epochs, loss, state, hash, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.tableName)

	_, err = c.db.ExecContext(ctx, query,
		cp.ID,
		cp.Name,
		cp.Size,
		cp.InputDim,
		cols.Classes,
		cp.Epochs,
		cols.Loss,
		string(cp.State),
		cp.Hash,
		cols.Metadata,
		cp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	return nil
}

// Get retrieves a checkpoint by ID.
func (c *Client) Get(ctx context.Context, id int64) (*storage.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT id, name, size, input_dim, classes, epochs, loss, state, hash, metadata, created_at
		FROM %s
		WHERE id = ?
	`, c.tableName)

	cp, err := scanCheckpoint(c.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Get: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}

	return cp, nil
}

// Latest retrieves the newest checkpoint with the given name.
func (c *Client) Latest(ctx context.Context, name string) (*storage.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT id, name, size, input_dim, classes, epochs, loss, state, hash, metadata, created_at
		FROM %s
		WHERE name = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, c.tableName)

	cp, err := scanCheckpoint(c.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Latest: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Latest: %w", err)
	}

	return cp, nil
}

// List returns checkpoint summaries, newest first.
func (c *Client) List(ctx context.Context, opts *storage.ListOptions) ([]*storage.Checkpoint, error) {
	if opts == nil {
		opts = &storage.ListOptions{}
	}

	whereClause, args := buildWhereClause(opts.Name)

	// SQLite treats a negative LIMIT as unbounded
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}

	query := fmt.Sprintf(`
		SELECT id, name, size, input_dim, classes, epochs, loss, hash, metadata, created_at
		FROM %s
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, c.tableName, whereClause)

	args = append(args, limit, opts.Offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var checkpoints []*storage.Checkpoint
	for rows.Next() {
		var cp storage.Checkpoint
		var cols storage.Columns
		var metadata sql.NullString
		if err := rows.Scan(
			&cp.ID,
			&cp.Name,
			&cp.Size,
			&cp.InputDim,
			&cols.Classes,
			&cp.Epochs,
			&cols.Loss,
			&cp.Hash,
			&metadata,
			&cp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		cols.Metadata = metadata.String
		if err := storage.DecodeColumns(&cols, &cp); err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		checkpoints = append(checkpoints, &cp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	return checkpoints, nil
}

// Delete deletes a checkpoint by ID.
func (c *Client) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", c.tableName)

	result, err := c.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("Delete: %w", storage.ErrNotFound)
	}

	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// scanCheckpoint scans a full checkpoint row.
func scanCheckpoint(row *sql.Row) (*storage.Checkpoint, error) {
	var cp storage.Checkpoint
	var cols storage.Columns
	var state string
	var metadata sql.NullString

	err := row.Scan(
		&cp.ID,
		&cp.Name,
		&cp.Size,
		&cp.InputDim,
		&cols.Classes,
		&cp.Epochs,
		&cols.Loss,
		&state,
		&cp.Hash,
		&metadata,
		&cp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	cols.Metadata = metadata.String
	if err := storage.DecodeColumns(&cols, &cp); err != nil {
		return nil, err
	}
	cp.State = []byte(state)

	if err := storage.Verify(&cp); err != nil {
		return nil, err
	}

	return &cp, nil
}
