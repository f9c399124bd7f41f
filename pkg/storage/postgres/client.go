// Package postgres provides PostgreSQL implementation for checkpoint storage.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/oceanbase/embetter-go/pkg/storage"
)

// Client is a PostgreSQL checkpoint store.
type Client struct {
	db        *sql.DB
	tableName string
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	TableName string
	SSLMode   string
}

// NewClient creates a new PostgreSQL client.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	tableName := cfg.TableName
	if tableName == "" {
		tableName = storage.DefaultTableName
	}

	client := &Client{
		db:        db,
		tableName: tableName,
	}

	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table.
//
// State is kept in TEXT rather than JSONB so the stored bytes match the checksum.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			size INTEGER NOT NULL,
			input_dim INTEGER NOT NULL,
			classes JSONB NOT NULL,
			epochs INTEGER NOT NULL,
			loss JSONB NOT NULL,
			state TEXT NOT NULL,
			hash VARCHAR(32) NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)
	`, c.tableName)

	_, err := c.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("initTables: create table: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_name_created ON %s(name, created_at)
	`, c.tableName, c.tableName)
	_, err = c.db.ExecContext(ctx, indexQuery)
	if err != nil {
		return fmt.Errorf("initTables: create index: %w", err)
	}

	return nil
}

// Save inserts a checkpoint.
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
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
		WHERE id = $1
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
		WHERE name = $1
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
	pageClause, pageArgs := buildPageClause(opts.Limit, opts.Offset, len(args)+1)
	args = append(args, pageArgs...)

	query := fmt.Sprintf(`
		SELECT id, name, size, input_dim, classes, epochs, loss, hash, metadata, created_at
		FROM %s
		%s
		ORDER BY created_at DESC, id DESC
		%s
	`, c.tableName, whereClause, pageClause)

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
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", c.tableName)

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

// DropTable removes the checkpoint table and all its rows.
func (c *Client) DropTable(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", c.tableName)); err != nil {
		return fmt.Errorf("DropTable: %w", err)
	}
	return nil
}
