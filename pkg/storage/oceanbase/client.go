// Package oceanbase provides OceanBase (MySQL mode) implementation for
// checkpoint storage.
package oceanbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/oceanbase/embetter-go/pkg/storage"
)

// Client is an OceanBase client.
type Client struct {
	db        *sql.DB
	config    *Config
	tableName string
}

// Config contains OceanBase configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	TableName string
}

// NewClient creates a new OceanBase client.
func NewClient(cfg *Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewOceanBaseClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewOceanBaseClient: %w", err)
	}

	tableName := cfg.TableName
	if tableName == "" {
		tableName = storage.DefaultTableName
	}

	client := &Client{
		db:        db,
		config:    cfg,
		tableName: tableName,
	}

	// Initialize table structure
	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			size INT NOT NULL,
			input_dim INT NOT NULL,
			classes JSON NOT NULL,
			epochs INT NOT NULL,
			loss JSON NOT NULL,
			state LONGTEXT NOT NULL,
			hash VARCHAR(32) NOT NULL,
			metadata JSON,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_name_created (name, created_at)
		)
	`, c.tableName)

	_, err := c.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("initTables: %w", err)
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
		cp.CreatedAt.UTC(),
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

	cp, err := c.scanCheckpoint(c.db.QueryRowContext(ctx, query, id))
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

	cp, err := c.scanCheckpoint(c.db.QueryRowContext(ctx, query, name))
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
	pageClause, pageArgs := buildPageClause(opts.Limit, opts.Offset)
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

// scanCheckpoint scans a single row.
func (c *Client) scanCheckpoint(row *sql.Row) (*storage.Checkpoint, error) {
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
