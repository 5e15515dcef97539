// Package sqlitefts provides a SQLite FTS5 sparse index with BM25 ranking.
package sqlitefts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/pkg/keyword"
)

// Driver implements keyword.Driver backed by a SQLite FTS5 virtual table.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the FTS5 driver.
type Config struct {
	// Path is the SQLite database file path. Use ":memory:" for ephemeral
	// indexes.
	Path string
}

// New creates a SQLite FTS5 sparse index driver.
func New(c Config, logger *zap.Logger) (*Driver, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite3", c.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	d := &Driver{
		db:     db,
		logger: logger,
	}

	if err := d.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing fts5 schema: %w", err)
	}

	logger.Info("connected to sqlite fts5 index",
		zap.String("path", c.Path),
	)

	return d, nil
}

// initialize creates the FTS5 virtual table if needed.
func (d *Driver) initialize() error {
	_, err := d.db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chunk_fts USING fts5(
			chunk_id UNINDEXED,
			text
		)
	`)
	if err != nil {
		return fmt.Errorf("creating chunk_fts table: %w", err)
	}

	return nil
}

// Add indexes documents, replacing any existing entries with the same ID.
func (d *Driver) Add(ctx context.Context, docs []keyword.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chunk_fts WHERE chunk_id = ?`, doc.ID,
		); err != nil {
			return fmt.Errorf("removing existing document %s: %w", doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunk_fts (chunk_id, text) VALUES (?, ?)`,
			doc.ID, doc.Text,
		); err != nil {
			return fmt.Errorf("inserting document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added documents to fts5 index",
		zap.Int("count", len(docs)),
	)

	return nil
}

// matchExpression quotes each query token so user text cannot inject FTS5
// query syntax. Tokens are OR'd to keep recall high for fused retrieval.
func matchExpression(query string) string {
	fields := strings.Fields(query)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, `""`)
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// Search returns up to topK documents ranked by BM25, best first.
func (d *Driver) Search(ctx context.Context, query string, topK int) ([]keyword.Result, error) {
	if topK <= 0 {
		topK = 10
	}

	expr := matchExpression(query)
	if expr == "" {
		return nil, nil
	}

	// bm25() returns lower-is-better; negate so callers see higher-is-better.
	rows, err := d.db.QueryContext(ctx, `
		SELECT chunk_id, -bm25(chunk_fts) AS score
		FROM chunk_fts
		WHERE chunk_fts MATCH ?
		ORDER BY bm25(chunk_fts)
		LIMIT ?
	`, expr, topK)
	if err != nil {
		return nil, fmt.Errorf("searching fts5 index: %w", err)
	}
	defer rows.Close()

	var results []keyword.Result
	for rows.Next() {
		var r keyword.Result
		if err := rows.Scan(&r.ID, &r.Score); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}

	return results, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chunk_fts WHERE chunk_id = ?`, id,
		); err != nil {
			return fmt.Errorf("deleting document %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Count returns the number of indexed documents.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunk_fts`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Close releases the underlying database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ keyword.Driver = (*Driver)(nil)
