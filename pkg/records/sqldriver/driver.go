// Package sqldriver provides a database-agnostic records.Driver and
// checkpoint.Store on top of database/sql, using ent's dialect-aware SQL
// builder so the same queries serve SQLite and PostgreSQL.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/papers/pkg/checkpoint"
	"github.com/papercomputeco/papers/pkg/paper"
	"github.com/papercomputeco/papers/pkg/records"
)

const (
	papersTable      = "papers"
	checkpointsTable = "checkpoints"

	// batchGetChunk bounds the number of bind parameters per IN clause.
	batchGetChunk = 500
)

var paperColumns = []string{"id", "title", "abstract", "authors", "date", "categories"}

// schema is portable between SQLite and PostgreSQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS papers (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		abstract TEXT NOT NULL DEFAULT '',
		authors TEXT NOT NULL DEFAULT '[]',
		date TEXT NOT NULL DEFAULT '',
		categories TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS checkpoints (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// Driver provides record and checkpoint storage over a *sql.DB.
// It is embedded by the dialect-specific drivers.
type Driver struct {
	DB      *sql.DB
	Dialect string
}

// New wraps db for the given ent dialect (dialect.SQLite or dialect.Postgres)
// and creates the tables if they are missing.
func New(ctx context.Context, db *sql.DB, dialectName string) (*Driver, error) {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Driver{DB: db, Dialect: dialectName}, nil
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.Dialect)
}

// Exists checks if a record exists by its id.
func (d *Driver) Exists(ctx context.Context, id string) (bool, error) {
	query, args := d.builder().
		Select("id").
		From(entsql.Table(papersTable)).
		Where(entsql.EQ("id", id)).
		Limit(1).
		Query()

	var got string
	err := d.DB.QueryRowContext(ctx, query, args...).Scan(&got)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to check existence: %w", err)
	default:
		return true, nil
	}
}

// Put inserts a record unless one with the same id already exists.
func (d *Driver) Put(ctx context.Context, r *paper.Record) (bool, error) {
	if r == nil {
		return false, errors.New("cannot store nil record")
	}
	if r.ID == "" {
		return false, errors.New("cannot store record without id")
	}

	query, args := d.builder().
		Insert(papersTable).
		Columns(paperColumns...).
		Values(r.ID, r.Title, r.Abstract, r.Authors, r.Date, r.Categories).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.DoNothing(),
		).
		Query()

	res, err := d.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("could not insert record %s: %w", r.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}

// Get retrieves a single record by id.
func (d *Driver) Get(ctx context.Context, id string) (*paper.Record, error) {
	got, err := d.BatchGet(ctx, []string{id})
	if err != nil {
		return nil, err
	}

	r, ok := got[id]
	if !ok {
		return nil, records.NotFoundError{ID: id}
	}
	return r, nil
}

// BatchGet retrieves records for ids with one query per chunk of ids.
func (d *Driver) BatchGet(ctx context.Context, ids []string) (map[string]*paper.Record, error) {
	out := make(map[string]*paper.Record, len(ids))

	for start := 0; start < len(ids); start += batchGetChunk {
		end := min(start+batchGetChunk, len(ids))
		if err := d.batchGetChunk(ctx, ids[start:end], out); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (d *Driver) batchGetChunk(ctx context.Context, ids []string, out map[string]*paper.Record) error {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query, qargs := d.builder().
		Select(paperColumns...).
		From(entsql.Table(papersTable)).
		Where(entsql.In("id", args...)).
		Query()

	rows, err := d.DB.QueryContext(ctx, query, qargs...)
	if err != nil {
		return fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r := &paper.Record{}
		if err := rows.Scan(&r.ID, &r.Title, &r.Abstract, &r.Authors, &r.Date, &r.Categories); err != nil {
			return fmt.Errorf("scanning record: %w", err)
		}
		out[r.ID] = r
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating records: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (d *Driver) Count(ctx context.Context) (int, error) {
	query, args := d.builder().
		Select(entsql.Count("*")).
		From(entsql.Table(papersTable)).
		Query()

	var n int
	if err := d.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// Checkpoint access lives behind Checkpoints so its Get does not clash with
// the record Get.
func (d *Driver) getCheckpoint(ctx context.Context, name string) (string, bool, error) {
	query, args := d.builder().
		Select("value").
		From(entsql.Table(checkpointsTable)).
		Where(entsql.EQ("name", name)).
		Query()

	var value string
	err := d.DB.QueryRowContext(ctx, query, args...).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("failed to read checkpoint %s: %w", name, err)
	default:
		return value, true, nil
	}
}

func (d *Driver) putCheckpoint(ctx context.Context, name string, value string) error {
	query, args := d.builder().
		Insert(checkpointsTable).
		Columns("name", "value").
		Values(name, value).
		OnConflict(
			entsql.ConflictColumns("name"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := d.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to write checkpoint %s: %w", name, err)
	}
	return nil
}

// Checkpoints returns a checkpoint.Store sharing this driver's database.
func (d *Driver) Checkpoints() checkpoint.Store {
	return checkpointStore{d: d}
}

type checkpointStore struct {
	d *Driver
}

func (c checkpointStore) Get(ctx context.Context, name string) (string, bool, error) {
	return c.d.getCheckpoint(ctx, name)
}

func (c checkpointStore) Put(ctx context.Context, name string, value string) error {
	return c.d.putCheckpoint(ctx, name, value)
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.DB.Close()
}

var _ records.Driver = (*Driver)(nil)
