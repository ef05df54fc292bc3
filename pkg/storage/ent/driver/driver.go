// Package entdriver
package entdriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	entschema "entgo.io/ent/dialect/sql/schema"

	"github.com/papercomputeco/docq/pkg/element"
	"github.com/papercomputeco/docq/pkg/storage"
	"github.com/papercomputeco/docq/pkg/storage/ent/schema"
)

// EntDriver provides storage operations over an ent SQL driver.
// It is database-agnostic and can be embedded by specific drivers.
type EntDriver struct {
	Driver *entsql.Driver
}

// NewEntDriver wraps drv and runs ent's auto-migration to create or update
// the documents table.
func NewEntDriver(ctx context.Context, drv *entsql.Driver) (*EntDriver, error) {
	migrate, err := entschema.NewMigrate(drv)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare migration: %w", err)
	}

	// This handles append-only schema changes (new tables, columns, indexes)
	if err := migrate.Create(ctx, schema.Tables...); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &EntDriver{Driver: drv}, nil
}

func (ed *EntDriver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(ed.Driver.Dialect())
}

// Put stores a document and returns its sequence number.
func (ed *EntDriver) Put(ctx context.Context, collection string, doc element.Value) (int64, error) {
	if doc == nil {
		return 0, errors.New("cannot store nil document")
	}

	body, err := element.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal document: %w", err)
	}

	insert := ed.builder().
		Insert(schema.DocumentsTableName).
		Columns("collection", "body").
		Values(collection, string(body))

	// Postgres does not report LastInsertId, so the sequence comes back
	// through RETURNING instead.
	if ed.Driver.Dialect() == dialect.Postgres {
		query, args := insert.Returning("seq").Query()

		var rows entsql.Rows
		if err := ed.Driver.Query(ctx, query, args, &rows); err != nil {
			return 0, fmt.Errorf("could not execute document creation: %w", err)
		}
		defer rows.Close()

		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return 0, fmt.Errorf("could not read document sequence: %w", err)
			}
			return 0, errors.New("could not read document sequence: no rows returned")
		}

		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return 0, fmt.Errorf("could not read document sequence: %w", err)
		}
		return seq, nil
	}

	query, args := insert.Query()

	var res sql.Result
	if err := ed.Driver.Exec(ctx, query, args, &res); err != nil {
		return 0, fmt.Errorf("could not execute document creation: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("could not read document sequence: %w", err)
	}
	return seq, nil
}

// Get retrieves a document by its sequence number.
func (ed *EntDriver) Get(ctx context.Context, collection string, seq int64) (*storage.Record, error) {
	query, args := ed.builder().
		Select("seq", "body").
		From(entsql.Table(schema.DocumentsTableName)).
		Where(entsql.And(
			entsql.EQ("collection", collection),
			entsql.EQ("seq", seq),
		)).
		Query()

	records, err := ed.queryRecords(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.NotFoundError{Collection: collection, Seq: seq}
	}

	return &records[0], nil
}

// Scan returns up to limit records after afterSeq, in sequence order.
func (ed *EntDriver) Scan(ctx context.Context, collection string, afterSeq int64, limit int) ([]storage.Record, error) {
	if limit <= 0 {
		return nil, errors.New("scan limit must be positive")
	}

	query, args := ed.builder().
		Select("seq", "body").
		From(entsql.Table(schema.DocumentsTableName)).
		Where(entsql.And(
			entsql.EQ("collection", collection),
			entsql.GT("seq", afterSeq),
		)).
		OrderBy("seq").
		Limit(limit).
		Query()

	return ed.queryRecords(ctx, query, args)
}

// Count returns the number of documents in a collection.
func (ed *EntDriver) Count(ctx context.Context, collection string) (int, error) {
	query, args := ed.builder().
		Select(entsql.Count("*")).
		From(entsql.Table(schema.DocumentsTableName)).
		Where(entsql.EQ("collection", collection)).
		Query()

	var rows entsql.Rows
	if err := ed.Driver.Query(ctx, query, args, &rows); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, fmt.Errorf("failed to count documents: %w", err)
		}
	}
	return count, rows.Err()
}

// Collections lists every non-empty collection by name.
func (ed *EntDriver) Collections(ctx context.Context) ([]storage.CollectionInfo, error) {
	query, args := ed.builder().
		Select("collection", entsql.As(entsql.Count("*"), "documents")).
		From(entsql.Table(schema.DocumentsTableName)).
		GroupBy("collection").
		OrderBy("collection").
		Query()

	var rows entsql.Rows
	if err := ed.Driver.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	infos := []storage.CollectionInfo{}
	for rows.Next() {
		var info storage.CollectionInfo
		if err := rows.Scan(&info.Name, &info.Count); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Close closes the database connection.
func (ed *EntDriver) Close() error {
	return ed.Driver.Close()
}

func (ed *EntDriver) queryRecords(ctx context.Context, query string, args []any) ([]storage.Record, error) {
	var rows entsql.Rows
	if err := ed.Driver.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	records := []storage.Record{}
	for rows.Next() {
		var (
			seq  int64
			body string
		)
		if err := rows.Scan(&seq, &body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		doc, err := element.Parse([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal document %d: %w", seq, err)
		}
		records = append(records, storage.Record{Seq: seq, Document: doc})
	}

	return records, rows.Err()
}
