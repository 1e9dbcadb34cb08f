// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package buildcache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/jhellerstein/hydro-sub000/pkg/log"
)

// sqliteConn bundles the sqlx handle and the plain *sql.DB the
// migration driver needs underneath it.
type sqliteConn struct {
	db  *sqlx.DB
	raw *sql.DB
}

// sqlHooks logs slow cache lookups, the same Before/After pairing the
// teacher's repository package uses for its own query instrumentation.
type sqlHooks struct{ slowThreshold time.Duration }

type beginKey struct{}

func (h *sqlHooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	return context.WithValue(ctx, beginKey{}, time.Now()), nil
}

func (h *sqlHooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(beginKey{}).(time.Time); ok {
		if elapsed := time.Since(begin); elapsed > h.slowThreshold {
			log.Warnf("buildcache: slow index query (%s): %s", elapsed, query)
		}
	}
	return ctx, nil
}

var hooksRegistered bool

// Index is the persistent, SQLite-backed record of every cache entry
// a build has ever produced: content hash, where its artifact bytes
// live on disk, and its Avro manifest.
type Index struct {
	conn *sqliteConn
}

// IndexEntry is one row of the cache index.
type IndexEntry struct {
	ContentHash  Key
	ArtifactPath string
	ManifestAvro []byte
	SizeBytes    int64
	CreatedAt    int64
	LastHitAt    int64
}

// OpenIndex opens (creating if necessary) the SQLite index at path and
// brings its schema up to date.
func OpenIndex(path string) (*Index, error) {
	if !hooksRegistered {
		sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &sqlHooks{slowThreshold: 50 * time.Millisecond}))
		hooksRegistered = true
	}
	db, err := sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("buildcache: open index: %w", err)
	}
	// SQLite does not multithread; a single connection avoids waiting
	// on its own file lock (the same reasoning the teacher's
	// repository.Connect uses for its sqlite3 branch).
	db.SetMaxOpenConns(1)

	conn := &sqliteConn{db: db, raw: db.DB}
	if err := runMigrations(conn); err != nil {
		return nil, err
	}
	return &Index{conn: conn}, nil
}

// Close releases the underlying database handle.
func (idx *Index) Close() error { return idx.conn.db.Close() }

// Lookup returns the entry for key, or (zero, false) on a miss.
func (idx *Index) Lookup(key Key) (IndexEntry, bool, error) {
	query, args, err := sq.Select("content_hash", "artifact_path", "manifest_avro", "size_bytes", "created_at", "last_hit_at").
		From("cache_entries").
		Where(sq.Eq{"content_hash": string(key)}).
		ToSql()
	if err != nil {
		return IndexEntry{}, false, err
	}
	var row IndexEntry
	var hash string
	err = idx.conn.db.QueryRowx(query, args...).Scan(&hash, &row.ArtifactPath, &row.ManifestAvro, &row.SizeBytes, &row.CreatedAt, &row.LastHitAt)
	if err == sql.ErrNoRows {
		return IndexEntry{}, false, nil
	}
	if err != nil {
		return IndexEntry{}, false, fmt.Errorf("buildcache: lookup %s: %w", key, err)
	}
	row.ContentHash = Key(hash)
	return row, true, nil
}

// Insert records a freshly built cache entry. If a row for the same
// content hash already exists, only its last_hit_at is updated; its
// artifact_path and manifest are kept (two concurrent builds of
// identical inputs racing to insert is expected and harmless: both
// write the same artifact_path/manifest by construction of ComputeKey).
func (idx *Index) Insert(e IndexEntry) error {
	query, args, err := sq.Insert("cache_entries").
		Columns("content_hash", "artifact_path", "manifest_avro", "size_bytes", "created_at", "last_hit_at").
		Values(string(e.ContentHash), e.ArtifactPath, e.ManifestAvro, e.SizeBytes, e.CreatedAt, e.LastHitAt).
		Suffix("ON CONFLICT(content_hash) DO UPDATE SET last_hit_at = excluded.last_hit_at").
		ToSql()
	if err != nil {
		return err
	}
	_, err = idx.conn.db.Exec(query, args...)
	return err
}

// TouchHit bumps an entry's last_hit_at, used by GC to implement
// least-recently-used eviction across the persistent layer.
func (idx *Index) TouchHit(key Key, when time.Time) error {
	query, args, err := sq.Update("cache_entries").
		Set("last_hit_at", when.Unix()).
		Where(sq.Eq{"content_hash": string(key)}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = idx.conn.db.Exec(query, args...)
	return err
}

// EvictOlderThan deletes every entry whose last_hit_at predates
// cutoff, returning their artifact paths so the caller can remove the
// backing files.
func (idx *Index) EvictOlderThan(cutoff time.Time) ([]string, error) {
	selectQuery, selArgs, err := sq.Select("artifact_path").From("cache_entries").
		Where(sq.Lt{"last_hit_at": cutoff.Unix()}).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := idx.conn.db.Queryx(selectQuery, selArgs...)
	if err != nil {
		return nil, err
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, err
		}
		paths = append(paths, p)
	}
	rows.Close()

	deleteQuery, delArgs, err := sq.Delete("cache_entries").
		Where(sq.Lt{"last_hit_at": cutoff.Unix()}).ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := idx.conn.db.Exec(deleteQuery, delArgs...); err != nil {
		return nil, err
	}
	return paths, nil
}
