// Package metastore implements the relational Metadata Store: the
// transactional source of truth for the file tree, version history,
// object reference counts, snapshots, and the activity log. It never
// touches blob bytes directly — that is internal/objectstore's job.
package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cowfs/cowfs/pkg/cowerrors"
	"github.com/cowfs/cowfs/pkg/logging"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite-backed metadata database.
type Store struct {
	db  *sql.DB
	log *logging.Logger
}

// Open opens (creating if necessary) the metadata database at path,
// applies the WAL/foreign-key pragmas the store depends on for
// correctness under concurrent FUSE access, runs the schema migration,
// and seeds the root inode.
func Open(ctx context.Context, path string, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, cowerrors.New(cowerrors.Internal, "open metadata database").
			WithComponent("metastore").WithOperation("open").WithCause(err)
	}
	// A single-connection pool serializes all metadata access and avoids
	// SQLITE_BUSY churn under WAL. A pool query issued inside a WithTx
	// block waits on that one connection, so such blocks use their Tx.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, cowerrors.Newf(cowerrors.Internal, "apply pragma %q", pragma).
				WithComponent("metastore").WithOperation("open").WithCause(err)
		}
	}

	s := &Store{db: db, log: log.With("metastore")}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return cowerrors.New(cowerrors.CorruptStore, "apply schema").
			WithComponent("metastore").WithOperation("migrate").WithCause(err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM format_version").Scan(&count); err != nil {
		return cowerrors.New(cowerrors.CorruptStore, "read format_version").
			WithComponent("metastore").WithOperation("migrate").WithCause(err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if count == 0 {
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO format_version (version, created_at) VALUES (?, ?)", schemaVersion, now); err != nil {
			return cowerrors.New(cowerrors.Internal, "seed format_version").
				WithComponent("metastore").WithOperation("migrate").WithCause(err)
		}
	}

	if _, err := s.db.ExecContext(ctx, rootInodeDML, now, now); err != nil {
		return cowerrors.New(cowerrors.Internal, "seed root inode").
			WithComponent("metastore").WithOperation("migrate").WithCause(err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// tx is the subset of *sql.Tx / *sql.DB the entity methods need, so they
// can run either inside an explicit WithTx block or directly against the
// pool for simple reads.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// WithTx runs fn inside a single SQLite transaction, committing on success
// and rolling back on any returned error or panic. Every mutating
// multi-statement operation in the engine (write, rename, restore,
// snapshot-restore, gc) goes through this so partial failures never leave
// the store in an inconsistent state.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, t Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cowerrors.New(cowerrors.TransactionFailed, "begin transaction").
			WithComponent("metastore").WithCause(err)
	}
	defer func() {
		if p := recover(); p != nil {
			sqlTx.Rollback()
			panic(p)
		}
	}()

	if err = fn(ctx, sqlTx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.log.Warn("rollback failed after operation error",
				logging.F("error", err.Error()), logging.F("rollback_error", rbErr.Error()))
		}
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return cowerrors.New(cowerrors.TransactionFailed, "commit transaction").
			WithComponent("metastore").WithCause(err)
	}
	return nil
}

// nowString formats the current UTC time with a fixed-width fraction, so
// the lexical order of stored timestamps matches their time order.
func nowString() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func wrapQueryErr(op string, err error) error {
	return cowerrors.Newf(cowerrors.Internal, "%s: query failed", op).
		WithComponent("metastore").WithOperation(op).WithCause(err)
}

func (s *Store) String() string {
	return fmt.Sprintf("metastore(%v)", s.db.Stats())
}
