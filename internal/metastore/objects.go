package metastore

import (
	"context"
	"database/sql"

	"github.com/cowfs/cowfs/pkg/cowerrors"
)

func scanObject(row interface{ Scan(dest ...interface{}) error }) (*Object, error) {
	var o Object
	var createdAt string
	if err := row.Scan(&o.Hash, &o.SizeBytes, &o.RefCount, &createdAt); err != nil {
		return nil, err
	}
	o.CreatedAt = parseTime(createdAt)
	return &o, nil
}

// GetObject fetches an object record by hash.
func (s *Store) GetObject(ctx context.Context, hash string) (*Object, error) {
	row := s.db.QueryRowContext(ctx, `SELECT hash, size_bytes, ref_count, created_at FROM objects WHERE hash = ?`, hash)
	o, err := scanObject(row)
	if err == sql.ErrNoRows {
		return nil, cowerrors.Newf(cowerrors.NotFound, "no object record for hash %s", hash).
			WithComponent("metastore").WithOperation("get_object")
	}
	if err != nil {
		return nil, wrapQueryErr("get_object", err)
	}
	return o, nil
}

// DecrementRefCount lowers an object's reference count by one.
func (s *Store) DecrementRefCount(ctx context.Context, t Tx, hash string) error {
	if _, err := t.ExecContext(ctx, `UPDATE objects SET ref_count = ref_count - 1 WHERE hash = ?`, hash); err != nil {
		return cowerrors.New(cowerrors.Internal, "decrement object ref count").
			WithComponent("metastore").WithOperation("decrement_ref_count").WithCause(err)
	}
	return nil
}

// GetOrphanedObjects lists every object whose reference count has dropped
// to zero or below — candidates for blob reclamation during garbage
// collection.
func (s *Store) GetOrphanedObjects(ctx context.Context) ([]*Object, error) {
	return s.getOrphanedObjects(ctx, s.db)
}

// GetOrphanedObjectsTx is GetOrphanedObjects run against an in-progress
// transaction, so garbage collection can see the ref-count decrements
// its own version pruning just made without committing first.
func (s *Store) GetOrphanedObjectsTx(ctx context.Context, t Tx) ([]*Object, error) {
	return s.getOrphanedObjects(ctx, t)
}

func (s *Store) getOrphanedObjects(ctx context.Context, q Tx) ([]*Object, error) {
	rows, err := q.QueryContext(ctx, `SELECT hash, size_bytes, ref_count, created_at FROM objects WHERE ref_count <= 0`)
	if err != nil {
		return nil, wrapQueryErr("get_orphaned_objects", err)
	}
	defer rows.Close()

	var out []*Object
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, wrapQueryErr("get_orphaned_objects", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountVersionReferences counts how many version rows (live or soft
// deleted) still point at hash. Garbage collection consults this as a
// second check before deleting a blob whose object ref_count has dropped
// to zero or below, guarding against ref-count drift ever orphaning a
// blob a version row still names.
func (s *Store) CountVersionReferences(ctx context.Context, hash string) (int64, error) {
	return s.countVersionReferences(ctx, s.db, hash)
}

// CountVersionReferencesTx is CountVersionReferences run against an
// in-progress transaction.
func (s *Store) CountVersionReferencesTx(ctx context.Context, t Tx, hash string) (int64, error) {
	return s.countVersionReferences(ctx, t, hash)
}

func (s *Store) countVersionReferences(ctx context.Context, q Tx, hash string) (int64, error) {
	var count int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM versions WHERE object_hash = ?`, hash).Scan(&count); err != nil {
		return 0, wrapQueryErr("count_version_references", err)
	}
	return count, nil
}

// DeleteObjectRecord removes an object's bookkeeping row. The caller is
// responsible for having already deleted (or decided to keep) the
// underlying blob in the object store.
func (s *Store) DeleteObjectRecord(ctx context.Context, t Tx, hash string) error {
	if _, err := t.ExecContext(ctx, `DELETE FROM objects WHERE hash = ?`, hash); err != nil {
		return cowerrors.New(cowerrors.Internal, "delete object record").
			WithComponent("metastore").WithOperation("delete_object_record").WithCause(err)
	}
	return nil
}
