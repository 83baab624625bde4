package metastore

import (
	"context"
	"database/sql"

	"github.com/cowfs/cowfs/pkg/cowerrors"
)

const versionColumns = `id, file_id, object_hash, size_bytes, created_at, is_deleted`

func scanVersion(row interface{ Scan(dest ...interface{}) error }) (*Version, error) {
	var v Version
	var isDeleted int
	var createdAt string
	if err := row.Scan(&v.ID, &v.FileID, &v.ObjectHash, &v.SizeBytes, &createdAt, &isDeleted); err != nil {
		return nil, err
	}
	v.IsDeleted = isDeleted != 0
	v.CreatedAt = parseTime(createdAt)
	return &v, nil
}

// CreateVersion records a new version for fileID pointing at objectHash,
// bumping (or creating) the object's reference count, pointing the file's
// current_version_id at the new version, and appending an activity event —
// all inside the caller's transaction so the write is atomic.
func (s *Store) CreateVersion(ctx context.Context, t Tx, fileID int64, objectHash string, sizeBytes int64, action, path string) (*Version, error) {
	now := nowString()

	if _, err := t.ExecContext(ctx,
		`INSERT INTO objects (hash, size_bytes, ref_count, created_at) VALUES (?, ?, 1, ?)
		 ON CONFLICT(hash) DO UPDATE SET ref_count = ref_count + 1`,
		objectHash, sizeBytes, now); err != nil {
		return nil, cowerrors.New(cowerrors.Internal, "upsert object ref count").
			WithComponent("metastore").WithOperation("create_version").WithCause(err)
	}

	res, err := t.ExecContext(ctx,
		`INSERT INTO versions (file_id, object_hash, size_bytes, created_at) VALUES (?, ?, ?, ?)`,
		fileID, objectHash, sizeBytes, now)
	if err != nil {
		return nil, cowerrors.New(cowerrors.Internal, "insert version").
			WithComponent("metastore").WithOperation("create_version").WithCause(err)
	}
	versionID, err := res.LastInsertId()
	if err != nil {
		return nil, cowerrors.New(cowerrors.Internal, "read inserted version id").
			WithComponent("metastore").WithOperation("create_version").WithCause(err)
	}

	if err := s.SetCurrentVersion(ctx, t, fileID, versionID); err != nil {
		return nil, err
	}

	if err := s.RecordEvent(ctx, t, action, path, &versionID, objectHash); err != nil {
		return nil, err
	}

	return &Version{
		ID:         versionID,
		FileID:     fileID,
		ObjectHash: objectHash,
		SizeBytes:  sizeBytes,
		CreatedAt:  parseTime(now),
	}, nil
}

// GetCurrentVersion returns the current version of a live file.
func (s *Store) GetCurrentVersion(ctx context.Context, inode int64) (*Version, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT v.id, v.file_id, v.object_hash, v.size_bytes, v.created_at, v.is_deleted
		 FROM versions v JOIN files f ON f.current_version_id = v.id
		 WHERE f.id = ? AND f.is_deleted = 0`, inode)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, cowerrors.Newf(cowerrors.NotFound, "no current version for inode %d", inode).
			WithComponent("metastore").WithOperation("get_current_version")
	}
	if err != nil {
		return nil, wrapQueryErr("get_current_version", err)
	}
	return v, nil
}

// GetVersion fetches a version row by id.
func (s *Store) GetVersion(ctx context.Context, versionID int64) (*Version, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+versionColumns+` FROM versions WHERE id = ?`, versionID)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, cowerrors.Newf(cowerrors.NotFound, "no such version %d", versionID).
			WithComponent("metastore").WithOperation("get_version")
	}
	if err != nil {
		return nil, wrapQueryErr("get_version", err)
	}
	return v, nil
}

// ListVersions lists the live version history of a file, oldest first.
func (s *Store) ListVersions(ctx context.Context, fileID int64) ([]*Version, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE file_id = ? AND is_deleted = 0 ORDER BY created_at ASC, id ASC`,
		fileID)
	if err != nil {
		return nil, wrapQueryErr("list_versions", err)
	}
	defer rows.Close()

	var out []*Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, wrapQueryErr("list_versions", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetLatestVersionBefore returns the most recent version of fileID created
// at or before the given instant, used by the "latest-before-timestamp"
// restore selector.
func (s *Store) GetLatestVersionBefore(ctx context.Context, fileID int64, before string) (*Version, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM versions
		 WHERE file_id = ? AND created_at <= ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		fileID, before)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, cowerrors.Newf(cowerrors.NotFound, "no version of file %d at or before %s", fileID, before).
			WithComponent("metastore").WithOperation("get_latest_version_before")
	}
	if err != nil {
		return nil, wrapQueryErr("get_latest_version_before", err)
	}
	return v, nil
}

// ListPrunableVersions lists every version beyond the newest keepLast per
// file, oldest-first victims for the keep-last(k) garbage collection
// policy.
func (s *Store) ListPrunableVersions(ctx context.Context, keepLast int) ([]*Version, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_id, object_hash, size_bytes, created_at, is_deleted FROM (
			SELECT id, file_id, object_hash, size_bytes, created_at, is_deleted,
				ROW_NUMBER() OVER (PARTITION BY file_id ORDER BY created_at DESC, id DESC) AS rn
			FROM versions WHERE is_deleted = 0
		 ) WHERE rn > ?`, keepLast)
	if err != nil {
		return nil, wrapQueryErr("list_prunable_versions", err)
	}
	defer rows.Close()

	var out []*Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, wrapQueryErr("list_prunable_versions", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListPrunableVersionsBefore lists every version older than cutoff that is
// not the current version of any file, victims for the before-cutoff
// garbage collection policy. A file's current version is never pruned
// regardless of age.
func (s *Store) ListPrunableVersionsBefore(ctx context.Context, before string) ([]*Version, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.id, v.file_id, v.object_hash, v.size_bytes, v.created_at, v.is_deleted
		 FROM versions v LEFT JOIN files f ON f.current_version_id = v.id
		 WHERE v.created_at < ? AND v.is_deleted = 0 AND f.id IS NULL`, before)
	if err != nil {
		return nil, wrapQueryErr("list_prunable_versions_before", err)
	}
	defer rows.Close()

	var out []*Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, wrapQueryErr("list_prunable_versions_before", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteVersion removes a version row and decrements its object's
// reference count within the caller's transaction.
func (s *Store) DeleteVersion(ctx context.Context, t Tx, v *Version) error {
	if _, err := t.ExecContext(ctx, `DELETE FROM versions WHERE id = ?`, v.ID); err != nil {
		return cowerrors.New(cowerrors.Internal, "delete version row").
			WithComponent("metastore").WithOperation("delete_version").WithCause(err)
	}
	return s.DecrementRefCount(ctx, t, v.ObjectHash)
}
