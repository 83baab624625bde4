package metastore

import (
	"context"
	"database/sql"

	"github.com/cowfs/cowfs/pkg/cowerrors"
)

const fileColumns = `id, parent_id, name, path, is_dir, current_version_id, is_deleted, mode, uid, gid, created_at, updated_at`

func scanFile(row interface{ Scan(dest ...interface{}) error }) (*File, error) {
	var f File
	var isDir, isDeleted int
	var currentVersionID sql.NullInt64
	var createdAt, updatedAt string
	err := row.Scan(&f.ID, &f.ParentID, &f.Name, &f.Path, &isDir, &currentVersionID,
		&isDeleted, &f.Mode, &f.UID, &f.GID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	f.IsDir = isDir != 0
	f.IsDeleted = isDeleted != 0
	if currentVersionID.Valid {
		f.CurrentVersionID = &currentVersionID.Int64
	}
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}

// Lookup finds the live (non-deleted) child of parentID named name.
func (s *Store) Lookup(ctx context.Context, parentID int64, name string) (*File, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE parent_id = ? AND name = ? AND is_deleted = 0`,
		parentID, name)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, cowerrors.Newf(cowerrors.NotFound, "no such entry %q in directory %d", name, parentID).
			WithComponent("metastore").WithOperation("lookup")
	}
	if err != nil {
		return nil, wrapQueryErr("lookup", err)
	}
	return f, nil
}

// GetFile fetches a live file by inode id.
func (s *Store) GetFile(ctx context.Context, id int64) (*File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ? AND is_deleted = 0`, id)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, cowerrors.Newf(cowerrors.NotFound, "no such inode %d", id).
			WithComponent("metastore").WithOperation("get_file")
	}
	if err != nil {
		return nil, wrapQueryErr("get_file", err)
	}
	return f, nil
}

// GetFileByPath fetches a file by its full path. When includeDeleted is
// true, soft-deleted entries are also considered (most-recently-updated
// match wins), which callers use to distinguish "never existed" from
// "deleted" for diagnostics and snapshot-restore bookkeeping.
func (s *Store) GetFileByPath(ctx context.Context, path string, includeDeleted bool) (*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE path = ?`
	if !includeDeleted {
		query += ` AND is_deleted = 0`
	} else {
		query += ` ORDER BY updated_at DESC LIMIT 1`
	}
	row := s.db.QueryRowContext(ctx, query, path)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, cowerrors.Newf(cowerrors.NotFound, "no such path %q", path).
			WithComponent("metastore").WithOperation("get_file_by_path")
	}
	if err != nil {
		return nil, wrapQueryErr("get_file_by_path", err)
	}
	return f, nil
}

// ListChildren lists the live children of parentID, excluding the parent
// itself (relevant only for the root, whose parent_id points at itself).
func (s *Store) ListChildren(ctx context.Context, parentID int64) ([]*File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE parent_id = ? AND id != ? AND is_deleted = 0 ORDER BY name`,
		parentID, parentID)
	if err != nil {
		return nil, wrapQueryErr("list_children", err)
	}
	defer rows.Close()

	var out []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, wrapQueryErr("list_children", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListActiveFileIDs returns the inode ids of every live, non-directory file.
func (s *Store) ListActiveFileIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM files WHERE is_deleted = 0 AND is_dir = 0`)
	if err != nil {
		return nil, wrapQueryErr("list_active_file_ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrapQueryErr("list_active_file_ids", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateFile inserts a new file or directory row and returns its id.
func (s *Store) CreateFile(ctx context.Context, t Tx, parentID int64, name, path string, isDir bool, mode, uid, gid uint32) (int64, error) {
	now := nowString()
	isDirInt := 0
	if isDir {
		isDirInt = 1
	}
	res, err := t.ExecContext(ctx,
		`INSERT INTO files (parent_id, name, path, is_dir, mode, uid, gid, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		parentID, name, path, isDirInt, mode, uid, gid, now, now)
	if err != nil {
		return 0, cowerrors.Newf(cowerrors.AlreadyExists, "path %q already exists", path).
			WithComponent("metastore").WithOperation("create_file").WithCause(err)
	}
	return res.LastInsertId()
}

// SoftDeleteFile marks a file as deleted without removing its row, so
// version history and snapshot references it participates in remain
// resolvable after the name is freed for reuse. It also records a DELETE
// activity-log event, mirroring how CreateVersion records its own events.
func (s *Store) SoftDeleteFile(ctx context.Context, t Tx, id int64) error {
	now := nowString()
	var path string
	var currentVersionID sql.NullInt64
	if err := t.QueryRowContext(ctx,
		`SELECT path, current_version_id FROM files WHERE id = ?`, id).Scan(&path, &currentVersionID); err != nil {
		return cowerrors.New(cowerrors.Internal, "read file before soft delete").
			WithComponent("metastore").WithOperation("soft_delete_file").WithCause(err)
	}

	if _, err := t.ExecContext(ctx,
		`UPDATE files SET is_deleted = 1, updated_at = ? WHERE id = ?`, now, id); err != nil {
		return cowerrors.New(cowerrors.Internal, "soft delete file").
			WithComponent("metastore").WithOperation("soft_delete_file").WithCause(err)
	}

	var versionID *int64
	if currentVersionID.Valid {
		v := currentVersionID.Int64
		versionID = &v
	}
	return s.RecordEvent(ctx, t, "DELETE", path, versionID, "")
}

// RenameFile moves a file to a new parent/name/path. When the file is a
// directory, every descendant's path is rewritten in the same statement so
// the whole subtree moves atomically with its parent.
func (s *Store) RenameFile(ctx context.Context, t Tx, id, newParentID int64, newName, newPath, oldPath string, isDir bool) error {
	now := nowString()
	if _, err := t.ExecContext(ctx,
		`UPDATE files SET parent_id = ?, name = ?, path = ?, updated_at = ? WHERE id = ?`,
		newParentID, newName, newPath, now, id); err != nil {
		return cowerrors.New(cowerrors.Internal, "rename file").
			WithComponent("metastore").WithOperation("rename_file").WithCause(err)
	}
	if isDir {
		if _, err := t.ExecContext(ctx,
			`UPDATE files SET path = ? || substr(path, ?), updated_at = ? WHERE path LIKE ? || '/%'`,
			newPath, len(oldPath)+1, now, oldPath); err != nil {
			return cowerrors.New(cowerrors.Internal, "rewrite descendant paths").
				WithComponent("metastore").WithOperation("rename_file").WithCause(err)
		}
	}
	return nil
}

// UpdateAttrs independently updates whichever of mode/uid/gid are non-nil.
func (s *Store) UpdateAttrs(ctx context.Context, t Tx, id int64, mode, uid, gid *uint32) error {
	now := nowString()
	if mode != nil {
		if _, err := t.ExecContext(ctx, `UPDATE files SET mode = ?, updated_at = ? WHERE id = ?`, *mode, now, id); err != nil {
			return cowerrors.New(cowerrors.Internal, "update mode").WithComponent("metastore").WithOperation("update_attrs").WithCause(err)
		}
	}
	if uid != nil {
		if _, err := t.ExecContext(ctx, `UPDATE files SET uid = ?, updated_at = ? WHERE id = ?`, *uid, now, id); err != nil {
			return cowerrors.New(cowerrors.Internal, "update uid").WithComponent("metastore").WithOperation("update_attrs").WithCause(err)
		}
	}
	if gid != nil {
		if _, err := t.ExecContext(ctx, `UPDATE files SET gid = ?, updated_at = ? WHERE id = ?`, *gid, now, id); err != nil {
			return cowerrors.New(cowerrors.Internal, "update gid").WithComponent("metastore").WithOperation("update_attrs").WithCause(err)
		}
	}
	return nil
}

// SetCurrentVersion points a file's current_version_id at versionID.
func (s *Store) SetCurrentVersion(ctx context.Context, t Tx, fileID, versionID int64) error {
	now := nowString()
	if _, err := t.ExecContext(ctx,
		`UPDATE files SET current_version_id = ?, updated_at = ? WHERE id = ?`, versionID, now, fileID); err != nil {
		return cowerrors.New(cowerrors.Internal, "set current version").
			WithComponent("metastore").WithOperation("set_current_version").WithCause(err)
	}
	return nil
}

// SetFileDeleted directly sets the is_deleted flag, used by
// snapshot-restore when reviving a previously soft-deleted file.
func (s *Store) SetFileDeleted(ctx context.Context, t Tx, id int64, deleted bool) error {
	now := nowString()
	v := 0
	if deleted {
		v = 1
	}
	if _, err := t.ExecContext(ctx,
		`UPDATE files SET is_deleted = ?, updated_at = ? WHERE id = ?`, v, now, id); err != nil {
		return cowerrors.New(cowerrors.Internal, "set file deleted flag").
			WithComponent("metastore").WithOperation("set_file_deleted").WithCause(err)
	}
	return nil
}
