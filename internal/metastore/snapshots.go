package metastore

import (
	"context"
	"database/sql"

	"github.com/cowfs/cowfs/pkg/cowerrors"
)

// CreateSnapshot records a new named snapshot and pins the current version
// of every live, non-directory file into it. Two snapshots with the same
// name are rejected by the table's UNIQUE constraint.
func (s *Store) CreateSnapshot(ctx context.Context, t Tx, name, description string) (*Snapshot, error) {
	now := nowString()
	res, err := t.ExecContext(ctx,
		`INSERT INTO snapshots (name, description, created_at) VALUES (?, ?, ?)`, name, description, now)
	if err != nil {
		return nil, cowerrors.Newf(cowerrors.AlreadyExists, "snapshot %q already exists", name).
			WithComponent("metastore").WithOperation("create_snapshot").WithCause(err)
	}
	snapshotID, err := res.LastInsertId()
	if err != nil {
		return nil, cowerrors.New(cowerrors.Internal, "read inserted snapshot id").
			WithComponent("metastore").WithOperation("create_snapshot").WithCause(err)
	}

	result, err := t.ExecContext(ctx,
		`INSERT INTO snapshot_entries (snapshot_id, file_id, version_id)
		 SELECT ?, id, current_version_id FROM files
		 WHERE is_deleted = 0 AND is_dir = 0 AND current_version_id IS NOT NULL`, snapshotID)
	if err != nil {
		return nil, cowerrors.New(cowerrors.Internal, "populate snapshot entries").
			WithComponent("metastore").WithOperation("create_snapshot").WithCause(err)
	}
	fileCount, _ := result.RowsAffected()

	return &Snapshot{ID: snapshotID, Name: name, Description: description, CreatedAt: parseTime(now), FileCount: fileCount}, nil
}

// ListSnapshots lists every snapshot with its pinned file count.
func (s *Store) ListSnapshots(ctx context.Context) ([]*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.description, s.created_at, COUNT(se.id)
		 FROM snapshots s LEFT JOIN snapshot_entries se ON se.snapshot_id = s.id
		 GROUP BY s.id ORDER BY s.created_at ASC`)
	if err != nil {
		return nil, wrapQueryErr("list_snapshots", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		var sn Snapshot
		var createdAt string
		var description sql.NullString
		if err := rows.Scan(&sn.ID, &sn.Name, &description, &createdAt, &sn.FileCount); err != nil {
			return nil, wrapQueryErr("list_snapshots", err)
		}
		sn.Description = description.String
		sn.CreatedAt = parseTime(createdAt)
		out = append(out, &sn)
	}
	return out, rows.Err()
}

// GetSnapshotByName fetches a snapshot by its unique name.
func (s *Store) GetSnapshotByName(ctx context.Context, name string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM snapshots WHERE name = ?`, name)
	var sn Snapshot
	var createdAt string
	var description sql.NullString
	err := row.Scan(&sn.ID, &sn.Name, &description, &createdAt)
	if err == sql.ErrNoRows {
		return nil, cowerrors.Newf(cowerrors.NotFound, "no such snapshot %q", name).
			WithComponent("metastore").WithOperation("get_snapshot_by_name")
	}
	if err != nil {
		return nil, wrapQueryErr("get_snapshot_by_name", err)
	}
	sn.Description = description.String
	sn.CreatedAt = parseTime(createdAt)
	return &sn, nil
}

// GetSnapshotEntries lists the raw (file, version) pins of a snapshot.
func (s *Store) GetSnapshotEntries(ctx context.Context, snapshotID int64) ([]*SnapshotEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, snapshot_id, file_id, version_id FROM snapshot_entries WHERE snapshot_id = ?`, snapshotID)
	if err != nil {
		return nil, wrapQueryErr("get_snapshot_entries", err)
	}
	defer rows.Close()

	var out []*SnapshotEntry
	for rows.Next() {
		var e SnapshotEntry
		if err := rows.Scan(&e.ID, &e.SnapshotID, &e.FileID, &e.VersionID); err != nil {
			return nil, wrapQueryErr("get_snapshot_entries", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// GetSnapshotEntriesDetailed lists a snapshot's pins joined with file path
// and object hash, ordered by path, for display (`snapshot show`) and for
// driving snapshot restore.
func (s *Store) GetSnapshotEntriesDetailed(ctx context.Context, snapshotID int64) ([]*SnapshotEntryDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.path, v.id, v.object_hash, v.size_bytes, f.is_deleted
		 FROM snapshot_entries se
		 JOIN files f ON f.id = se.file_id
		 JOIN versions v ON v.id = se.version_id
		 WHERE se.snapshot_id = ? ORDER BY f.path`, snapshotID)
	if err != nil {
		return nil, wrapQueryErr("get_snapshot_entries_detailed", err)
	}
	defer rows.Close()

	var out []*SnapshotEntryDetail
	for rows.Next() {
		var d SnapshotEntryDetail
		var isDeleted int
		if err := rows.Scan(&d.FileID, &d.Path, &d.VersionID, &d.ObjectHash, &d.SizeBytes, &isDeleted); err != nil {
			return nil, wrapQueryErr("get_snapshot_entries_detailed", err)
		}
		d.IsDeleted = isDeleted != 0
		out = append(out, &d)
	}
	return out, rows.Err()
}

// DeleteSnapshot removes a snapshot and its entries.
func (s *Store) DeleteSnapshot(ctx context.Context, t Tx, snapshotID int64) error {
	if _, err := t.ExecContext(ctx, `DELETE FROM snapshot_entries WHERE snapshot_id = ?`, snapshotID); err != nil {
		return cowerrors.New(cowerrors.Internal, "delete snapshot entries").
			WithComponent("metastore").WithOperation("delete_snapshot").WithCause(err)
	}
	if _, err := t.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, snapshotID); err != nil {
		return cowerrors.New(cowerrors.Internal, "delete snapshot row").
			WithComponent("metastore").WithOperation("delete_snapshot").WithCause(err)
	}
	return nil
}
