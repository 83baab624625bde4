package metastore

import (
	"context"
	"database/sql"

	"github.com/cowfs/cowfs/pkg/cowerrors"
)

// RecordEvent appends one row to the activity log within the caller's
// transaction. path, versionID, and objectHash are each optional — not
// every action (e.g. a snapshot create) touches a single file/version.
func (s *Store) RecordEvent(ctx context.Context, t Tx, action, path string, versionID *int64, objectHash string) error {
	now := nowString()
	var pathArg, hashArg interface{}
	if path != "" {
		pathArg = path
	}
	if objectHash != "" {
		hashArg = objectHash
	}
	var versionArg interface{}
	if versionID != nil {
		versionArg = *versionID
	}
	if _, err := t.ExecContext(ctx,
		`INSERT INTO events (action, path, version_id, object_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		action, pathArg, versionArg, hashArg, now); err != nil {
		return cowerrors.New(cowerrors.Internal, "record event").
			WithComponent("metastore").WithOperation("record_event").WithCause(err)
	}
	return nil
}

// ListEvents returns the most recent limit events in chronological order
// (oldest of the window first), matching the activity-log CLI's display
// convention.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, path, version_id, object_hash, created_at
		 FROM events ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, wrapQueryErr("list_events", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		var e Event
		var path, objectHash sql.NullString
		var versionID sql.NullInt64
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Action, &path, &versionID, &objectHash, &createdAt); err != nil {
			return nil, wrapQueryErr("list_events", err)
		}
		e.Path = path.String
		e.ObjectHash = objectHash.String
		if versionID.Valid {
			e.VersionID = &versionID.Int64
		}
		e.CreatedAt = parseTime(createdAt)
		out = append(out, &e)
	}

	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}
