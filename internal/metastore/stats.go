package metastore

import "context"

// GetStats computes store-wide accounting: how many files/versions/objects
// exist, how many bytes the object store actually holds (actual, post-dedup)
// versus how many bytes the live file tree logically occupies (sum of every
// live file's current version size), and how many objects are currently
// orphaned.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE is_deleted = 0 AND is_dir = 0`).
		Scan(&st.TotalFiles); err != nil {
		return nil, wrapQueryErr("get_stats", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM versions WHERE is_deleted = 0`).
		Scan(&st.TotalVersions); err != nil {
		return nil, wrapQueryErr("get_stats", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM objects`).
		Scan(&st.TotalObjects, &st.ActualSizeBytes); err != nil {
		return nil, wrapQueryErr("get_stats", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(v.size_bytes), 0)
		 FROM files f JOIN versions v ON v.id = f.current_version_id
		 WHERE f.is_deleted = 0 AND f.is_dir = 0`).Scan(&st.LogicalSizeBytes); err != nil {
		return nil, wrapQueryErr("get_stats", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM objects WHERE ref_count <= 0`).
		Scan(&st.OrphanedObjects); err != nil {
		return nil, wrapQueryErr("get_stats", err)
	}

	return &st, nil
}
