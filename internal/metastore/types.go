package metastore

import "time"

// File is a row of the files table: one entry per path in the tree,
// whether a regular file or a directory.
type File struct {
	ID               int64
	ParentID         int64
	Name             string
	Path             string
	IsDir            bool
	CurrentVersionID *int64
	IsDeleted        bool
	Mode             uint32
	UID              uint32
	GID              uint32
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Version is one immutable content snapshot of a file's history.
type Version struct {
	ID         int64
	FileID     int64
	ObjectHash string
	SizeBytes  int64
	CreatedAt  time.Time
	IsDeleted  bool
}

// Object is a reference-counted content-addressed blob record.
type Object struct {
	Hash      string
	SizeBytes int64
	RefCount  int64
	CreatedAt time.Time
}

// Snapshot is a named, point-in-time pin of the live file tree.
type Snapshot struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	FileCount   int64
}

// SnapshotEntry is one (file, version) pin within a snapshot.
type SnapshotEntry struct {
	ID         int64
	SnapshotID int64
	FileID     int64
	VersionID  int64
}

// SnapshotEntryDetail joins a snapshot entry with its file path and
// object hash, for display and restore purposes.
type SnapshotEntryDetail struct {
	FileID     int64
	Path       string
	VersionID  int64
	ObjectHash string
	SizeBytes  int64
	IsDeleted  bool
}

// Event is one append-only activity-log row.
type Event struct {
	ID         int64
	Action     string
	Path       string
	VersionID  *int64
	ObjectHash string
	CreatedAt  time.Time
}

// Stats summarizes store-wide size and dedup accounting.
type Stats struct {
	TotalFiles       int64
	TotalVersions    int64
	TotalObjects     int64
	ActualSizeBytes  int64
	LogicalSizeBytes int64
	OrphanedObjects  int64
}

const rfc3339 = time.RFC3339Nano

func parseTime(s string) time.Time {
	t, err := time.Parse(rfc3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
