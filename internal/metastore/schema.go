package metastore

const schemaVersion = 1

// schemaDDL creates the full COWFS metadata schema. It mirrors the relational
// layout of the reference metadata store one-for-one: files form a tree via
// parent_id/path, versions are immutable per-file history entries pointing
// at content-addressed objects, objects are reference counted, snapshots
// pin a set of (file, version) pairs by name, and events form an
// append-only activity log. snapshot_entries.version_id carries no foreign
// key, so GC can prune a pinned version; snapshot restore then counts that
// entry as skipped.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS format_version (
	version    INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	parent_id          INTEGER NOT NULL,
	name               TEXT NOT NULL,
	path               TEXT NOT NULL UNIQUE,
	is_dir             INTEGER NOT NULL DEFAULT 0,
	current_version_id INTEGER,
	is_deleted         INTEGER NOT NULL DEFAULT 0,
	mode               INTEGER NOT NULL DEFAULT 33188,
	uid                INTEGER NOT NULL DEFAULT 0,
	gid                INTEGER NOT NULL DEFAULT 0,
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES files(id)
);

CREATE INDEX IF NOT EXISTS idx_files_parent ON files(parent_id);
CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);

CREATE TABLE IF NOT EXISTS objects (
	hash       TEXT PRIMARY KEY,
	size_bytes INTEGER NOT NULL,
	ref_count  INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS versions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id     INTEGER NOT NULL,
	object_hash TEXT NOT NULL,
	size_bytes  INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	is_deleted  INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (file_id) REFERENCES files(id),
	FOREIGN KEY (object_hash) REFERENCES objects(hash)
);

CREATE INDEX IF NOT EXISTS idx_versions_file ON versions(file_id);
CREATE INDEX IF NOT EXISTS idx_versions_created ON versions(file_id, created_at);

CREATE TABLE IF NOT EXISTS snapshots (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	description TEXT,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_id INTEGER NOT NULL,
	file_id     INTEGER NOT NULL,
	version_id  INTEGER NOT NULL,
	FOREIGN KEY (snapshot_id) REFERENCES snapshots(id),
	FOREIGN KEY (file_id) REFERENCES files(id)
);

CREATE INDEX IF NOT EXISTS idx_snapshot_entries_snapshot ON snapshot_entries(snapshot_id);

CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	action      TEXT NOT NULL,
	path        TEXT,
	version_id  INTEGER,
	object_hash TEXT,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
`

// RootInodeID is the fixed inode id of the filesystem root, seeded by
// rootInodeDML at every Open.
const RootInodeID = 1

const rootInodeID = RootInodeID

// rootInodeDML seeds the root directory inode. It is idempotent: re-running
// it against an already-initialized store is a no-op.
const rootInodeDML = `
INSERT OR IGNORE INTO files (id, parent_id, name, path, is_dir, mode, created_at, updated_at)
VALUES (1, 1, '', '/', 1, 16877, ?, ?);
`
