// Package fuseadapter mounts a COWFS engine as a POSIX filesystem using
// github.com/hanwen/go-fuse/v2. Every kernel callback resolves a path
// component to a metastore inode id and calls straight into
// internal/engine; the adapter's only state is the open-handle table and
// the per-inode write buffers that accumulate byte-range writes before
// they commit as a single new whole-file version.
package fuseadapter
