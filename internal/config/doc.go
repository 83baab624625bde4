// Package config provides YAML-based configuration for a COWFS mount:
// where the object store and metadata database live on disk, how the
// FUSE mount behaves, how large the blocking-op worker pool is, the
// retry policy for transient store errors, and logging/metrics settings.
//
// A minimal config file:
//
//	storage:
//	  root: /var/lib/cowfs/myvolume
//	  hash_algo: sha256
//	mount:
//	  fs_name: cowfs
//	worker_pool:
//	  size: 8
//
// COWFS_STORAGE and COWFS_LOG_LEVEL environment variables override the
// corresponding file settings, for container deployments that prefer not
// to bake the storage path into the image.
package config
