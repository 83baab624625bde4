package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

const (
	formatMarkerFile = ".cowfs"
	lockFile         = ".cowfs.lock"
	formatVersion    = 1
)

type formatMarker struct {
	Version  int       `json:"version"`
	Created  time.Time `json:"created"`
	HashAlgo string    `json:"hash_algo"`
}

func readFormatMarker(storageDir string) (*formatMarker, error) {
	data, err := os.ReadFile(filepath.Join(storageDir, formatMarkerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var m formatMarker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, nil
	}
	return &m, nil
}

func writeFormatMarker(storageDir, hashAlgo string) error {
	m := formatMarker{Version: formatVersion, Created: time.Now(), HashAlgo: hashAlgo}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(storageDir, formatMarkerFile), data, 0o644)
}

// ensureStorage initializes a fresh storage directory or validates an
// existing one's format marker, refusing to mount on a version or
// hash-algo mismatch.
func ensureStorage(storageDir, hashAlgo string) error {
	entries, statErr := os.ReadDir(storageDir)
	if statErr != nil {
		if !os.IsNotExist(statErr) {
			return statErr
		}
		if err := os.MkdirAll(storageDir, 0o755); err != nil {
			return err
		}
		return writeFormatMarker(storageDir, hashAlgo)
	}

	marker, err := readFormatMarker(storageDir)
	if err != nil {
		return err
	}
	if marker == nil {
		if len(entries) == 0 {
			return writeFormatMarker(storageDir, hashAlgo)
		}
		return fmt.Errorf("%s is not a valid COWFS storage directory", storageDir)
	}
	if marker.Version > formatVersion {
		return fmt.Errorf("unsupported storage format version %d", marker.Version)
	}
	if marker.HashAlgo != hashAlgo {
		return fmt.Errorf("storage uses %s, cannot switch to %s", marker.HashAlgo, hashAlgo)
	}
	return nil
}

// storageLock is an exclusive advisory lock on a storage directory,
// enforcing the single-mount-per-storage-directory rule.
type storageLock struct {
	fd int
}

func acquireLock(storageDir string) (*storageLock, error) {
	path := filepath.Join(storageDir, lockFile)
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("another cowfs instance is already mounted on %s", storageDir)
	}
	return &storageLock{fd: fd}, nil
}

func (l *storageLock) release() {
	unix.Flock(l.fd, unix.LOCK_UN)
	unix.Close(l.fd)
}
