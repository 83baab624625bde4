package fuseadapter

import (
	"fmt"
	"os"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/cowfs/cowfs/pkg/logging"
)

// MountManager owns the go-fuse server lifecycle for one FileSystem.
type MountManager struct {
	fsys       *FileSystem
	mountPoint string
	server     *fuse.Server
	log        *logging.Logger
}

// NewMountManager builds a MountManager for fsys at mountPoint.
func NewMountManager(fsys *FileSystem, mountPoint string, log *logging.Logger) *MountManager {
	if log == nil {
		log = logging.Default()
	}
	return &MountManager{fsys: fsys, mountPoint: mountPoint, log: log.With("mount")}
}

// Mount validates the mount point and starts serving in the background.
func (m *MountManager) Mount() error {
	if err := m.validateMountPoint(); err != nil {
		return fmt.Errorf("invalid mount point: %w", err)
	}

	server, err := fs.Mount(m.mountPoint, m.fsys.Root(), m.fsys.MountOptions())
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}
	m.server = server
	m.log.Info("mounted", logging.F("path", m.mountPoint))
	return nil
}

// Wait blocks until the mount is unmounted, either by Unmount or by the
// kernel (e.g. `fusermount -u`).
func (m *MountManager) Wait() {
	if m.server != nil {
		m.server.Wait()
	}
}

// Unmount requests the kernel unmount this filesystem.
func (m *MountManager) Unmount() error {
	if m.server == nil {
		return fmt.Errorf("not mounted")
	}
	if err := m.server.Unmount(); err != nil {
		return fmt.Errorf("unmount failed: %w", err)
	}
	m.log.Info("unmounted", logging.F("path", m.mountPoint))
	return nil
}

func (m *MountManager) validateMountPoint() error {
	if m.mountPoint == "" {
		return fmt.Errorf("mount point cannot be empty")
	}
	info, err := os.Stat(m.mountPoint)
	if err != nil {
		return fmt.Errorf("cannot access mount point: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("mount point is not a directory: %s", m.mountPoint)
	}
	return nil
}
