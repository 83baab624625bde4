package fuseadapter

import (
	"golang.org/x/sys/unix"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// statfsDisk fills in the real block-count fields of out from the
// storage root's filesystem, falling back to zeros if the statfs syscall
// fails — mirroring the reference implementation's try/except around
// os.statvfs.
func (f *FileSystem) statfsDisk(out *fuse.StatfsOut) {
	var st unix.Statfs_t
	if err := unix.Statfs(f.storageRoot, &st); err != nil {
		out.Bsize = 4096
		out.Frsize = 4096
		return
	}
	out.Bsize = uint32(st.Bsize)
	out.Frsize = uint32(st.Bsize)
	out.Blocks = st.Blocks
	out.Bfree = st.Bfree
	out.Bavail = st.Bavail
}
