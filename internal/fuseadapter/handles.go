package fuseadapter

import (
	"context"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// handleTable hands out monotonically increasing handle ids, matching the
// reference implementation's _next_fh counter.
type handleTable struct {
	mu   sync.Mutex
	next uint64
}

func newHandleTable() *handleTable {
	return &handleTable{next: 1}
}

func (t *handleTable) open(fsys *FileSystem, inode int64) *FileHandle {
	t.mu.Lock()
	id := t.next
	t.next++
	t.mu.Unlock()
	fsys.buffers.acquire(inode)
	return &FileHandle{fsys: fsys, id: id, inode: inode}
}

// FileHandle is an open file descriptor on inode. Writes accumulate in
// the inode's shared buffer (internal/fuseadapter's bufferStore) and
// commit as a new version on Flush, Fsync, or Release — never on
// every Write, since COWFS versions whole files rather than byte ranges.
type FileHandle struct {
	fsys  *FileSystem
	id    uint64
	inode int64
	dirty bool
}

var (
	_ fs.FileReader   = (*FileHandle)(nil)
	_ fs.FileWriter   = (*FileHandle)(nil)
	_ fs.FileFlusher  = (*FileHandle)(nil)
	_ fs.FileFsyncer  = (*FileHandle)(nil)
	_ fs.FileReleaser = (*FileHandle)(nil)
)

func clampRange(buf []byte, off, length int64) []byte {
	if off >= int64(len(buf)) {
		return nil
	}
	end := off + length
	if end > int64(len(buf)) {
		end = int64(len(buf))
	}
	return buf[off:end]
}

// Read serves from the in-progress write buffer if one exists for this
// inode (an unflushed write), otherwise from the last committed version.
func (h *FileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if buf, ok := h.fsys.buffers.get(h.inode); ok {
		return fuse.ReadResultData(clampRange(buf, off, int64(len(dest)))), 0
	}

	current, err := h.fsys.eng.ReadFile(ctx, h.inode)
	if err != nil {
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(clampRange(current, off, int64(len(dest)))), 0
}

// Write copies data into the inode's write buffer at off, growing it
// (zero-filling any gap) as needed.
func (h *FileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	var n uint32
	err := h.fsys.eng.WithInodeLock(h.inode, func() error {
		buf, err := h.fsys.ensureBuffer(ctx, h.inode)
		if err != nil {
			return err
		}
		end := off + int64(len(data))
		if end > int64(len(buf)) {
			grown := make([]byte, end)
			copy(grown, buf)
			buf = grown
		}
		copy(buf[off:end], data)
		h.fsys.buffers.set(h.inode, buf)
		n = uint32(len(data))
		return nil
	})
	if err != nil {
		return 0, toErrno(err)
	}
	h.dirty = true
	return n, 0
}

// Flush commits a dirty buffer as a new version without closing the
// handle — called on every close(2), per FUSE's flush semantics.
func (h *FileHandle) Flush(ctx context.Context) syscall.Errno {
	if !h.dirty {
		return 0
	}
	if err := h.fsys.flushBuffer(ctx, h.inode); err != nil {
		return toErrno(err)
	}
	h.fsys.observe("write", nil)
	h.dirty = false
	return 0
}

// Fsync commits a dirty buffer, same as Flush: COWFS has no durability
// distinction between the two since every version is already fsynced to
// the object store on write.
func (h *FileHandle) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	return h.Flush(ctx)
}

// Release flushes any remaining dirty data and drops this handle's claim
// on the inode's buffer.
func (h *FileHandle) Release(ctx context.Context) syscall.Errno {
	errno := h.Flush(ctx)
	h.fsys.buffers.release(h.inode)
	return errno
}
