package fuseadapter

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/cowfs/cowfs/internal/metastore"
)

// Node is a single go-fuse inode embedder backing both files and
// directories: which operations apply depends on the underlying
// metastore.File's IsDir flag, mirroring pyfuse3's single Operations
// class dispatching on the same flag rather than go-fuse's more common
// file/directory type split.
type Node struct {
	fs.Inode
	fsys  *FileSystem
	inode int64
}

var (
	_ fs.NodeLookuper   = (*Node)(nil)
	_ fs.NodeGetattrer  = (*Node)(nil)
	_ fs.NodeSetattrer  = (*Node)(nil)
	_ fs.NodeReaddirer  = (*Node)(nil)
	_ fs.NodeMkdirer    = (*Node)(nil)
	_ fs.NodeCreater    = (*Node)(nil)
	_ fs.NodeOpener     = (*Node)(nil)
	_ fs.NodeUnlinker   = (*Node)(nil)
	_ fs.NodeRmdirer    = (*Node)(nil)
	_ fs.NodeRenamer    = (*Node)(nil)
	_ fs.NodeStatfser   = (*Node)(nil)
)

func (n *Node) file(ctx context.Context) (*metastore.File, error) {
	return n.fsys.eng.Meta().GetFile(ctx, n.inode)
}

func fillAttr(out *fuse.Attr, file *metastore.File) {
	out.Ino = uint64(file.ID)
	out.Mode = file.Mode
	out.Uid = file.UID
	out.Gid = file.GID
	if file.IsDir {
		out.Nlink = 2
		out.Size = 4096
	} else {
		out.Nlink = 1
	}
	mtime := file.UpdatedAt
	out.SetTimes(nil, &mtime, &mtime)
}

func (n *Node) childNode(file *metastore.File) *fs.Inode {
	mode := fuse.S_IFREG
	if file.IsDir {
		mode = fuse.S_IFDIR
	}
	child := &Node{fsys: n.fsys, inode: file.ID}
	return n.NewInode(context.Background(), child, fs.StableAttr{
		Mode: uint32(mode),
		Ino:  uint64(file.ID),
	})
}

// Lookup resolves a child by name within this directory.
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	child, err := n.fsys.eng.Meta().Lookup(ctx, n.inode, name)
	if err != nil {
		return nil, toErrno(err)
	}
	fillAttr(&out.Attr, child)
	return n.childNode(child), 0
}

// Getattr reports the current attributes of this node, re-reading the
// current version's size for regular files.
func (n *Node) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	file, err := n.file(ctx)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(&out.Attr, file)
	if !file.IsDir {
		if v, err := n.fsys.eng.Meta().GetCurrentVersion(ctx, n.inode); err == nil {
			out.Attr.Size = uint64(v.SizeBytes)
		}
	}
	return 0
}

// Setattr applies mode/uid/gid changes and, on a size change, truncates
// the file's content to the requested size.
func (n *Node) Setattr(ctx context.Context, fh fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	var mode, uid, gid *uint32
	if m, ok := in.GetMode(); ok {
		mode = &m
	}
	if u, ok := in.GetUID(); ok {
		uid = &u
	}
	if g, ok := in.GetGID(); ok {
		gid = &g
	}
	if mode != nil || uid != nil || gid != nil {
		if err := n.fsys.eng.SetAttr(ctx, n.inode, mode, uid, gid); err != nil {
			return toErrno(err)
		}
	}

	if size, ok := in.GetSize(); ok {
		if _, err := n.fsys.eng.Truncate(ctx, n.inode, int64(size)); err != nil {
			return toErrno(err)
		}
	}

	return n.Getattr(ctx, fh, out)
}

// Readdir lists this directory's live children.
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	children, err := n.fsys.eng.Meta().ListChildren(ctx, n.inode)
	if err != nil {
		return nil, toErrno(err)
	}
	entries := make([]fuse.DirEntry, 0, len(children))
	for _, c := range children {
		mode := uint32(fuse.S_IFREG)
		if c.IsDir {
			mode = fuse.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: c.Name, Ino: uint64(c.ID), Mode: mode})
	}
	return fs.NewListDirStream(entries), 0
}

// Mkdir creates a subdirectory.
func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	caller, _ := fuse.FromContext(ctx)
	uid, gid := callerIDs(caller)
	file, err := n.fsys.eng.Mkdir(ctx, n.inode, name, mode, uid, gid)
	if err != nil {
		return nil, toErrno(err)
	}
	fillAttr(&out.Attr, file)
	return n.childNode(file), 0
}

// Create creates a regular file and opens a handle on it in one call.
func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	caller, _ := fuse.FromContext(ctx)
	uid, gid := callerIDs(caller)
	file, _, err := n.fsys.eng.CreateFile(ctx, n.inode, name, mode, uid, gid)
	if err != nil {
		return nil, nil, 0, toErrno(err)
	}
	fillAttr(&out.Attr, file)
	handle := n.fsys.handles.open(n.fsys, file.ID)
	return n.childNode(file), handle, 0, 0
}

// Open opens an existing regular file, returning a handle that buffers
// writes until flush/release.
func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	file, err := n.file(ctx)
	if err != nil {
		return nil, 0, toErrno(err)
	}
	if file.IsDir {
		return nil, 0, syscall.EISDIR
	}
	return n.fsys.handles.open(n.fsys, n.inode), 0, 0
}

// Unlink removes a regular-file directory entry.
func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	child, err := n.fsys.eng.Meta().Lookup(ctx, n.inode, name)
	if err != nil {
		return toErrno(err)
	}
	err = n.fsys.eng.Unlink(ctx, child.ID)
	n.fsys.observe("unlink", err)
	return toErrno(err)
}

// Rmdir removes an empty subdirectory.
func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	child, err := n.fsys.eng.Meta().Lookup(ctx, n.inode, name)
	if err != nil {
		return toErrno(err)
	}
	err = n.fsys.eng.Rmdir(ctx, child.ID)
	return toErrno(err)
}

// Rename moves a directory entry, optionally into a different parent.
func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	child, err := n.fsys.eng.Meta().Lookup(ctx, n.inode, name)
	if err != nil {
		return toErrno(err)
	}
	destDir, ok := newParent.(*Node)
	if !ok {
		return syscall.EINVAL
	}
	err = n.fsys.eng.Rename(ctx, child.ID, destDir.inode, newName)
	n.fsys.observe("rename", err)
	return toErrno(err)
}

// Statfs reports filesystem-wide sizing, backed by the real statfs of the
// storage root plus the metadata store's file count — matching the
// reference implementation's os.statvfs fallback.
func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	stats, err := n.fsys.eng.Meta().GetStats(ctx)
	if err != nil {
		return toErrno(err)
	}
	if out.Bsize == 0 {
		out.Bsize = 4096
	}
	out.Files = uint64(stats.TotalFiles)
	out.Ffree = 0
	n.fsys.statfsDisk(out)
	return 0
}

func callerIDs(caller *fuse.Caller) (uid, gid uint32) {
	if caller == nil {
		return 0, 0
	}
	return caller.Uid, caller.Gid
}
