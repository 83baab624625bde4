package fuseadapter

import (
	"context"
	"sync"
)

// bufferStore holds one in-memory write buffer per open-for-write inode,
// exactly mirroring the reference implementation's _write_buffers dict:
// a buffer is created lazily on first write (seeded from the current
// version's bytes) and dropped once the last open handle on that inode
// releases.
type bufferStore struct {
	mu      sync.Mutex
	data    map[int64][]byte
	openers map[int64]int
}

func newBufferStore() *bufferStore {
	return &bufferStore{
		data:    make(map[int64][]byte),
		openers: make(map[int64]int),
	}
}

func (b *bufferStore) acquire(inode int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openers[inode]++
}

// release decrements the opener count and drops any buffer once the last
// handle on inode has gone away.
func (b *bufferStore) release(inode int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openers[inode]--
	if b.openers[inode] <= 0 {
		delete(b.openers, inode)
		delete(b.data, inode)
	}
}

func (b *bufferStore) get(inode int64) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.data[inode]
	return buf, ok
}

func (b *bufferStore) set(inode int64, buf []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[inode] = buf
}

func (b *bufferStore) pop(inode int64) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.data[inode]
	delete(b.data, inode)
	return buf, ok
}

// ensureBuffer returns the inode's write buffer, loading it from the
// current committed version on first touch.
func (f *FileSystem) ensureBuffer(ctx context.Context, inode int64) ([]byte, error) {
	if buf, ok := f.buffers.get(inode); ok {
		return buf, nil
	}
	current, err := f.eng.ReadFile(ctx, inode)
	if err != nil {
		return nil, err
	}
	buf := append([]byte(nil), current...)
	f.buffers.set(inode, buf)
	return buf, nil
}

// flushBuffer commits the inode's buffer as a new version. The buffer stays
// in the in-memory map for the inode's other open handles; it is dropped
// when the last handle releases.
func (f *FileSystem) flushBuffer(ctx context.Context, inode int64) error {
	return f.eng.WithInodeLock(inode, func() error {
		buf, ok := f.buffers.get(inode)
		if !ok {
			return nil
		}
		_, err := f.eng.WriteFile(ctx, inode, buf)
		return err
	})
}
