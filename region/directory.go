package region

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-mclib/anvil/anvilerr"
)

// Directory manages the set of open region files backing a world save
// directory, lazily opening `r.<x>.<z>.mca` files on first access and
// closing every open file on Directory.Close.
type Directory struct {
	path string
	opts []Option

	mu    sync.Mutex
	files map[[2]int32]*File
}

// NewDirectory returns a Directory rooted at path, the folder holding a
// world's `.mca` files. Region files are created under path on first
// access, not eagerly.
func NewDirectory(path string, opts ...Option) *Directory {
	return &Directory{path: path, opts: opts, files: make(map[[2]int32]*File)}
}

// regionFileName returns the canonical "r.<x>.<z>.mca" name for a region.
func regionFileName(rx, rz int32) string {
	return fmt.Sprintf("r.%d.%d.mca", rx, rz)
}

// Open returns the already-open *File for (rx, rz), opening (and creating,
// if necessary) its backing file on first access.
func (d *Directory) Open(rx, rz int32) (*File, error) {
	key := [2]int32{rx, rz}

	d.mu.Lock()
	defer d.mu.Unlock()

	if f, ok := d.files[key]; ok {
		return f, nil
	}

	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return nil, anvilerr.New("region.Directory.Open", anvilerr.Io, err)
	}
	osFile, err := os.OpenFile(filepath.Join(d.path, regionFileName(rx, rz)), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, anvilerr.New("region.Directory.Open", anvilerr.Io, err)
	}

	f, err := Open(NewOSFileHandle(osFile), rx, rz, d.opts...)
	if err != nil {
		osFile.Close()
		return nil, err
	}
	d.files[key] = f
	return f, nil
}

// ForChunk is Open, but takes absolute chunk coordinates and resolves them
// to the owning region.
func (d *Directory) ForChunk(cx, cz int32) (*File, error) {
	return d.Open(ChunkToRegion(cx), ChunkToRegion(cz))
}

// Close flushes nothing by itself (callers wanting cached mutations
// persisted must call FlushCachedChunks per file first) but closes every
// region file this Directory has opened.
func (d *Directory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for key, f := range d.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.files, key)
	}
	return firstErr
}
