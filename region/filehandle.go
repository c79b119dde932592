package region

import "os"

// FileHandle abstracts the random-access file operations a RegionFile needs,
// so tests can substitute an in-memory or fault-injecting fake for *os.File.
type FileHandle interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Truncate(size int64) error
	Size() (int64, error)
	Close() error
}

// osFileHandle adapts *os.File to FileHandle.
type osFileHandle struct {
	f *os.File
}

// NewOSFileHandle wraps f as a FileHandle.
func NewOSFileHandle(f *os.File) FileHandle {
	return &osFileHandle{f: f}
}

func (h *osFileHandle) ReadAt(p []byte, off int64) (int, error)  { return h.f.ReadAt(p, off) }
func (h *osFileHandle) WriteAt(p []byte, off int64) (int, error) { return h.f.WriteAt(p, off) }
func (h *osFileHandle) Truncate(size int64) error                { return h.f.Truncate(size) }
func (h *osFileHandle) Close() error                             { return h.f.Close() }

func (h *osFileHandle) Size() (int64, error) {
	fi, err := h.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
