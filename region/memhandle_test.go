package region

// memHandle is an in-memory FileHandle, standing in for *os.File so tests
// can exercise the allocator without touching disk.
type memHandle struct {
	data []byte
}

func newMemHandle() *memHandle {
	return &memHandle{}
}

func (m *memHandle) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, nil
	}
	n := copy(p, m.data[off:])
	return n, nil
}

func (m *memHandle) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:], p)
	return len(p), nil
}

func (m *memHandle) Truncate(size int64) error {
	if size <= int64(len(m.data)) {
		m.data = m.data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, m.data)
	m.data = grown
	return nil
}

func (m *memHandle) Size() (int64, error) { return int64(len(m.data)), nil }

func (m *memHandle) Close() error { return nil }
