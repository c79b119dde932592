// Package region implements the Anvil region container: a sector-based
// allocator over a single ~8 KiB-headered file that packs up to 1024
// compressed NBT chunk columns, indexed by (chunkX, chunkZ) within the
// region.
package region

import (
	"bytes"
	"encoding/binary"
	"log"
	"math"
	"sync"
	"time"

	"github.com/go-mclib/anvil/anvilerr"
	"github.com/go-mclib/anvil/block"
	"github.com/go-mclib/anvil/chunk"
	"github.com/go-mclib/anvil/nbt"
)

// File is one open `.mca` region file: the sector allocator, header tables,
// and chunk-column cache for a single (regionX, regionZ) pair.
type File struct {
	fh               FileHandle
	regionX, regionZ int32
	logger           *log.Logger

	mu          sync.Mutex
	locations   [numSlots]uint32
	timestamps  [numSlots]uint32
	freeSectors []bool // true = free

	cache *columnCache
}

// Open initializes (or verifies) fh as the region file for (regionX,
// regionZ), writing a fresh 8 KiB zero header if the file is shorter than
// that, and building the in-memory free-sector map from whatever header it
// finds.
func Open(fh FileHandle, regionX, regionZ int32, opts ...Option) (*File, error) {
	f := &File{
		fh:      fh,
		regionX: regionX,
		regionZ: regionZ,
		logger:  defaultLogger(),
		cache:   newColumnCache(),
	}
	for _, opt := range opts {
		opt(f)
	}

	size, err := fh.Size()
	if err != nil {
		return nil, anvilerr.New("region.Open", anvilerr.Io, err)
	}

	if size < headerBytes {
		zero := make([]byte, headerBytes)
		if _, err := fh.WriteAt(zero, 0); err != nil {
			return nil, anvilerr.New("region.Open", anvilerr.Io, err)
		}
		size = headerBytes
	}

	if rem := size % sectorSize; rem != 0 {
		size += sectorSize - rem
		if err := fh.Truncate(size); err != nil {
			return nil, anvilerr.New("region.Open", anvilerr.Io, err)
		}
	}

	raw := make([]byte, headerBytes)
	if _, err := fh.ReadAt(raw, 0); err != nil {
		return nil, anvilerr.New("region.Open", anvilerr.Io, err)
	}
	f.locations, f.timestamps = readHeader(raw)

	numSectors := size / sectorSize
	f.freeSectors = make([]bool, numSectors)
	for i := range f.freeSectors {
		f.freeSectors[i] = true
	}
	f.markRange(false, 0, 2) // header occupies sectors 0 and 1

	for i := 0; i < numSlots; i++ {
		if f.locations[i] == 0 {
			continue
		}
		offset, count := decodeLocation(f.locations[i])
		if offset < 2 || count < 1 || offset+count > len(f.freeSectors) {
			f.logger.Printf("region: slot %d has out-of-range location (offset=%d count=%d, file has %d sectors); leaving header entry untouched", i, offset, count, len(f.freeSectors))
			continue
		}
		f.markRange(false, offset, count)
	}

	return f, nil
}

// markRange sets freeSectors[offset:offset+count] to the value of free
// (true marks the run free, false marks it taken). Callers hold mu.
func (f *File) markRange(free bool, offset, count int) {
	for i := offset; i < offset+count && i < len(f.freeSectors); i++ {
		f.freeSectors[i] = free
	}
}

// findFreeRun returns the first offset at which count consecutive sectors
// are free, or -1 if none exists. The search is inclusive of a run landing
// exactly at the tail of freeSectors. Callers hold mu.
func (f *File) findFreeRun(count int) int {
	for start := 0; start+count <= len(f.freeSectors); start++ {
		ok := true
		for i := start; i < start+count; i++ {
			if !f.freeSectors[i] {
				ok = false
				break
			}
		}
		if ok {
			return start
		}
	}
	return -1
}

func (f *File) inRegion(x, z int32) bool {
	return ChunkToRegion(x) == f.regionX && ChunkToRegion(z) == f.regionZ
}

// GetChunk returns the chunk column at absolute chunk coordinates (x, z),
// or (nil, nil) if no data has ever been written for that slot and no
// column for it is cached.
func (f *File) GetChunk(x, z int32) (*chunk.Column, error) {
	if !f.inRegion(x, z) {
		return nil, anvilerr.New("region.GetChunk", anvilerr.OutOfRange, errOutOfRegion)
	}
	index := slotIndex(x, z)

	if col, ok := f.cache.peek(index); ok {
		return col, nil
	}

	f.mu.Lock()
	loc := f.locations[index]
	f.mu.Unlock()
	if loc == 0 {
		return nil, nil
	}

	return f.cache.loadOrCompute(index, func() (*chunk.Column, error) {
		return f.loadFromDisk(x, z, index)
	})
}

// GetOrCreateChunk is GetChunk, but returns a fresh empty column instead of
// nil when the slot has never been written.
func (f *File) GetOrCreateChunk(x, z int32) (*chunk.Column, error) {
	if !f.inRegion(x, z) {
		return nil, anvilerr.New("region.GetOrCreateChunk", anvilerr.OutOfRange, errOutOfRegion)
	}
	index := slotIndex(x, z)

	return f.cache.loadOrCompute(index, func() (*chunk.Column, error) {
		col, err := f.loadFromDisk(x, z, index)
		if err != nil {
			return nil, err
		}
		if col == nil {
			col = chunk.NewColumn(x, z)
		}
		return col, nil
	})
}

// loadFromDisk reads, decompresses, and parses the column at index directly
// from the backing file, bypassing the cache. Returns (nil, nil) if the
// slot's location entry is zero.
func (f *File) loadFromDisk(x, z int32, index int) (*chunk.Column, error) {
	f.mu.Lock()
	loc := f.locations[index]
	f.mu.Unlock()
	if loc == 0 {
		return nil, nil
	}
	offset, count := decodeLocation(loc)
	if offset < 2 || count < 1 {
		return nil, anvilerr.New("region.loadFromDisk", anvilerr.Malformed, errBadLocation)
	}

	head := make([]byte, 5)
	if _, err := f.fh.ReadAt(head, int64(offset)*sectorSize); err != nil {
		return nil, anvilerr.New("region.loadFromDisk", anvilerr.Io, err)
	}
	n := binary.BigEndian.Uint32(head[0:4])
	if n == 0 {
		return nil, anvilerr.New("region.loadFromDisk", anvilerr.Malformed, errShortPayload)
	}
	compType := head[4]

	payload := make([]byte, n-1)
	if len(payload) > 0 {
		if _, err := f.fh.ReadAt(payload, int64(offset)*sectorSize+5); err != nil {
			return nil, anvilerr.New("region.loadFromDisk", anvilerr.Io, err)
		}
	}

	raw, err := decompressColumn(compType, payload)
	if err != nil {
		return nil, err
	}

	rdr, err := nbt.NewReader(bytes.NewReader(raw), false)
	if err != nil {
		return nil, anvilerr.New("region.loadFromDisk", anvilerr.Malformed, err)
	}
	_, rootTag, err := rdr.ReadNamedTag()
	if err != nil {
		return nil, anvilerr.New("region.loadFromDisk", anvilerr.Malformed, err)
	}
	root, ok := rootTag.(nbt.Compound)
	if !ok {
		return nil, anvilerr.New("region.loadFromDisk", anvilerr.Malformed, errBadLocation)
	}

	return chunk.Load(root)
}

// WriteColumn serializes col, compresses it with zlib, allocates (or
// reuses) sectors for it, and persists the location/timestamp header
// entries. The previous sector run backing this slot, if any, stays
// readable until the new one is fully written and relinked.
func (f *File) WriteColumn(col *chunk.Column) error {
	if !f.inRegion(col.X, col.Z) {
		return anvilerr.New("region.WriteColumn", anvilerr.OutOfRange, errOutOfRegion)
	}
	index := slotIndex(col.X, col.Z)

	var buf bytes.Buffer
	w := nbt.NewWriter(&buf, false)
	if err := w.WriteNamedTag("", col.Save()); err != nil {
		return anvilerr.New("region.WriteColumn", anvilerr.Io, err)
	}
	if err := w.Close(); err != nil {
		return anvilerr.New("region.WriteColumn", anvilerr.Io, err)
	}

	compressed, err := compressColumn(buf.Bytes())
	if err != nil {
		return err
	}

	dataSize := 5 + len(compressed) // 4-byte length + 1 compression byte + payload
	sectorCount := int(math.Ceil(float64(dataSize) / float64(sectorSize)))
	if sectorCount >= 256 {
		return anvilerr.New("region.WriteColumn", anvilerr.Capacity, errTooLarge)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	offset := f.findFreeRun(sectorCount)
	if offset < 0 {
		offset = len(f.freeSectors)
		f.freeSectors = append(f.freeSectors, make([]bool, sectorCount)...)
		if err := f.fh.Truncate(int64(len(f.freeSectors)) * sectorSize); err != nil {
			return anvilerr.New("region.WriteColumn", anvilerr.Io, err)
		}
	}
	f.markRange(false, offset, sectorCount)

	payload := make([]byte, sectorCount*sectorSize)
	binary.BigEndian.PutUint32(payload[0:4], uint32(1+len(compressed)))
	payload[4] = compressionZlib
	copy(payload[5:], compressed)

	if _, err := f.fh.WriteAt(payload, int64(offset)*sectorSize); err != nil {
		// The new run never became reachable through the header, so give
		// it back rather than leaking it; the previous copy (if any) is
		// still intact and still what the header points at.
		f.markRange(true, offset, sectorCount)
		return anvilerr.New("region.WriteColumn", anvilerr.Io, err)
	}

	oldLoc := f.locations[index]
	f.locations[index] = encodeLocation(offset, sectorCount)
	f.timestamps[index] = uint32(time.Now().Unix())
	if err := f.persistHeaderEntry(index); err != nil {
		return err
	}

	if oldLoc != 0 {
		oldOffset, oldCount := decodeLocation(oldLoc)
		if oldOffset >= 2 && oldCount >= 1 && oldOffset+oldCount <= len(f.freeSectors) {
			f.markRange(true, oldOffset, oldCount)
		}
	}

	f.cache.store(index, col)
	return nil
}

// persistHeaderEntry writes the location and timestamp table entries for
// index back to the file. Callers hold mu.
func (f *File) persistHeaderEntry(index int) error {
	var locBuf [4]byte
	binary.BigEndian.PutUint32(locBuf[:], f.locations[index])
	if _, err := f.fh.WriteAt(locBuf[:], int64(index*4)); err != nil {
		return anvilerr.New("region.persistHeaderEntry", anvilerr.Io, err)
	}

	var tsBuf [4]byte
	binary.BigEndian.PutUint32(tsBuf[:], f.timestamps[index])
	if _, err := f.fh.WriteAt(tsBuf[:], int64(sectorSize+index*4)); err != nil {
		return anvilerr.New("region.persistHeaderEntry", anvilerr.Io, err)
	}
	return nil
}

// HasChunk reports whether a chunk has been written for (x, z), regardless
// of whether it is currently cached.
func (f *File) HasChunk(x, z int32) (bool, error) {
	if !f.inRegion(x, z) {
		return false, anvilerr.New("region.HasChunk", anvilerr.OutOfRange, errOutOfRegion)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locations[slotIndex(x, z)] != 0, nil
}

// HasLoadedChunk reports whether (x, z) currently has a populated cache
// entry, in addition to everything HasChunk reports.
func (f *File) HasLoadedChunk(x, z int32) (bool, error) {
	if !f.inRegion(x, z) {
		return false, anvilerr.New("region.HasLoadedChunk", anvilerr.OutOfRange, errOutOfRegion)
	}
	if _, ok := f.cache.peek(slotIndex(x, z)); ok {
		return true, nil
	}
	return f.HasChunk(x, z)
}

// Forget drops (x, z) from the cache without writing it back.
func (f *File) Forget(x, z int32) error {
	if !f.inRegion(x, z) {
		return anvilerr.New("region.Forget", anvilerr.OutOfRange, errOutOfRegion)
	}
	f.cache.forget(slotIndex(x, z))
	return nil
}

// FlushCachedChunks writes every currently cached column back to disk and
// clears the cache.
func (f *File) FlushCachedChunks() error {
	var firstErr error
	f.cache.rangeLoaded(func(_ int, col *chunk.Column) {
		if firstErr != nil {
			return
		}
		if err := f.WriteColumn(col); err != nil {
			firstErr = err
		}
	})
	if firstErr != nil {
		return firstErr
	}
	f.cache.clear()
	return nil
}

// Close releases the backing file handle. Cached-but-unwritten mutations
// are discarded; callers wanting persistence must call FlushCachedChunks
// first.
func (f *File) Close() error {
	if err := f.fh.Close(); err != nil {
		return anvilerr.New("region.Close", anvilerr.Io, err)
	}
	return nil
}

func checkY(y int32) error {
	if y < 0 || y > 255 {
		return anvilerr.New("region", anvilerr.OutOfRange, errYOutOfRange)
	}
	return nil
}

// GetBlockState returns the block state at absolute block coordinates.
// Fails with ErrNotPresent if the owning chunk has never been written and
// is not cached.
func (f *File) GetBlockState(x, y, z int32) (block.State, error) {
	if err := checkY(y); err != nil {
		return block.State{}, err
	}
	cx, cz := BlockToChunk(x), BlockToChunk(z)
	col, err := f.GetChunk(cx, cz)
	if err != nil {
		return block.State{}, err
	}
	if col == nil {
		return block.State{}, anvilerr.New("region.GetBlockState", anvilerr.NotPresent, errNotLoaded)
	}
	return col.GetBlockState(int(BlockInsideChunk(x)), int(y), int(BlockInsideChunk(z)))
}

// SetBlockState sets the block state at absolute block coordinates, lazily
// creating the owning chunk column if it does not yet exist.
func (f *File) SetBlockState(x, y, z int32, state block.State) error {
	if err := checkY(y); err != nil {
		return err
	}
	cx, cz := BlockToChunk(x), BlockToChunk(z)
	col, err := f.GetOrCreateChunk(cx, cz)
	if err != nil {
		return err
	}
	return col.SetBlockState(int(BlockInsideChunk(x)), int(y), int(BlockInsideChunk(z)), state)
}

// GetBiome returns the biome ID at absolute block coordinates. Fails with
// ErrNotPresent if the owning chunk has never been written and is not
// cached.
func (f *File) GetBiome(x, y, z int32) (int32, error) {
	if err := checkY(y); err != nil {
		return 0, err
	}
	cx, cz := BlockToChunk(x), BlockToChunk(z)
	col, err := f.GetChunk(cx, cz)
	if err != nil {
		return 0, err
	}
	if col == nil {
		return 0, anvilerr.New("region.GetBiome", anvilerr.NotPresent, errNotLoaded)
	}
	return col.GetBiome(int(BlockInsideChunk(x)), int(y), int(BlockInsideChunk(z)))
}

// SetBiome sets the biome ID at absolute block coordinates, lazily creating
// the owning chunk column if it does not yet exist.
func (f *File) SetBiome(x, y, z int32, biome int32) error {
	if err := checkY(y); err != nil {
		return err
	}
	cx, cz := BlockToChunk(x), BlockToChunk(z)
	col, err := f.GetOrCreateChunk(cx, cz)
	if err != nil {
		return err
	}
	return col.SetBiome(int(BlockInsideChunk(x)), int(y), int(BlockInsideChunk(z)), biome)
}
