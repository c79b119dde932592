package region

import (
	"errors"
	"io"
	"log"
	"testing"

	"github.com/go-mclib/anvil/anvilerr"
	"github.com/go-mclib/anvil/block"
	"github.com/go-mclib/anvil/nbt"
)

func discardLoggerOpt() Option { return WithLogger(log.New(io.Discard, "", 0)) }

func openMem(t *testing.T, rx, rz int32) *File {
	t.Helper()
	f, err := Open(newMemHandle(), rx, rz, discardLoggerOpt())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return f
}

func TestOpenInitializesHeader(t *testing.T) {
	h := newMemHandle()
	f, err := Open(h, 0, 0, discardLoggerOpt())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(h.data) != headerBytes {
		t.Fatalf("file length = %d, want %d", len(h.data), headerBytes)
	}
	if len(f.freeSectors) != 2 {
		t.Fatalf("freeSectors length = %d, want 2", len(f.freeSectors))
	}
	if f.freeSectors[0] || f.freeSectors[1] {
		t.Fatal("header sectors should be marked taken")
	}
}

func TestGetChunkAbsentReturnsNilNil(t *testing.T) {
	f := openMem(t, 0, 0)
	col, err := f.GetChunk(5, 5)
	if err != nil || col != nil {
		t.Fatalf("GetChunk on absent slot = %+v, %v, want nil, nil", col, err)
	}
}

func TestGetChunkOutOfRegion(t *testing.T) {
	f := openMem(t, 0, 0)
	if _, err := f.GetChunk(40, 0); err == nil {
		t.Fatal("expected an out-of-range error for a chunk outside this region")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	f := openMem(t, 0, 0)
	stone := block.NewState("minecraft:stone", nil)

	col, err := f.GetOrCreateChunk(0, 0)
	if err != nil {
		t.Fatalf("GetOrCreateChunk: %v", err)
	}
	if err := col.SetBlockState(1, 2, 3, stone); err != nil {
		t.Fatalf("SetBlockState: %v", err)
	}
	if err := f.WriteColumn(col); err != nil {
		t.Fatalf("WriteColumn: %v", err)
	}

	f.Forget(0, 0)
	reread, err := f.GetChunk(0, 0)
	if err != nil {
		t.Fatalf("GetChunk after forget: %v", err)
	}
	if reread == nil {
		t.Fatal("expected the written column to be readable after forgetting the cache")
	}
	got, err := reread.GetBlockState(1, 2, 3)
	if err != nil || !got.Equal(stone) {
		t.Fatalf("GetBlockState = %+v, %v, want %+v, nil", got, err, stone)
	}
}

func TestOverwriteFreesOldSectors(t *testing.T) {
	f := openMem(t, 0, 0)
	stone := block.NewState("minecraft:stone", nil)

	col, _ := f.GetOrCreateChunk(0, 0)
	col.SetBlockState(1, 2, 3, stone)
	if err := f.WriteColumn(col); err != nil {
		t.Fatalf("first WriteColumn: %v", err)
	}
	f.mu.Lock()
	firstLoc := f.locations[0]
	f.mu.Unlock()

	// Grow the column with many distinct block states so the second write
	// is larger than the first. The new copy is allocated before the old
	// run is freed, so it always lands on a different sector run.
	for i := 0; i < 200; i++ {
		s := block.NewState("minecraft:test_block", map[string]string{"n": string(rune('a' + i%26))})
		x, y, z := i%16, (i/16)%256, (i/256)%16
		if err := col.SetBlockState(x, y, z, s); err != nil {
			t.Fatalf("SetBlockState #%d: %v", i, err)
		}
	}
	if err := f.WriteColumn(col); err != nil {
		t.Fatalf("second WriteColumn: %v", err)
	}

	f.mu.Lock()
	secondLoc := f.locations[0]
	oldOffset, oldCount := decodeLocation(firstLoc)
	stillTaken := false
	for i := oldOffset; i < oldOffset+oldCount; i++ {
		if !f.freeSectors[i] {
			stillTaken = true
		}
	}
	f.mu.Unlock()

	if secondLoc == firstLoc {
		t.Fatal("expected the second write to relocate to a different sector run")
	}
	if stillTaken {
		t.Fatal("old sector run should have been freed after relinking")
	}

	reread, err := f.GetChunk(0, 0)
	if err != nil || reread == nil {
		t.Fatalf("GetChunk after overwrite = %+v, %v", reread, err)
	}
	got, err := reread.GetBlockState(1, 2, 3)
	if err != nil || !got.Equal(stone) {
		t.Fatalf("GetBlockState = %+v, %v, want %+v, nil", got, err, stone)
	}
}

func TestFileLengthStaysSectorAligned(t *testing.T) {
	f := openMem(t, 0, 0)
	col, _ := f.GetOrCreateChunk(3, 4)
	col.SetBlockState(0, 0, 0, block.NewState("minecraft:dirt", nil))
	if err := f.WriteColumn(col); err != nil {
		t.Fatalf("WriteColumn: %v", err)
	}
	size, err := f.fh.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size%sectorSize != 0 {
		t.Fatalf("file length %d is not a multiple of %d", size, sectorSize)
	}
}

func TestFindFreeRunIncludesExactTailRun(t *testing.T) {
	f := openMem(t, 0, 0)
	f.freeSectors = []bool{false, false, true, true, true}
	if got := f.findFreeRun(3); got != 2 {
		t.Fatalf("findFreeRun(3) = %d, want 2 (the run flush against the tail)", got)
	}
	if got := f.findFreeRun(4); got != -1 {
		t.Fatalf("findFreeRun(4) = %d, want -1 (no run that large exists)", got)
	}
}

func TestHasChunkAndHasLoadedChunk(t *testing.T) {
	f := openMem(t, 0, 0)
	if has, _ := f.HasChunk(1, 1); has {
		t.Fatal("fresh region should not have a chunk at (1,1)")
	}

	col, _ := f.GetOrCreateChunk(1, 1)
	if has, _ := f.HasChunk(1, 1); has {
		t.Fatal("HasChunk should still be false before a write, only the cache is populated")
	}
	if has, _ := f.HasLoadedChunk(1, 1); !has {
		t.Fatal("HasLoadedChunk should be true once GetOrCreateChunk has populated the cache")
	}

	if err := f.WriteColumn(col); err != nil {
		t.Fatalf("WriteColumn: %v", err)
	}
	if has, _ := f.HasChunk(1, 1); !has {
		t.Fatal("HasChunk should be true once the column has been written")
	}
}

func TestOversizedColumnFailsWithCapacity(t *testing.T) {
	f := openMem(t, 0, 0)
	col, _ := f.GetOrCreateChunk(0, 0)

	// Incompressible filler (a small linear-congruential stream, not
	// math/rand, so the test has no hidden nondeterminism) large enough
	// that even zlib can't bring it under the 1 MiB sector-count cap.
	filler := make(nbt.ByteArray, 2<<20)
	var state uint32 = 1
	for i := range filler {
		state = state*1664525 + 1013904223
		filler[i] = int8(state >> 24)
	}
	col.Extra.Set("Filler", filler)

	err := f.WriteColumn(col)
	if err == nil {
		t.Fatal("expected a capacity error for an oversized column")
	}
	if !errors.Is(err, anvilerr.ErrCapacity) {
		t.Fatalf("WriteColumn error = %v, want a Capacity error", err)
	}

	// The slot must still read back as absent: the failed write left no
	// partial state behind.
	if has, _ := f.HasChunk(0, 0); has {
		t.Fatal("a failed write should not have installed a location entry")
	}
}

func TestFlushCachedChunksPersistsAndClears(t *testing.T) {
	f := openMem(t, 0, 0)
	col, _ := f.GetOrCreateChunk(2, 2)
	col.SetBlockState(0, 0, 0, block.NewState("minecraft:stone", nil))

	if err := f.FlushCachedChunks(); err != nil {
		t.Fatalf("FlushCachedChunks: %v", err)
	}
	if has, _ := f.HasChunk(2, 2); !has {
		t.Fatal("expected the cached column to be written to disk")
	}
	if _, ok := f.cache.peek(slotIndex(2, 2)); ok {
		t.Fatal("expected the cache to be cleared after flushing")
	}
}

func TestCoordinateHelpersRoundTrip(t *testing.T) {
	for _, n := range []int32{0, 1, -1, 15, -15, 16, -16, 31, -31, 32, -32, 1<<20 - 1, -(1 << 20)} {
		if got := BlockToChunk(n)*16 + BlockInsideChunk(n); got != n {
			t.Fatalf("BlockToChunk/BlockInsideChunk(%d) = %d, want %d", n, got, n)
		}
		if got := ChunkToRegion(n)*32 + ChunkInsideRegion(n); got != n {
			t.Fatalf("ChunkToRegion/ChunkInsideRegion(%d) = %d, want %d", n, got, n)
		}
	}
}

// faultyHandle wraps memHandle and fails the next WriteAt call whose
// payload exceeds a small threshold, standing in for a write that dies
// mid-payload.
type faultyHandle struct {
	*memHandle
	failNextLargeWrite bool
}

func (f *faultyHandle) WriteAt(p []byte, off int64) (int, error) {
	if f.failNextLargeWrite && len(p) > 64 {
		f.failNextLargeWrite = false
		return 0, errors.New("injected write fault")
	}
	return f.memHandle.WriteAt(p, off)
}

func TestCrashMidWriteLeavesPreviousCopyReadable(t *testing.T) {
	fh := &faultyHandle{memHandle: newMemHandle()}
	f, err := Open(fh, 0, 0, discardLoggerOpt())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	stone := block.NewState("minecraft:stone", nil)
	col, _ := f.GetOrCreateChunk(0, 0)
	col.SetBlockState(1, 2, 3, stone)
	if err := f.WriteColumn(col); err != nil {
		t.Fatalf("first WriteColumn: %v", err)
	}
	f.Forget(0, 0)

	f.mu.Lock()
	before := f.locations[0]
	f.mu.Unlock()

	dirt := block.NewState("minecraft:dirt", nil)
	col2, _ := f.GetOrCreateChunk(0, 0)
	col2.SetBlockState(1, 2, 3, dirt)
	fh.failNextLargeWrite = true
	if err := f.WriteColumn(col2); err == nil {
		t.Fatal("expected the injected write fault to surface as an error")
	}

	f.mu.Lock()
	after := f.locations[0]
	f.mu.Unlock()
	if after != before {
		t.Fatal("a failed write must not swing the location entry onto the unwritten payload")
	}

	f.Forget(0, 0)
	reread, err := f.GetChunk(0, 0)
	if err != nil || reread == nil {
		t.Fatalf("GetChunk after failed write = %+v, %v", reread, err)
	}
	got, err := reread.GetBlockState(1, 2, 3)
	if err != nil || !got.Equal(stone) {
		t.Fatalf("GetBlockState after failed write = %+v, %v, want the previous copy (%+v)", got, err, stone)
	}
}

func TestFullSweepLoadAndForgetIsByteIdentical(t *testing.T) {
	h := newMemHandle()
	f, err := Open(h, 0, 0, discardLoggerOpt())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for cz := int32(0); cz < 32; cz++ {
		for cx := int32(0); cx < 32; cx++ {
			if (cx+cz)%5 != 0 {
				continue
			}
			col, _ := f.GetOrCreateChunk(cx, cz)
			col.SetBlockState(0, 0, 0, block.NewState("minecraft:stone", nil))
			if err := f.WriteColumn(col); err != nil {
				t.Fatalf("WriteColumn(%d,%d): %v", cx, cz, err)
			}
			f.Forget(cx, cz)
		}
	}

	before := make([]byte, len(h.data))
	copy(before, h.data)

	for cz := int32(0); cz < 32; cz++ {
		for cx := int32(0); cx < 32; cx++ {
			has, err := f.HasChunk(cx, cz)
			if err != nil {
				t.Fatalf("HasChunk(%d,%d): %v", cx, cz, err)
			}
			if !has {
				continue
			}
			if _, err := f.GetChunk(cx, cz); err != nil {
				t.Fatalf("GetChunk(%d,%d): %v", cx, cz, err)
			}
			f.Forget(cx, cz)
		}
	}

	if len(h.data) != len(before) {
		t.Fatalf("file length changed from %d to %d after a read-only sweep", len(before), len(h.data))
	}
	for i := range before {
		if h.data[i] != before[i] {
			t.Fatalf("file byte %d changed from %d to %d after a read-only sweep", i, before[i], h.data[i])
		}
	}
}

func TestDirectoryOpensCreatesAndReusesFiles(t *testing.T) {
	dir := t.TempDir()
	d := NewDirectory(dir, discardLoggerOpt())
	defer d.Close()

	f1, err := d.Open(0, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f2, err := d.ForChunk(5, 5)
	if err != nil {
		t.Fatalf("ForChunk: %v", err)
	}
	if f1 != f2 {
		t.Fatal("Directory should return the same *File for the same region")
	}
}
