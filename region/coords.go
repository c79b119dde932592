package region

// BlockToChunk converts a block coordinate to the chunk coordinate containing
// it. The shift is arithmetic, so negative coordinates map correctly.
func BlockToChunk(n int32) int32 { return n >> 4 }

// ChunkToRegion converts a chunk coordinate to the region coordinate
// containing it.
func ChunkToRegion(n int32) int32 { return n >> 5 }

// ChunkInsideRegion returns n's position (0..31) within its owning region.
func ChunkInsideRegion(n int32) int32 { return n & 31 }

// BlockInsideChunk returns n's position (0..15) within its owning chunk.
func BlockInsideChunk(n int32) int32 { return n & 15 }
