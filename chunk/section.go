package chunk

import (
	"github.com/go-mclib/anvil/anvilerr"
	"github.com/go-mclib/anvil/bitpack"
	"github.com/go-mclib/anvil/block"
	"github.com/go-mclib/anvil/nbt"
)

// minBlockStatesWidth is the floor the vanilla writer applies to a section's
// bit width even when the palette is small enough to need fewer bits.
const minBlockStatesWidth = 4

// Section is one 16x16x16 horizontal slice of a Column, holding its own
// block palette and a 4x4x4 biome sub-grid. A freshly constructed Section is
// entirely air and carries no palette entries until the first Set.
type Section struct {
	Y       int8
	Palette *block.Palette

	blocks       [4096]block.State
	biomes       [64]int32
	materialized bool
}

// NewSection returns an all-air Section for section-relative index y.
func NewSection(y int8) *Section {
	s := &Section{Y: y, Palette: block.New()}
	for i := range s.blocks {
		s.blocks[i] = block.Air
	}
	return s
}

// materialize registers the section's 4096 implicit-air slots in the
// palette the first time any slot is written, so every slot (air or not)
// always has a palette ID once the section stops being uniformly air.
func (s *Section) materialize() {
	if s.materialized {
		return
	}
	s.materialized = true
	s.Palette.SeedUniform(block.Air, 4096)
}

func blockIndex(x, y, z int) int { return y*256 + z*16 + x }
func biomeIndex(x, y, z int) int { return y*16 + z*4 + x }

func checkRange(v, max int) error {
	if v < 0 || v > max {
		return anvilerr.New("chunk.Section", anvilerr.OutOfRange, errOutOfRange)
	}
	return nil
}

// Get returns the block state at section-local coordinates (each 0..15).
func (s *Section) Get(x, y, z int) (block.State, error) {
	if err := checkRange(x, 15); err != nil {
		return block.State{}, err
	}
	if err := checkRange(y, 15); err != nil {
		return block.State{}, err
	}
	if err := checkRange(z, 15); err != nil {
		return block.State{}, err
	}
	return s.blocks[blockIndex(x, y, z)], nil
}

// Set replaces the block state at section-local coordinates, decrementing
// the outgoing state's palette refcount and incrementing the new one's.
func (s *Section) Set(x, y, z int, state block.State) error {
	if err := checkRange(x, 15); err != nil {
		return err
	}
	if err := checkRange(y, 15); err != nil {
		return err
	}
	if err := checkRange(z, 15); err != nil {
		return err
	}
	idx := blockIndex(x, y, z)
	old := s.blocks[idx]
	if old.Equal(state) {
		return nil
	}
	s.materialize()
	if s.Palette.RefCount(old) > 0 {
		if err := s.Palette.Decrease(old); err != nil {
			return err
		}
	}
	s.Palette.Increase(state)
	s.blocks[idx] = state
	return nil
}

// GetBiome returns the biome ID covering section-local block coordinates,
// truncated to the 4x4x4 biome grid.
func (s *Section) GetBiome(x, y, z int) (int32, error) {
	if err := checkRange(x, 15); err != nil {
		return 0, err
	}
	if err := checkRange(y, 15); err != nil {
		return 0, err
	}
	if err := checkRange(z, 15); err != nil {
		return 0, err
	}
	return s.biomes[biomeIndex(x>>2, y>>2, z>>2)], nil
}

// SetBiome sets the biome ID for the 4x4x4 cell covering section-local block
// coordinates.
func (s *Section) SetBiome(x, y, z int, biome int32) error {
	if err := checkRange(x, 15); err != nil {
		return err
	}
	if err := checkRange(y, 15); err != nil {
		return err
	}
	if err := checkRange(z, 15); err != nil {
		return err
	}
	s.biomes[biomeIndex(x>>2, y>>2, z>>2)] = biome
	return nil
}

// IsEmpty reports whether every slot is implicit air and no biome has been
// customized away from zero: a section in this state is omitted from the
// column's Sections list entirely rather than written as an all-air entry.
func (s *Section) IsEmpty() bool {
	if s.Palette.Len() > 1 {
		return false
	}
	if s.Palette.Len() == 1 {
		states := s.Palette.States()
		if !states[0].Equal(block.Air) {
			return false
		}
	}
	for _, b := range s.biomes {
		if b != 0 {
			return false
		}
	}
	return true
}

// ToNBT serializes the section per the format's layout: Y, Palette, an
// optional bit-packed BlockStates long array (omitted for a uniform
// single-entry palette), and an optional BiomeArray.
func (s *Section) ToNBT() (nbt.Compound, error) {
	c := nbt.NewCompound()
	c.Set("Y", nbt.Byte(s.Y))
	c.Set("Palette", s.Palette.ToNBT())

	if s.Palette.Len() > 1 {
		width := bitpack.BitsFor(s.Palette.Len())
		if width < minBlockStatesWidth {
			width = minBlockStatesWidth
		}
		ids := make([]uint64, len(s.blocks))
		for i, b := range s.blocks {
			id, ok := s.Palette.IDOf(b)
			if !ok {
				return nbt.Compound{}, anvilerr.New("chunk.Section.ToNBT", anvilerr.Malformed, errBadPalette)
			}
			ids[i] = uint64(id)
		}
		words, err := bitpack.Pack(ids, width)
		if err != nil {
			return nbt.Compound{}, err
		}
		longs := make(nbt.LongArray, len(words))
		for i, w := range words {
			longs[i] = int64(w)
		}
		c.Set("BlockStates", longs)
	}

	customBiomes := false
	for _, b := range s.biomes {
		if b != 0 {
			customBiomes = true
			break
		}
	}
	if customBiomes {
		biomes := make(nbt.IntArray, len(s.biomes))
		for i, b := range s.biomes {
			biomes[i] = b
		}
		c.Set("BiomeArray", biomes)
	}
	return c, nil
}

// SectionFromNBT reconstructs a Section from a Compound in the shape ToNBT
// produces.
func SectionFromNBT(c nbt.Compound) (*Section, error) {
	yTag, ok := c.Get("Y")
	if !ok {
		return nil, anvilerr.New("chunk.SectionFromNBT", anvilerr.Malformed, errBadY)
	}
	y, ok := yTag.(nbt.Byte)
	if !ok {
		return nil, anvilerr.New("chunk.SectionFromNBT", anvilerr.Malformed, errBadY)
	}

	paletteTag, ok := c.Get("Palette")
	if !ok {
		return nil, anvilerr.New("chunk.SectionFromNBT", anvilerr.Malformed, errBadPalette)
	}
	paletteList, ok := paletteTag.(nbt.List)
	if !ok {
		return nil, anvilerr.New("chunk.SectionFromNBT", anvilerr.Malformed, errBadPalette)
	}
	palette, err := block.FromNBT(paletteList)
	if err != nil {
		return nil, err
	}

	s := &Section{Y: int8(y), Palette: palette}

	if palette.Len() <= 1 {
		uniform := block.Air
		if palette.Len() == 1 {
			uniform = palette.States()[0]
			palette.SeedUniform(uniform, 4096)
			s.materialized = true
		}
		for i := range s.blocks {
			s.blocks[i] = uniform
		}
	} else {
		s.materialized = true
		width := bitpack.BitsFor(palette.Len())
		if width < minBlockStatesWidth {
			width = minBlockStatesWidth
		}
		statesTag, ok := c.Get("BlockStates")
		if !ok {
			return nil, anvilerr.New("chunk.SectionFromNBT", anvilerr.Malformed, errBadBlockStates)
		}
		longs, ok := statesTag.(nbt.LongArray)
		if !ok {
			return nil, anvilerr.New("chunk.SectionFromNBT", anvilerr.Malformed, errBadBlockStates)
		}
		words := make([]uint64, len(longs))
		for i, l := range longs {
			words[i] = uint64(l)
		}
		ids, err := bitpack.Unpack(words, width, 4096)
		if err != nil {
			return nil, err
		}
		for i, id := range ids {
			state, ok := palette.StateAt(int(id))
			if !ok {
				return nil, anvilerr.New("chunk.SectionFromNBT", anvilerr.Malformed, errBadBlockStates)
			}
			s.blocks[i] = state
			if err := palette.RetainID(int(id)); err != nil {
				return nil, err
			}
		}
	}

	if biomeTag, ok := c.Get("BiomeArray"); ok {
		biomes, ok := biomeTag.(nbt.IntArray)
		if !ok || len(biomes) != 64 {
			return nil, anvilerr.New("chunk.SectionFromNBT", anvilerr.Malformed, errBadBiomeArray)
		}
		copy(s.biomes[:], biomes)
	}

	return s, nil
}
