package chunk

import (
	"github.com/go-mclib/anvil/anvilerr"
	"github.com/go-mclib/anvil/block"
	"github.com/go-mclib/anvil/nbt"
)

// Column is one 16x16-block vertical chunk column: up to 16 Sections indexed
// by y-index (section y-index*16 .. *16+15 covers world y-range 0..255), plus
// whatever other Level tags the format defines. Column does not model
// Heightmaps, Entities, TileEntities, Structures, InhabitedTime, LastUpdate,
// or Status as dedicated fields; it keeps them, and any tag it does not
// otherwise recognize, verbatim in Extra so Save reproduces them unchanged.
type Column struct {
	X, Z        int32
	DataVersion int32
	Extra       nbt.Compound

	sections [16]*Section
}

// NewColumn returns an empty Column at the given absolute chunk coordinates.
func NewColumn(x, z int32) *Column {
	return &Column{X: x, Z: z, Extra: nbt.NewCompound()}
}

func sectionAndLocalY(y int) (int, int, error) {
	if y < 0 || y > 255 {
		return 0, 0, anvilerr.New("chunk.Column", anvilerr.OutOfRange, errOutOfRange)
	}
	return y / 16, y % 16, nil
}

// GetBlockState returns the block state at chunk-local coordinates (x, z in
// 0..15, y in 0..255). A section with no data is treated as all air.
func (col *Column) GetBlockState(x, y, z int) (block.State, error) {
	si, ly, err := sectionAndLocalY(y)
	if err != nil {
		return block.State{}, err
	}
	sec := col.sections[si]
	if sec == nil {
		return block.Air, nil
	}
	return sec.Get(x, ly, z)
}

// SetBlockState sets the block state at chunk-local coordinates, lazily
// creating the covering Section on first write.
func (col *Column) SetBlockState(x, y, z int, state block.State) error {
	si, ly, err := sectionAndLocalY(y)
	if err != nil {
		return err
	}
	sec := col.sections[si]
	if sec == nil {
		sec = NewSection(int8(si))
		col.sections[si] = sec
	}
	return sec.Set(x, ly, z, state)
}

// GetBiome returns the biome ID covering chunk-local block coordinates.
func (col *Column) GetBiome(x, y, z int) (int32, error) {
	si, ly, err := sectionAndLocalY(y)
	if err != nil {
		return 0, err
	}
	sec := col.sections[si]
	if sec == nil {
		return 0, nil
	}
	return sec.GetBiome(x, ly, z)
}

// SetBiome sets the biome ID for the 4x4x4 cell covering chunk-local block
// coordinates, lazily creating the covering Section on first write.
func (col *Column) SetBiome(x, y, z int, biome int32) error {
	si, ly, err := sectionAndLocalY(y)
	if err != nil {
		return err
	}
	sec := col.sections[si]
	if sec == nil {
		sec = NewSection(int8(si))
		col.sections[si] = sec
	}
	return sec.SetBiome(x, ly, z, biome)
}

// Section returns the section at y-index 0..15, or nil if it has never been
// written to.
func (col *Column) Section(yIndex int) *Section {
	if yIndex < 0 || yIndex > 15 {
		return nil
	}
	return col.sections[yIndex]
}

// Load builds a Column from an NBT root Compound shaped like Save's output.
func Load(root nbt.Compound) (*Column, error) {
	levelTag, ok := root.Get("Level")
	if !ok {
		return nil, anvilerr.New("chunk.Load", anvilerr.Malformed, errMissingLevel)
	}
	level, ok := levelTag.(nbt.Compound)
	if !ok {
		return nil, anvilerr.New("chunk.Load", anvilerr.Malformed, errBadLevel)
	}

	col := NewColumn(0, 0)
	if dv, ok := root.Get("DataVersion"); ok {
		if i, ok := dv.(nbt.Int); ok {
			col.DataVersion = int32(i)
		}
	}

	level.Range(func(name string, value nbt.Tag) bool {
		switch name {
		case "xPos":
			if i, ok := value.(nbt.Int); ok {
				col.X = int32(i)
			}
		case "zPos":
			if i, ok := value.(nbt.Int); ok {
				col.Z = int32(i)
			}
		case "Sections":
			// handled below, after the range so errors can be returned
		default:
			col.Extra.Set(name, value.Clone())
		}
		return true
	})

	sectionsTag, ok := level.Get("Sections")
	if ok {
		sectionsList, ok := sectionsTag.(nbt.List)
		if !ok {
			return nil, anvilerr.New("chunk.Load", anvilerr.Malformed, errBadSections)
		}
		for _, elem := range sectionsList.Elems {
			sc, ok := elem.(nbt.Compound)
			if !ok {
				return nil, anvilerr.New("chunk.Load", anvilerr.Malformed, errBadSection)
			}
			sec, err := SectionFromNBT(sc)
			if err != nil {
				return nil, err
			}
			if sec.Y < 0 || sec.Y > 15 {
				return nil, anvilerr.New("chunk.Load", anvilerr.Malformed, errBadY)
			}
			col.sections[sec.Y] = sec
		}
	}

	return col, nil
}

// Save serializes the column back to its NBT root shape: {DataVersion,
// Level: {xPos, zPos, Sections, ...Extra}}. Sections reduced to implicit air
// are omitted.
func (col *Column) Save() nbt.Compound {
	level := nbt.NewCompound()
	level.Set("xPos", nbt.Int(col.X))
	level.Set("zPos", nbt.Int(col.Z))

	var elems []nbt.Tag
	for _, sec := range col.sections {
		if sec == nil || sec.IsEmpty() {
			continue
		}
		sc, err := sec.ToNBT()
		if err != nil {
			// ToNBT only fails when a block is missing from its own
			// section's palette, which Set/SectionFromNBT never allow.
			continue
		}
		elems = append(elems, sc)
	}
	level.Set("Sections", nbt.List{ElemKind: nbt.KindCompound, Elems: elems})

	col.Extra.Range(func(name string, value nbt.Tag) bool {
		level.Set(name, value.Clone())
		return true
	})

	root := nbt.NewCompound()
	root.Set("DataVersion", nbt.Int(col.DataVersion))
	root.Set("Level", level)
	return root
}
