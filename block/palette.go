package block

import (
	"github.com/go-mclib/anvil/anvilerr"
	"github.com/go-mclib/anvil/bitpack"
	"github.com/go-mclib/anvil/nbt"
)

// Palette is an ordered, reference-counted set of unique block States. A
// State's position in the sequence is its local ID; removing a state (when
// its reference count reaches zero) shifts subsequent IDs down, so callers
// must re-encode any packed index arrays referring to this palette after a
// removal.
type Palette struct {
	states []State
	index  map[string]int // State.Key() -> position in states
	refs   map[string]int // State.Key() -> reference count
}

// New returns an empty Palette.
func New() *Palette {
	return &Palette{index: make(map[string]int), refs: make(map[string]int)}
}

// Len returns the number of distinct states currently held.
func (p *Palette) Len() int { return len(p.states) }

// States returns a copy of the palette's states in insertion order.
func (p *Palette) States() []State {
	out := make([]State, len(p.states))
	copy(out, p.states)
	return out
}

// IDOf returns s's local ID, if present.
func (p *Palette) IDOf(s State) (int, bool) {
	idx, ok := p.index[s.Key()]
	return idx, ok
}

// StateAt returns the state at local ID id.
func (p *Palette) StateAt(id int) (State, bool) {
	if id < 0 || id >= len(p.states) {
		return State{}, false
	}
	return p.states[id], true
}

// RefCount returns s's current reference count (0 if absent).
func (p *Palette) RefCount(s State) int {
	return p.refs[s.Key()]
}

// Increase adds s at the end if it is new (refcount 1) or increments its
// existing refcount. It returns s's local ID either way.
func (p *Palette) Increase(s State) int {
	key := s.Key()
	if idx, ok := p.index[key]; ok {
		p.refs[key]++
		return idx
	}
	idx := len(p.states)
	p.states = append(p.states, s)
	p.index[key] = idx
	p.refs[key] = 1
	return idx
}

// SeedUniform registers count references to s in one step, adding it as a
// new entry if absent. It exists for callers materializing a bulk initial
// fill (such as a chunk section's implicit all-air contents) without paying
// for count individual Increase calls, and returns s's local ID.
func (p *Palette) SeedUniform(s State, count int) int {
	key := s.Key()
	if idx, ok := p.index[key]; ok {
		p.refs[key] += count
		return idx
	}
	idx := len(p.states)
	p.states = append(p.states, s)
	p.index[key] = idx
	p.refs[key] = count
	return idx
}

// Decrease decrements s's refcount, removing it (and shifting subsequent
// IDs down by one) once the count reaches zero. Decrementing a state that
// is not currently referenced is an InvalidArgument error.
func (p *Palette) Decrease(s State) error {
	key := s.Key()
	idx, ok := p.index[key]
	if !ok || p.refs[key] <= 0 {
		return anvilerr.New("block.Palette.Decrease", anvilerr.InvalidArgument, errNotReferenced)
	}
	p.refs[key]--
	if p.refs[key] > 0 {
		return nil
	}
	delete(p.refs, key)
	delete(p.index, key)
	p.states = append(p.states[:idx], p.states[idx+1:]...)
	for i := idx; i < len(p.states); i++ {
		p.index[p.states[i].Key()] = i
	}
	return nil
}

// LoadReferences increments reference counts for states already present in
// the palette, without mutating its order. It is used after loading a
// palette's states from NBT to re-derive refcounts by scanning a section's
// decoded block array. An unknown state is an InvalidArgument error.
func (p *Palette) LoadReferences(states []State) error {
	for _, s := range states {
		key := s.Key()
		if _, ok := p.index[key]; !ok {
			return anvilerr.New("block.Palette.LoadReferences", anvilerr.InvalidArgument, errUnknownState)
		}
		p.refs[key]++
	}
	return nil
}

// RetainID increments the reference count of the state already at local ID
// id, the id-indexed counterpart to LoadReferences used when a decoder is
// working with unpacked palette indices rather than State values directly.
func (p *Palette) RetainID(id int) error {
	if id < 0 || id >= len(p.states) {
		return anvilerr.New("block.Palette.RetainID", anvilerr.InvalidArgument, errUnknownState)
	}
	p.refs[p.states[id].Key()]++
	return nil
}

// CompactIDs packs the local IDs of perSlot (looked up by linear scan
// against this palette's small state list, per the format's own
// assumption that palettes rarely exceed a few hundred entries) into a
// bit-packed long array using width = ceil(log2(len(palette))), clamped to
// at least 1 bit.
func (p *Palette) CompactIDs(perSlot []State) ([]uint64, int, error) {
	width := bitpack.BitsFor(len(p.states))
	ids := make([]uint64, len(perSlot))
	for i, s := range perSlot {
		idx, ok := p.index[s.Key()]
		if !ok {
			return nil, 0, anvilerr.New("block.Palette.CompactIDs", anvilerr.InvalidArgument, errUnknownState)
		}
		ids[i] = uint64(idx)
	}
	words, err := bitpack.Pack(ids, width)
	if err != nil {
		return nil, 0, err
	}
	return words, width, nil
}

// ToNBT serializes the palette as a List of Compound, in insertion order;
// list position is the state's local ID.
func (p *Palette) ToNBT() nbt.List {
	elems := make([]nbt.Tag, len(p.states))
	for i, s := range p.states {
		elems[i] = s.ToNBT()
	}
	return nbt.List{ElemKind: nbt.KindCompound, Elems: elems}
}

// FromNBT builds a Palette from a List of Compound in the shape ToNBT
// produces. Refcounts start at zero; callers reconstructing a section
// should follow with LoadReferences or RetainID once the block array is
// decoded.
func FromNBT(list nbt.List) (*Palette, error) {
	p := New()
	for _, e := range list.Elems {
		c, ok := e.(nbt.Compound)
		if !ok {
			return nil, anvilerr.New("block.FromNBT", anvilerr.Malformed, errBadPaletteEntry)
		}
		s, err := StateFromNBT(c)
		if err != nil {
			return nil, anvilerr.New("block.FromNBT", anvilerr.Malformed, err)
		}
		p.states = append(p.states, s)
		p.index[s.Key()] = len(p.states) - 1
	}
	return p, nil
}
