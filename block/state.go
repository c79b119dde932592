// Package block models the BlockState tuple and the per-section Palette
// that assigns it compact integer IDs, grounded on the PalettedContainer
// palette-growth logic in the teacher lineage's chunk parser (palette
// entries looked up by linear scan, grown on demand) but reshaped around
// this module's BlockState/NBT semantics instead of raw protocol varints.
package block

import (
	"sort"
	"strings"

	"github.com/go-mclib/anvil/nbt"
)

// State is an interned (name, properties) tuple identifying a block's
// visual/logical state. Two States are equal iff both name and properties
// match exactly; Properties is compared by content, so State is safe to use
// as a map key only through its Key method (maps are not comparable).
type State struct {
	Name       string
	Properties map[string]string
}

// NewState returns a State with a defensively copied properties map.
func NewState(name string, properties map[string]string) State {
	var props map[string]string
	if len(properties) > 0 {
		props = make(map[string]string, len(properties))
		for k, v := range properties {
			props[k] = v
		}
	}
	return State{Name: name, Properties: props}
}

// Air is the implicit block state every section slot holds until set.
var Air = State{Name: "minecraft:air"}

// Equal reports whether s and other have the same name and properties.
func (s State) Equal(other State) bool {
	if s.Name != other.Name {
		return false
	}
	if len(s.Properties) != len(other.Properties) {
		return false
	}
	for k, v := range s.Properties {
		if other.Properties[k] != v {
			return false
		}
	}
	return true
}

// Key returns a canonical string form suitable as a map key, with
// properties sorted by key so that two equal States always produce the
// same Key regardless of how their maps were populated.
func (s State) Key() string {
	if len(s.Properties) == 0 {
		return s.Name
	}
	keys := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(s.Name)
	sb.WriteByte('[')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(s.Properties[k])
	}
	sb.WriteByte(']')
	return sb.String()
}

// ToNBT serializes s as a Compound with "Name" and, when non-empty,
// "Properties".
func (s State) ToNBT() nbt.Compound {
	c := nbt.NewCompound()
	c.Set("Name", nbt.String(s.Name))
	if len(s.Properties) > 0 {
		props := nbt.NewCompound()
		keys := make([]string, 0, len(s.Properties))
		for k := range s.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			props.Set(k, nbt.String(s.Properties[k]))
		}
		c.Set("Properties", props)
	}
	return c
}

// StateFromNBT reads a State from a Compound shaped like ToNBT's output.
func StateFromNBT(c nbt.Compound) (State, error) {
	nameTag, ok := c.Get("Name")
	if !ok {
		return State{}, errMissingName
	}
	name, ok := nameTag.(nbt.String)
	if !ok {
		return State{}, errMissingName
	}
	s := State{Name: string(name)}
	if propsTag, ok := c.Get("Properties"); ok {
		props, ok := propsTag.(nbt.Compound)
		if !ok {
			return State{}, errBadProperties
		}
		s.Properties = make(map[string]string, props.Len())
		props.Range(func(k string, v nbt.Tag) bool {
			if sv, ok := v.(nbt.String); ok {
				s.Properties[k] = string(sv)
			}
			return true
		})
	}
	return s, nil
}
