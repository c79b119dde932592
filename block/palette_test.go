package block

import (
	"math/rand"
	"testing"

	"github.com/go-mclib/anvil/anvilerr"
)

func stoneAt(facing string) State { return NewState("minecraft:stone", map[string]string{"f": facing}) }

func TestPaletteIncreaseDecrease(t *testing.T) {
	p := New()
	s1 := stoneAt("a")
	s2 := stoneAt("b")

	id1 := p.Increase(s1)
	id1b := p.Increase(s1)
	if id1 != id1b {
		t.Fatalf("Increase of same state returned different IDs: %d vs %d", id1, id1b)
	}
	if p.RefCount(s1) != 2 {
		t.Fatalf("RefCount(s1) = %d, want 2", p.RefCount(s1))
	}

	id2 := p.Increase(s2)
	if id2 == id1 {
		t.Fatal("distinct states got the same ID")
	}

	if err := p.Decrease(s1); err != nil {
		t.Fatalf("Decrease: %v", err)
	}
	if p.RefCount(s1) != 1 {
		t.Fatalf("RefCount(s1) after one Decrease = %d, want 1", p.RefCount(s1))
	}
	if err := p.Decrease(s1); err != nil {
		t.Fatalf("Decrease: %v", err)
	}
	if _, ok := p.IDOf(s1); ok {
		t.Fatal("s1 should have been removed once refcount hit zero")
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after removal", p.Len())
	}
	// s2's ID should have shifted down to 0.
	newID2, ok := p.IDOf(s2)
	if !ok || newID2 != 0 {
		t.Fatalf("s2 ID after shift = %d, ok=%v, want 0, true", newID2, ok)
	}
}

func TestPaletteDecreaseUnreferenced(t *testing.T) {
	p := New()
	err := p.Decrease(stoneAt("nope"))
	if err == nil {
		t.Fatal("expected error decrementing unreferenced state")
	}
	var ae *anvilerr.Error
	if !errAs(err, &ae) || ae.Kind != anvilerr.InvalidArgument {
		t.Fatalf("expected InvalidArgument error, got %v", err)
	}
}

func errAs(err error, target **anvilerr.Error) bool {
	e, ok := err.(*anvilerr.Error)
	if ok {
		*target = e
	}
	return ok
}

func TestPaletteInvariantUnderRandomOps(t *testing.T) {
	p := New()
	rng := rand.New(rand.NewSource(42))
	live := map[string]int{}

	states := make([]State, 8)
	for i := range states {
		states[i] = stoneAt(string(rune('a' + i)))
	}

	for i := 0; i < 2000; i++ {
		s := states[rng.Intn(len(states))]
		if live[s.Key()] == 0 || rng.Intn(2) == 0 {
			p.Increase(s)
			live[s.Key()]++
		} else {
			if err := p.Decrease(s); err != nil {
				t.Fatalf("Decrease: %v", err)
			}
			live[s.Key()]--
			if live[s.Key()] == 0 {
				delete(live, s.Key())
			}
		}

		if p.Len() != len(live) {
			t.Fatalf("palette has %d states, want %d live", p.Len(), len(live))
		}
		for _, s := range p.States() {
			if p.RefCount(s) < 1 {
				t.Fatalf("state %v has refcount %d, want >= 1", s, p.RefCount(s))
			}
			if _, ok := live[s.Key()]; !ok {
				t.Fatalf("state %v present in palette but not in live set", s)
			}
		}
	}
}

func TestPaletteNBTRoundTrip(t *testing.T) {
	p := New()
	p.Increase(stoneAt("a"))
	p.Increase(stoneAt("b"))
	p.Increase(stoneAt("c"))

	list := p.ToNBT()
	got, err := FromNBT(list)
	if err != nil {
		t.Fatalf("FromNBT: %v", err)
	}
	if got.Len() != p.Len() {
		t.Fatalf("Len mismatch: got %d, want %d", got.Len(), p.Len())
	}
	for i, s := range p.States() {
		gs, ok := got.StateAt(i)
		if !ok || !gs.Equal(s) {
			t.Fatalf("state %d mismatch: got %+v, want %+v", i, gs, s)
		}
	}
}

func TestCompactIDs(t *testing.T) {
	p := New()
	for i := 0; i < 5; i++ {
		p.Increase(stoneAt(string(rune('a' + i))))
	}
	perSlot := make([]State, 4096)
	rng := rand.New(rand.NewSource(7))
	for i := range perSlot {
		perSlot[i] = stoneAt(string(rune('a' + rng.Intn(5))))
	}

	words, width, err := p.CompactIDs(perSlot)
	if err != nil {
		t.Fatalf("CompactIDs: %v", err)
	}
	if width != 3 {
		t.Fatalf("width = %d, want 3", width)
	}
	if len(words) != 196 {
		t.Fatalf("len(words) = %d, want 196 (21 three-bit values per word)", len(words))
	}
}

func TestCompactIDsUnknownState(t *testing.T) {
	p := New()
	p.Increase(stoneAt("a"))
	_, _, err := p.CompactIDs([]State{stoneAt("unknown")})
	if err == nil {
		t.Fatal("expected error for unknown state")
	}
}
