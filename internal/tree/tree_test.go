package tree

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/smileynet/projtree/internal/project"
)

func node(id, name string, children ...*project.Node) *project.Node {
	return &project.Node{ID: id, Name: name, Subprojects: children}
}

// sample builds:
//
//	a
//	├── a1
//	│   └── a1x
//	└── a2
//	b
func sample() []*project.Node {
	return []*project.Node{
		node("a", "A",
			node("a1", "A1", node("a1x", "A1X")),
			node("a2", "A2"),
		),
		node("b", "B"),
	}
}

func ids(nodes []*FlatNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestFlatten_PreOrderWithLevels(t *testing.T) {
	// Given: a two-root tree
	fl := NewFlattener()

	// When: it is flattened
	got := fl.Flatten(sample())

	// Then: nodes appear in pre-order with depth levels
	want := []struct {
		id    string
		level int
		exp   bool
	}{
		{"a", 0, true},
		{"a1", 1, true},
		{"a1x", 2, false},
		{"a2", 1, false},
		{"b", 0, false},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), ids(got))
	}
	for i, w := range want {
		if got[i].ID != w.id || got[i].Level != w.level || got[i].Expandable != w.exp {
			t.Errorf("[%d] = {%s %d %v}, want {%s %d %v}",
				i, got[i].ID, got[i].Level, got[i].Expandable, w.id, w.level, w.exp)
		}
	}
}

func TestFlatten_Empty(t *testing.T) {
	if got := NewFlattener().Flatten(nil); len(got) != 0 {
		t.Errorf("Flatten(nil) = %v, want empty", ids(got))
	}
}

func TestFlatten_CopiesPersistedExpanded(t *testing.T) {
	roots := []*project.Node{{ID: "x", Name: "X", Expanded: true}}
	got := NewFlattener().Flatten(roots)
	if !got[0].Expanded {
		t.Error("Expanded should mirror the source flag at projection time")
	}
}

func TestFlatten_ReusesUnchangedNodes(t *testing.T) {
	// Given: a tree flattened once
	fl := NewFlattener()
	roots := sample()
	first := fl.Flatten(roots)

	// When: the same tree is flattened again
	second := fl.Flatten(roots)

	// Then: every flat node is the same object
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("node %s was reallocated", first[i].ID)
		}
	}
}

func TestFlatten_RenamedNodeIsRebuilt(t *testing.T) {
	fl := NewFlattener()
	roots := sample()
	first := fl.Flatten(roots)

	roots[1].Name = "B renamed"
	second := fl.Flatten(roots)

	if first[4] == second[4] {
		t.Error("renamed node should get a fresh flat node")
	}
	if second[4].Name != "B renamed" {
		t.Errorf("Name = %q", second[4].Name)
	}
	if first[0] != second[0] {
		t.Error("unchanged sibling should be reused")
	}
}

func TestFlatten_ReusedNodeRefreshesShape(t *testing.T) {
	// Given: a leaf that later gains a child and moves under another root
	fl := NewFlattener()
	b := node("b", "B")
	roots := []*project.Node{node("a", "A"), b}
	first := fl.Flatten(roots)
	flatB := first[1]

	// When: b moves under a and gets its own child
	b.Subprojects = []*project.Node{node("bx", "BX")}
	roots[0].Subprojects = []*project.Node{b}
	second := fl.Flatten(roots[:1])

	// Then: the reused flat node reports its new level and expandability
	if second[1] != flatB {
		t.Fatal("b should keep its flat node")
	}
	if flatB.Level != 1 || !flatB.Expandable {
		t.Errorf("b = level %d expandable %v, want 1 true", flatB.Level, flatB.Expandable)
	}
}

func TestFlatten_PrunesRemovedNodes(t *testing.T) {
	fl := NewFlattener()
	roots := sample()
	fl.Flatten(roots)
	if fl.Identities().Len() != 5 {
		t.Fatalf("Len = %d, want 5", fl.Identities().Len())
	}

	fl.Flatten(roots[1:])

	if n := fl.Identities().Len(); n != 1 {
		t.Errorf("Len after removal = %d, want 1", n)
	}
	if _, ok := fl.Identities().Flat(roots[0]); ok {
		t.Error("removed node still mapped")
	}
}

func TestIdentityMap_MutualInverse(t *testing.T) {
	fl := NewFlattener()
	roots := sample()
	flat := fl.Flatten(roots)
	m := fl.Identities()

	for _, f := range flat {
		n, ok := m.Nested(f)
		if !ok {
			t.Fatalf("flat %s has no nested entry", f.ID)
		}
		back, ok := m.Flat(n)
		if !ok || back != f {
			t.Errorf("Flat(Nested(%s)) is not the same node", f.ID)
		}
	}
}

func TestIdentityMap_TransformDirect(t *testing.T) {
	m := NewIdentityMap()
	n := node("p1", "One")

	f1 := m.Transform(n, 0)
	f2 := m.Transform(n, 3)

	if f1 != f2 {
		t.Error("Transform should reuse the projection for an unchanged name")
	}
	if f2.Level != 3 {
		t.Errorf("Level = %d, want 3", f2.Level)
	}
	n.Name = "Two"
	if f3 := m.Transform(n, 0); f3 == f1 {
		t.Error("Transform should rebuild after a rename")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
	if _, ok := m.Nested(f1); ok {
		t.Error("stale flat node should be unmapped after rebuild")
	}
}

// genForest draws a random acyclic forest with unique IDs.
func genForest(t *rapid.T) []*project.Node {
	next := 0
	var gen func(depth int) []*project.Node
	gen = func(depth int) []*project.Node {
		maxKids := 4
		if depth >= 4 {
			maxKids = 0
		}
		count := rapid.IntRange(0, maxKids).Draw(t, fmt.Sprintf("kids@%d", next))
		out := make([]*project.Node, 0, count)
		for i := 0; i < count; i++ {
			id := fmt.Sprintf("n%d", next)
			next++
			n := &project.Node{
				ID:       id,
				Name:     rapid.SampledFrom([]string{"", "x", "y"}).Draw(t, id+"-name"),
				Expanded: rapid.Bool().Draw(t, id+"-expanded"),
			}
			n.Subprojects = gen(depth + 1)
			out = append(out, n)
		}
		return out
	}
	return gen(0)
}

func TestFlatten_InvariantsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		roots := genForest(t)
		fl := NewFlattener()
		flat := fl.Flatten(roots)
		m := fl.Identities()

		for i, f := range flat {
			n, ok := m.Nested(f)
			if !ok {
				t.Fatalf("%s unmapped", f.ID)
			}
			// Expandable iff the source has children.
			if f.Expandable != (len(n.Subprojects) > 0) {
				t.Fatalf("%s expandable = %v with %d children", f.ID, f.Expandable, len(n.Subprojects))
			}
			// Children follow contiguously at level+1, descendants deeper.
			j := i + 1
			for _, c := range n.Subprojects {
				if j >= len(flat) || flat[j].ID != c.ID {
					t.Fatalf("child %s of %s not at index %d", c.ID, f.ID, j)
				}
				if flat[j].Level != f.Level+1 {
					t.Fatalf("child %s level %d, parent %d", c.ID, flat[j].Level, f.Level)
				}
				j++
				for j < len(flat) && flat[j].Level > f.Level+1 {
					j++
				}
			}
		}

		again := fl.Flatten(roots)
		for i := range flat {
			if flat[i] != again[i] {
				t.Fatalf("re-flatten reallocated %s", flat[i].ID)
			}
		}
	})
}
