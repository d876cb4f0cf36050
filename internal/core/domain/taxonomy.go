package domain

import "sort"

// Taxonomy is an immutable snapshot of the canonical chart of accounts,
// stored as an arena of nodes with code and parent-code indexes. Hierarchy
// lookups are O(1) map hits rather than pointer chases, and the snapshot is
// safe for concurrent readers during a suggestion batch.
type Taxonomy struct {
	arena     []Account
	byCode    map[string]int
	children  map[string][]int
	byConcept map[string][]int
}

// NewTaxonomy builds the snapshot indexes from a flat account list.
// Child and concept listings are ordered by account code.
func NewTaxonomy(accounts []Account) *Taxonomy {
	t := &Taxonomy{
		arena:     make([]Account, len(accounts)),
		byCode:    make(map[string]int, len(accounts)),
		children:  make(map[string][]int),
		byConcept: make(map[string][]int),
	}
	copy(t.arena, accounts)
	for i := range t.arena {
		a := &t.arena[i]
		t.byCode[a.Code] = i
		if a.ParentCode != "" {
			t.children[a.ParentCode] = append(t.children[a.ParentCode], i)
		}
		if a.ConceptTag != "" {
			t.byConcept[a.ConceptTag] = append(t.byConcept[a.ConceptTag], i)
		}
	}
	for _, idx := range t.children {
		t.sortByCode(idx)
	}
	for _, idx := range t.byConcept {
		t.sortByCode(idx)
	}
	return t
}

func (t *Taxonomy) sortByCode(idx []int) {
	sort.Slice(idx, func(i, j int) bool {
		return t.arena[idx[i]].Code < t.arena[idx[j]].Code
	})
}

// Len returns the number of accounts in the snapshot.
func (t *Taxonomy) Len() int {
	return len(t.arena)
}

// Resolve returns the account with the given code, if present.
func (t *Taxonomy) Resolve(code string) (Account, bool) {
	i, ok := t.byCode[code]
	if !ok {
		return Account{}, false
	}
	return t.arena[i], true
}

// ResolveConcept returns the accounts carrying the given external concept
// tag, ordered by code. Empty when the tag is unknown.
func (t *Taxonomy) ResolveConcept(tag string) []Account {
	return t.collect(t.byConcept[tag])
}

// Children returns the direct children of the given code, ordered by code.
func (t *Taxonomy) Children(code string) []Account {
	return t.collect(t.children[code])
}

// LeafDescendants returns every leaf account at or below the given code,
// ordered by code. Nil when the code is unknown.
func (t *Taxonomy) LeafDescendants(code string) []Account {
	i, ok := t.byCode[code]
	if !ok {
		return nil
	}
	var leaves []Account
	stack := []int{i}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		a := t.arena[n]
		if a.IsLeaf {
			leaves = append(leaves, a)
			continue
		}
		stack = append(stack, t.children[a.Code]...)
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].Code < leaves[j].Code })
	return leaves
}

// IsMappable reports whether the code resolves to an active leaf account.
func (t *Taxonomy) IsMappable(code string) bool {
	a, ok := t.Resolve(code)
	return ok && a.IsMappingTarget()
}

// Accounts returns a copy of every account in the snapshot.
func (t *Taxonomy) Accounts() []Account {
	out := make([]Account, len(t.arena))
	copy(out, t.arena)
	return out
}

func (t *Taxonomy) collect(idx []int) []Account {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Account, 0, len(idx))
	for _, i := range idx {
		out = append(out, t.arena[i])
	}
	return out
}
