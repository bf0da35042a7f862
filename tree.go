package treegrid

import (
	"slices"

	"github.com/bdlm/log"
)

// Expansion is the requested expand state for SetExpanded.
type Expansion uint8

const (
	Collapse Expansion = iota
	Expand
	Toggle
)

func (e Expansion) resolve(current bool) bool {
	switch e {
	case Expand:
		return true
	case Toggle:
		return !current
	}
	return false
}

// ChildRequest is passed to Config.Children the first time an id needs its
// children. SetChildren may be called later (from the host's own loop) to
// deliver results that weren't available synchronously.
type ChildRequest[T any, K comparable] struct {
	ID          K
	Item        T
	SetChildren func(children []T) []T
}

// Config holds the capabilities a Tree calls back into. Only ID is required.
type Config[T any, K comparable] struct {
	// ID returns a stable identity for item. Ids must be unique among
	// siblings; this isn't checked.
	ID func(item T) K

	// Children fetches an item's children. Returning ok=false means
	// "not available yet": nothing is inserted, and the host is expected to
	// call SetChildren once the data arrives. Children is invoked at most
	// once per id until the dataset version changes.
	Children func(req ChildRequest[T, K]) (children []T, ok bool)

	// HasChildren decides whether an unfetched item shows an expander.
	// Defaults to Children != nil.
	HasChildren func(item T) bool

	// OnChange receives the new flat row list after a public call changed it.
	OnChange func(items []T)

	// Field reads a sortable value for Sort. nil results sort last.
	// Defaults to FieldValue.
	Field func(item T, key string) any
}

// branch is a cached child list. A missing map entry means never fetched.
type branch[T any] struct {
	items   []T
	pending bool
}

// ViewInfo is the per-row tree state a renderer needs for the expander.
type ViewInfo struct {
	Level      int
	Expanded   bool
	Expandable bool
}

// Tree keeps a flat, ordered projection of a hierarchical item set. Rows are
// items; owners[i] is the node whose child items[i] is (nil for root rows).
// Expanding or collapsing a row splices only the affected range of both
// slices.
//
// A Tree is not safe for concurrent use.
type Tree[T any, K comparable] struct {
	cfg Config[T, K]

	roots  []T
	items  []T
	owners []*Node[K]

	root     *Node[K]
	tree     map[K]branch[T]
	fetching map[K]struct{}

	version string

	updates int
	gen     uint64
	lastGen uint64
	dirty   int

	// listener is notified alongside OnChange with the first changed row.
	listener func(items []T, from int)
}

// NewTree builds a tree over the root items.
func NewTree[T any, K comparable](items []T, cfg Config[T, K]) *Tree[T, K] {
	if cfg.ID == nil {
		panic("treegrid: Config.ID is required")
	}
	t := &Tree[T, K]{
		cfg:      cfg,
		roots:    slices.Clone(items),
		root:     newNode[K](0),
		tree:     make(map[K]branch[T]),
		fetching: make(map[K]struct{}),
	}
	t.refresh()
	return t
}

// Reconfigure replaces the non-nil capabilities in cfg and rebuilds the
// projection. Node and child-cache state is kept.
func (t *Tree[T, K]) Reconfigure(cfg Config[T, K]) []T {
	if cfg.ID != nil {
		t.cfg.ID = cfg.ID
	}
	if cfg.Children != nil {
		t.cfg.Children = cfg.Children
	}
	if cfg.HasChildren != nil {
		t.cfg.HasChildren = cfg.HasChildren
	}
	if cfg.OnChange != nil {
		t.cfg.OnChange = cfg.OnChange
	}
	if cfg.Field != nil {
		t.cfg.Field = cfg.Field
	}
	t.BeginUpdate()
	t.refresh()
	return t.EndUpdate()
}

// Items returns the flat row list. Callers must not modify it.
func (t *Tree[T, K]) Items() []T { return t.items }

// Owners returns the owner slice, index-aligned with Items.
func (t *Tree[T, K]) Owners() []*Node[K] { return t.owners }

// Roots returns the root item sequence.
func (t *Tree[T, K]) Roots() []T { return t.roots }

// Len returns the number of visible rows.
func (t *Tree[T, K]) Len() int { return len(t.items) }

// At returns the row at index i.
func (t *Tree[T, K]) At(i int) (T, bool) {
	if i < 0 || i >= len(t.items) {
		var zero T
		return zero, false
	}
	return t.items[i], true
}

// Version returns the last dataset version passed to SetItems.
func (t *Tree[T, K]) Version() string { return t.version }

// BeginUpdate opens an update bracket. Brackets nest; OnChange fires when
// the outermost one closes and the row list changed.
func (t *Tree[T, K]) BeginUpdate() {
	if t.updates == 0 {
		t.lastGen = t.gen
		t.dirty = -1
	}
	t.updates++
}

// EndUpdate closes an update bracket and returns the current rows.
func (t *Tree[T, K]) EndUpdate() []T {
	if t.updates == 0 {
		return t.items
	}
	t.updates--
	if t.updates == 0 && t.gen != t.lastGen {
		t.lastGen = t.gen
		if t.listener != nil {
			t.listener(t.items, max(t.dirty, 0))
		}
		if t.cfg.OnChange != nil {
			t.cfg.OnChange(t.items)
		}
	}
	return t.items
}

// SetItems replaces the root items. A version different from the previous
// one (initially "") drops every node and cached child list; the same
// version keeps them, so rows that were expanded re-expand if their ids are
// still present.
func (t *Tree[T, K]) SetItems(items []T, version string) []T {
	t.BeginUpdate()
	t.roots = slices.Clone(items)

	if version != t.version {
		log.WithFields(log.Fields{
			"from": t.version,
			"to":   version,
		}).Debug("dataset version changed, dropping tree state")
		t.version = version
		t.root.clear()
		clear(t.tree)
		clear(t.fetching)
	}

	t.refresh()
	return t.EndUpdate()
}

// Sort orders the root items by the value Field reads for key and rebuilds
// the projection. Child lists keep the order they were delivered in.
func (t *Tree[T, K]) Sort(key string, dir Direction) []T {
	field := t.cfg.Field
	if field == nil {
		field = FieldValue[T]
	}
	cmp := Comparer(dir)

	t.BeginUpdate()
	slices.SortStableFunc(t.roots, func(a, b T) int {
		return cmp(field(a, key), field(b, key))
	})
	t.refresh()
	return t.EndUpdate()
}

// ExpandedIDs lists expanded ids depth-first, pre-order. Descendants of a
// collapsed node are skipped.
func (t *Tree[T, K]) ExpandedIDs() []K {
	return t.root.collectExpanded(nil)
}

// ViewInfo returns the expander state for row index.
func (t *Tree[T, K]) ViewInfo(index int) ViewInfo {
	if index < 0 || index >= len(t.items) {
		return ViewInfo{}
	}
	item := t.items[index]
	id := t.cfg.ID(item)
	owner := t.ownerAt(index)
	return ViewInfo{
		Level:      owner.level,
		Expanded:   owner.child(id).Expanded(),
		Expandable: t.hasChildren(item, id),
	}
}

// HasChildren reports whether item shows an expander.
func (t *Tree[T, K]) HasChildren(item T) bool {
	return t.hasChildren(item, t.cfg.ID(item))
}

// MatchID reports whether row index has the given id.
func (t *Tree[T, K]) MatchID(index int, id K) bool {
	if index < 0 || index >= len(t.items) {
		return false
	}
	return t.cfg.ID(t.items[index]) == id
}

// IndexOf returns the first visible row with id, or -1.
func (t *Tree[T, K]) IndexOf(id K) int {
	for i, item := range t.items {
		if t.cfg.ID(item) == id {
			return i
		}
	}
	return -1
}

// Expand expands the first visible row with id.
func (t *Tree[T, K]) Expand(id K) []T { return t.SetExpanded(id, Expand) }

// Collapse collapses the first visible row with id.
func (t *Tree[T, K]) Collapse(id K) []T { return t.SetExpanded(id, Collapse) }

// Toggle flips the first visible row with id.
func (t *Tree[T, K]) Toggle(id K) []T { return t.SetExpanded(id, Toggle) }

// SetExpanded changes the expand state of the first visible row with id.
// If no row has that id, the state is recorded against a root-level node
// and the visible rows are left alone.
func (t *Tree[T, K]) SetExpanded(id K, e Expansion) []T {
	return t.setExpanded(id, t.IndexOf(id), e)
}

// SetExpandedAt changes the expand state of row index.
func (t *Tree[T, K]) SetExpandedAt(index int, e Expansion) []T {
	if index < 0 || index >= len(t.items) {
		return t.items
	}
	return t.setExpanded(t.cfg.ID(t.items[index]), index, e)
}

func (t *Tree[T, K]) setExpanded(id K, index int, e Expansion) []T {
	owner := t.root
	if index >= 0 {
		owner = t.ownerAt(index)
	}
	old := owner.child(id).Expanded()
	want := e.resolve(old)
	if want == old {
		return t.items
	}

	return t.updateItem(id, index, func(m *mutation[K]) (T, bool) {
		var zero T
		if want {
			if m.node == nil {
				m.node = newNode[K](m.owner.level + 1)
				m.owner.put(m.id, m.node)
			}
			m.node.expanded = true
		} else if m.node != nil {
			m.node.expanded = false
		}
		return zero, false
	})
}

// SetChildren stores children for id, replacing any cached list. If the row
// is visible and expanded, its subtree is re-spliced. A nil slice marks the
// item as having no children.
func (t *Tree[T, K]) SetChildren(id K, children []T) []T {
	if _, busy := t.fetching[id]; busy {
		// delivered from inside Children; the expansion in progress
		// splices it
		t.tree[id] = branch[T]{items: children}
		return t.items
	}
	return t.updateItem(id, t.IndexOf(id), func(m *mutation[K]) (T, bool) {
		var zero T
		t.tree[m.id] = branch[T]{items: children}
		return zero, false
	})
}

// ReplaceItem swaps the first visible row with id for newItem. The new
// item's subtree is shown if its id has an expanded node under the same
// owner. Replacing a root row also updates the root sequence.
func (t *Tree[T, K]) ReplaceItem(id K, newItem T) []T {
	index := t.IndexOf(id)
	if index >= 0 && t.owners[index] == nil {
		for i, r := range t.roots {
			if t.cfg.ID(r) == id {
				t.roots[i] = newItem
				break
			}
		}
	}
	return t.updateItem(id, index, func(*mutation[K]) (T, bool) {
		return newItem, true
	})
}

type mutation[K comparable] struct {
	id    K
	owner *Node[K]
	node  *Node[K]
}

// updateItem runs mutate for the row at index and splices the rows that
// changed: the row's old visible subtree is removed and its new one inserted.
// A negative index only runs mutate against the root node.
func (t *Tree[T, K]) updateItem(id K, index int, mutate func(*mutation[K]) (T, bool)) []T {
	if index < 0 || index >= len(t.items) {
		log.WithFields(log.Fields{"id": id}).Debug("row not visible, updating tree state only")
		mutate(&mutation[K]{id: id, owner: t.root, node: t.root.child(id)})
		return t.items
	}

	t.BeginUpdate()

	item := t.items[index]
	owner := t.ownerAt(index)
	oldNode := owner.child(id)

	newItem, replaced := mutate(&mutation[K]{id: id, owner: owner, node: oldNode})

	newID := id
	if replaced {
		newID = t.cfg.ID(newItem)
		item = newItem
	}
	newNode := oldNode
	if replaced || oldNode == nil {
		newNode = owner.child(newID)
	}

	var children []T
	if newNode.Expanded() {
		// Children may run host code that splices other rows first.
		children = t.children(newID, item)
		if index = t.locate(index, id, owner); index < 0 {
			return t.EndUpdate()
		}
	}

	var (
		insItems  []T
		insOwners []*Node[K]
	)
	deleteCount := t.descendants(index)
	start := index + 1
	if replaced {
		start = index
		deleteCount++
		insItems = append(insItems, newItem)
		insOwners = append(insOwners, t.ref(owner))
	}
	if newNode.Expanded() {
		insItems, insOwners = t.appendItems(children, newNode, insItems, insOwners)
	}

	if deleteCount > 0 || len(insItems) > 0 {
		t.splice(start, deleteCount, insItems, insOwners)
	}

	return t.EndUpdate()
}

// locate finds the row for id under owner, starting from where it was last
// seen.
func (t *Tree[T, K]) locate(index int, id K, owner *Node[K]) int {
	ref := t.ref(owner)
	at := func(i int) bool {
		return t.owners[i] == ref && t.cfg.ID(t.items[i]) == id
	}
	if index < len(t.items) && at(index) {
		return index
	}
	for i := range t.items {
		if at(i) {
			return i
		}
	}
	return -1
}

// descendants counts the visible rows nested below row index.
func (t *Tree[T, K]) descendants(index int) int {
	level := t.owners[index].Level()
	n := 0
	for i := index + 1; i < len(t.owners) && t.owners[i].Level() > level; i++ {
		n++
	}
	return n
}

// children returns the cached child list for id, fetching it on first use.
func (t *Tree[T, K]) children(id K, item T) []T {
	b, ok := t.tree[id]
	if !ok && t.cfg.Children != nil {
		t.tree[id] = branch[T]{pending: true}
		t.fetching[id] = struct{}{}

		kids, got := t.cfg.Children(ChildRequest[T, K]{
			ID:   id,
			Item: item,
			SetChildren: func(children []T) []T {
				return t.SetChildren(id, children)
			},
		})
		delete(t.fetching, id)

		if got {
			t.tree[id] = branch[T]{items: kids}
		}
		b = t.tree[id]
	}
	if b.pending {
		return nil
	}
	return b.items
}

func (t *Tree[T, K]) hasChildren(item T, id K) bool {
	b, ok := t.tree[id]
	if !ok || b.pending {
		if t.cfg.HasChildren != nil {
			return t.cfg.HasChildren(item)
		}
		return t.cfg.Children != nil
	}
	return len(b.items) > 0
}

func (t *Tree[T, K]) ownerAt(index int) *Node[K] {
	if index >= 0 && index < len(t.owners) && t.owners[index] != nil {
		return t.owners[index]
	}
	return t.root
}

// ref maps the root node to nil so root rows have no owner.
func (t *Tree[T, K]) ref(owner *Node[K]) *Node[K] {
	if owner == t.root {
		return nil
	}
	return owner
}

func (t *Tree[T, K]) refresh() {
	items := make([]T, 0, len(t.roots))
	owners := make([]*Node[K], 0, len(t.roots))
	t.items, t.owners = t.appendItems(t.roots, t.root, items, owners)
	t.touch(0)
}

// appendItems walks source in order, descending into expanded nodes whose
// children are cached. It never fetches.
func (t *Tree[T, K]) appendItems(source []T, owner *Node[K], items []T, owners []*Node[K]) ([]T, []*Node[K]) {
	ref := t.ref(owner)
	for _, item := range source {
		id := t.cfg.ID(item)
		items = append(items, item)
		owners = append(owners, ref)

		if node := owner.child(id); node.Expanded() {
			if b, ok := t.tree[id]; ok && !b.pending {
				items, owners = t.appendItems(b.items, node, items, owners)
			}
		}
	}
	return items, owners
}

func (t *Tree[T, K]) splice(start, deleteCount int, items []T, owners []*Node[K]) {
	start = min(start, len(t.items))
	end := min(start+deleteCount, len(t.items))

	nextItems := make([]T, 0, len(t.items)-(end-start)+len(items))
	nextItems = append(nextItems, t.items[:start]...)
	nextItems = append(nextItems, items...)
	nextItems = append(nextItems, t.items[end:]...)

	nextOwners := make([]*Node[K], 0, len(nextItems))
	nextOwners = append(nextOwners, t.owners[:start]...)
	nextOwners = append(nextOwners, owners...)
	nextOwners = append(nextOwners, t.owners[end:]...)

	t.items, t.owners = nextItems, nextOwners
	t.touch(start)
}

func (t *Tree[T, K]) touch(from int) {
	t.gen++
	if t.dirty < 0 || from < t.dirty {
		t.dirty = from
	}
}
