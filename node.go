package treegrid

import "github.com/emirpasic/gods/maps/linkedhashmap"

// Node is the expand/collapse record for one item occurrence. Level is the
// nesting depth of the node's children, so a node for a root item has level 1.
//
// Nodes are kept after a collapse so re-expanding (or a refresh with the same
// dataset version) restores the subtree state.
type Node[K comparable] struct {
	level    int
	expanded bool

	// child id -> *Node[K], in first-seen order
	nodes *linkedhashmap.Map
}

func newNode[K comparable](level int) *Node[K] {
	return &Node[K]{level: level, nodes: linkedhashmap.New()}
}

// Level returns the depth of the rows this node owns.
func (n *Node[K]) Level() int {
	if n == nil {
		return 0
	}
	return n.level
}

// Expanded reports whether the node is expanded.
func (n *Node[K]) Expanded() bool {
	return n != nil && n.expanded
}

func (n *Node[K]) child(id K) *Node[K] {
	v, ok := n.nodes.Get(id)
	if !ok {
		return nil
	}
	return v.(*Node[K])
}

func (n *Node[K]) put(id K, child *Node[K]) {
	n.nodes.Put(id, child)
}

func (n *Node[K]) clear() {
	n.nodes.Clear()
}

// collectExpanded appends expanded ids depth-first, pre-order.
func (n *Node[K]) collectExpanded(out []K) []K {
	it := n.nodes.Iterator()
	for it.Next() {
		child := it.Value().(*Node[K])
		if child.expanded {
			out = append(out, it.Key().(K))
			out = child.collectExpanded(out)
		}
	}
	return out
}
