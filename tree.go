package eudamed

// AttrPrefix marks a tree key as an attribute of the enclosing element
// rather than a child element.
const AttrPrefix = "@"

// Node is one generated document tree node: an insertion-ordered mapping
// from (possibly namespace-prefixed) keys to scalars, child nodes or arrays
// of child values. Order matters because the serializer emits children in
// insertion order, which is how schema-declared sequencing survives into the
// output document.
type Node struct {
	entries []treeEntry
}

type treeEntry struct {
	key   string
	value any // scalar, *Node, or []any
}

// NewNode returns an empty tree node.
func NewNode() *Node {
	return &Node{}
}

// Set appends a key/value entry, or replaces the value in place if the key
// already exists.
func (n *Node) Set(key string, value any) {
	for i := range n.entries {
		if n.entries[i].key == key {
			n.entries[i].value = value
			return
		}
	}
	n.entries = append(n.entries, treeEntry{key: key, value: value})
}

// Get returns the value stored under key.
func (n *Node) Get(key string) (any, bool) {
	for i := range n.entries {
		if n.entries[i].key == key {
			return n.entries[i].value, true
		}
	}
	return nil, false
}

// Child returns the nested node stored under key, if the entry is a node.
func (n *Node) Child(key string) *Node {
	value, ok := n.Get(key)
	if !ok {
		return nil
	}
	child, _ := value.(*Node)
	return child
}

// Keys returns the entry keys in insertion order.
func (n *Node) Keys() []string {
	keys := make([]string, len(n.entries))
	for i := range n.entries {
		keys[i] = n.entries[i].key
	}
	return keys
}

// Len returns the number of entries.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.entries)
}

// Merge appends other's entries after n's own, preserving both orders.
// Extension types rely on this: base-type output merges first, the
// extension's own content after it.
func (n *Node) Merge(other *Node) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		n.Set(e.key, e.value)
	}
}

// Clone returns a deep copy of the node. Arrays and nested nodes are copied;
// scalar values are shared.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{entries: make([]treeEntry, 0, len(n.entries))}
	for _, e := range n.entries {
		out.entries = append(out.entries, treeEntry{key: e.key, value: cloneValue(e.value)})
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case *Node:
		return v.Clone()
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = cloneValue(item)
		}
		return items
	default:
		return v
	}
}
