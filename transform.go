package eudamed

// Transform is a pure tree-to-tree pass: it never mutates its input, so
// passes compose without being order-sensitive over shared state.
type Transform func(*Node) *Node

// Chain applies transforms left to right.
func Chain(transforms ...Transform) Transform {
	return func(n *Node) *Node {
		out := n
		for _, t := range transforms {
			out = t(out)
		}
		return out
	}
}

// RenameKey returns a pass replacing every occurrence of key from with to,
// at any depth. Entry order and values are preserved.
func RenameKey(from, to string) Transform {
	return mapEntries(func(key string, value any) (string, any, bool) {
		if key == from {
			return to, value, true
		}
		return key, value, true
	})
}

// StripKeys returns a pass removing every entry whose key matches one of the
// given keys, at any depth.
func StripKeys(keys ...string) Transform {
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	return mapEntries(func(key string, value any) (string, any, bool) {
		if drop[key] {
			return "", nil, false
		}
		return key, value, true
	})
}

// ReorderChildren returns a pass that, for every node stored under
// parentKey, reorders its direct children to match order. Children named in
// order come first, in that order; unnamed children keep their relative
// order after them. Attribute entries always stay in place ahead of any
// reordering.
func ReorderChildren(parentKey string, order []string) Transform {
	rank := make(map[string]int, len(order))
	for i, k := range order {
		rank[k] = i
	}

	var apply func(n *Node) *Node
	apply = func(n *Node) *Node {
		if n == nil {
			return nil
		}
		out := NewNode()
		for _, e := range n.entries {
			value := transformValue(e.value, apply)
			if e.key == parentKey {
				if child, ok := value.(*Node); ok {
					value = reorder(child, rank)
				}
				if items, ok := value.([]any); ok {
					reordered := make([]any, len(items))
					for i, item := range items {
						if child, ok := item.(*Node); ok {
							reordered[i] = reorder(child, rank)
						} else {
							reordered[i] = item
						}
					}
					value = reordered
				}
			}
			out.entries = append(out.entries, treeEntry{key: e.key, value: value})
		}
		return out
	}
	return apply
}

// reorder rebuilds a node with ranked keys first.
func reorder(n *Node, rank map[string]int) *Node {
	out := NewNode()
	var ranked []treeEntry
	var rest []treeEntry
	for _, e := range n.entries {
		if _, ok := rank[e.key]; ok {
			ranked = append(ranked, e)
		} else {
			rest = append(rest, e)
		}
	}
	for i := 0; i < len(ranked); i++ {
		for j := i + 1; j < len(ranked); j++ {
			if rank[ranked[j].key] < rank[ranked[i].key] {
				ranked[i], ranked[j] = ranked[j], ranked[i]
			}
		}
	}
	out.entries = append(out.entries, ranked...)
	out.entries = append(out.entries, rest...)
	return out
}

// mapEntries lifts a per-entry function into a recursive whole-tree pass.
func mapEntries(fn func(key string, value any) (string, any, bool)) Transform {
	var apply func(n *Node) *Node
	apply = func(n *Node) *Node {
		if n == nil {
			return nil
		}
		out := NewNode()
		for _, e := range n.entries {
			key, value, keep := fn(e.key, e.value)
			if !keep {
				continue
			}
			out.entries = append(out.entries, treeEntry{key: key, value: transformValue(value, apply)})
		}
		return out
	}
	return apply
}

// transformValue recurses a pass into nested nodes and arrays.
func transformValue(value any, apply func(*Node) *Node) any {
	switch v := value.(type) {
	case *Node:
		return apply(v)
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = transformValue(item, apply)
		}
		return items
	default:
		return v
	}
}
