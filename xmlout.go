package eudamed

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// WriteOptions configures document tree serialization.
type WriteOptions struct {
	// Indent is the number of spaces per nesting level; negative disables
	// pretty printing.
	Indent int
	// Declaration controls the leading <?xml ...?> processing instruction.
	Declaration bool
	// OmitEmpty drops elements that end up with no text, children or
	// attributes.
	OmitEmpty bool
	// Namespaces maps namespace URIs to prefixes; every prefix the tree
	// actually uses is declared on the root element.
	Namespaces map[string]string
}

// BuildDocument converts a generated tree into an etree document. Keys
// prefixed with "@" become attributes of the enclosing element, array values
// become repeated sibling elements, nested nodes become child elements.
func BuildDocument(tree *Node, opts *WriteOptions) (*etree.Document, error) {
	if opts == nil {
		opts = &WriteOptions{Indent: 2, Declaration: true}
	}
	if tree == nil || tree.Len() == 0 {
		return nil, fmt.Errorf("build document: empty tree")
	}

	doc := etree.NewDocument()
	if opts.Declaration {
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	}

	for _, key := range tree.Keys() {
		if strings.HasPrefix(key, AttrPrefix) {
			return nil, fmt.Errorf("build document: attribute %q at tree root", key)
		}
		value, _ := tree.Get(key)
		appendValue(&doc.Element, key, value, opts)
	}

	root := doc.Root()
	if root != nil {
		declareNamespaces(root, tree, opts.Namespaces)
	}
	if opts.Indent >= 0 {
		doc.Indent(opts.Indent)
	}
	return doc, nil
}

// WriteDocument serializes a generated tree as XML text.
func WriteDocument(w io.Writer, tree *Node, opts *WriteOptions) error {
	doc, err := BuildDocument(tree, opts)
	if err != nil {
		return err
	}
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// appendValue emits one tree entry under parent.
func appendValue(parent *etree.Element, key string, value any, opts *WriteOptions) {
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			appendValue(parent, key, item, opts)
		}
	case *Node:
		el := parent.CreateElement(key)
		for _, childKey := range v.Keys() {
			childValue, _ := v.Get(childKey)
			if strings.HasPrefix(childKey, AttrPrefix) {
				el.CreateAttr(strings.TrimPrefix(childKey, AttrPrefix), formatScalar(childValue))
				continue
			}
			appendValue(el, childKey, childValue, opts)
		}
		if opts.OmitEmpty && len(el.ChildElements()) == 0 && len(el.Attr) == 0 && strings.TrimSpace(el.Text()) == "" {
			parent.RemoveChild(el)
		}
	default:
		el := parent.CreateElement(key)
		el.SetText(formatScalar(value))
	}
}

// declareNamespaces emits an xmlns declaration on the root element for every
// prefix the tree uses. The xsi prefix is known even when the caller's
// namespace map does not carry it, since type overrides stamp xsi:type.
func declareNamespaces(root *etree.Element, tree *Node, namespaces map[string]string) {
	used := map[string]bool{}
	collectPrefixes(tree, used)

	byPrefix := make(map[string]string, len(namespaces))
	for uri, prefix := range namespaces {
		byPrefix[prefix] = uri
	}
	if _, ok := byPrefix["xsi"]; !ok {
		byPrefix["xsi"] = xsiNamespace
	}

	for prefix, uri := range byPrefix {
		if prefix == "" || !used[prefix] {
			continue
		}
		root.CreateAttr("xmlns:"+prefix, uri)
	}
}

// collectPrefixes records every namespace prefix appearing in element or
// attribute keys of the tree.
func collectPrefixes(n *Node, used map[string]bool) {
	if n == nil {
		return
	}
	for _, key := range n.Keys() {
		name := strings.TrimPrefix(key, AttrPrefix)
		if idx := strings.Index(name, ":"); idx > 0 {
			used[name[:idx]] = true
		}
		value, _ := n.Get(key)
		switch v := value.(type) {
		case *Node:
			collectPrefixes(v, used)
		case []any:
			for _, item := range v {
				if child, ok := item.(*Node); ok {
					collectPrefixes(child, used)
				}
			}
		}
	}
}

// formatScalar renders a configuration scalar as XML text.
func formatScalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}
