/*
Package eudamed generates EUDAMED submission XML documents from an XSD
schema set and a flat key-value configuration.

The package has two layers. The Index loads one or more interlinked schema
files (following xs:import and xs:include) and provides namespace-aware
lookup of elements, types and groups. The Generator walks the schema
structure of a chosen root element and fills a nested document tree from
configuration paths that mirror the schema nesting.

# Basic Usage

	index := eudamed.NewIndex(logger)
	if err := index.Load("XSD/data/Entity/DI.xsd"); err != nil {
		log.Fatal(err)
	}

	cfg, err := eudamed.LoadConfig("defaults.yaml")
	if err != nil {
		log.Fatal(err)
	}

	gen := eudamed.NewGenerator(index, cfg, namespaces, substitutions, logger)
	tree, err := gen.Generate("MDRDevice", "MDRDevice", nil)

The resulting tree serializes to XML text with WriteDocument. Generation is
permissive: a field missing from configuration is simply absent from the
output, so schema validity of the result is the caller's concern (see
ValidateDocument for an opt-in check).
*/
package eudamed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const xmlSchemaNamespace = "http://www.w3.org/2001/XMLSchema"

// Index holds every schema entity loaded so far, keyed by composite
// (namespace, local name) identity. A bare-local-name shortcut is layered on
// top for convenience lookups; for that shortcut the first registered entity
// wins and later duplicates are ignored. The namespaced key is always
// authoritative.
type Index struct {
	docs   []*SchemaDocument
	loaded map[string]bool

	elements map[QName]*ElementDef
	types    map[QName]*TypeDef
	groups   map[QName]*GroupDef

	elementsByLocal map[string]QName
	typesByLocal    map[string]QName
	groupsByLocal   map[string]QName

	log *zap.Logger
}

// NewIndex returns an empty schema index. A nil logger disables logging.
func NewIndex(log *zap.Logger) *Index {
	if log == nil {
		log = zap.NewNop()
	}
	return &Index{
		loaded:          make(map[string]bool),
		elements:        make(map[QName]*ElementDef),
		types:           make(map[QName]*TypeDef),
		groups:          make(map[QName]*GroupDef),
		elementsByLocal: make(map[string]QName),
		typesByLocal:    make(map[string]QName),
		groupsByLocal:   make(map[string]QName),
		log:             log,
	}
}

// Load reads the schema file at path and every schema it transitively
// imports or includes, then indexes their top-level elements, types and
// groups. Loading is idempotent per resolved absolute path, so schema sets
// that cross-import each other (including cycles) are handled without
// infinite recursion. A referenced file that does not exist is logged and
// skipped; EUDAMED schema bundles sometimes reference optional extension
// files that are not shipped.
func (ix *Index) Load(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if ix.loaded[abs] {
		return nil
	}
	ix.loaded[abs] = true

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read schema %s: %w", path, err)
	}

	doc, err := parseSchemaDocument(data)
	if err != nil {
		return fmt.Errorf("parse schema %s: %w", path, err)
	}
	doc.Path = abs

	// Referenced locations are relative to the importing file's directory,
	// not the process working directory.
	baseDir := filepath.Dir(abs)
	for _, inc := range doc.Includes {
		ix.loadReference(inc.SchemaLocation, baseDir)
	}
	for _, imp := range doc.Imports {
		ix.loadReference(imp.SchemaLocation, baseDir)
	}

	ix.register(doc)
	return nil
}

// loadReference loads one import/include target, absorbing a missing file.
func (ix *Index) loadReference(location, baseDir string) {
	if location == "" {
		// An import without schemaLocation is legal for built-in namespaces.
		return
	}
	target := location
	if !filepath.IsAbs(target) {
		target = filepath.Join(baseDir, location)
	}
	if err := ix.Load(target); err != nil {
		ix.log.Warn("skipping unresolvable schema reference",
			zap.String("schemaLocation", location),
			zap.String("resolved", target),
			zap.Error(err))
	}
}

// register indexes one document's top-level declarations.
func (ix *Index) register(doc *SchemaDocument) {
	ix.docs = append(ix.docs, doc)
	ns := doc.TargetNamespace

	for i := range doc.Elements {
		el := &doc.Elements[i]
		if el.Name == "" {
			continue
		}
		q := QName{Space: ns, Local: el.Name}
		ix.elements[q] = &ElementDef{Element: el, Schema: doc}
		if _, exists := ix.elementsByLocal[el.Name]; !exists {
			ix.elementsByLocal[el.Name] = q
		}
	}
	for i := range doc.ComplexTypes {
		ct := &doc.ComplexTypes[i]
		if ct.Name == "" {
			continue
		}
		q := QName{Space: ns, Local: ct.Name}
		ix.types[q] = &TypeDef{Complex: ct, Schema: doc}
		if _, exists := ix.typesByLocal[ct.Name]; !exists {
			ix.typesByLocal[ct.Name] = q
		}
	}
	for i := range doc.SimpleTypes {
		st := &doc.SimpleTypes[i]
		if st.Name == "" {
			continue
		}
		q := QName{Space: ns, Local: st.Name}
		ix.types[q] = &TypeDef{Simple: st, Schema: doc}
		if _, exists := ix.typesByLocal[st.Name]; !exists {
			ix.typesByLocal[st.Name] = q
		}
	}
	for i := range doc.Groups {
		gr := &doc.Groups[i]
		if gr.Name == "" {
			continue
		}
		q := QName{Space: ns, Local: gr.Name}
		ix.groups[q] = &GroupDef{Group: gr, Schema: doc}
		if _, exists := ix.groupsByLocal[gr.Name]; !exists {
			ix.groupsByLocal[gr.Name] = q
		}
	}

	ix.log.Debug("indexed schema document",
		zap.String("path", doc.Path),
		zap.String("targetNamespace", ns),
		zap.Int("elements", len(doc.Elements)),
		zap.Int("types", len(doc.ComplexTypes)+len(doc.SimpleTypes)),
		zap.Int("groups", len(doc.Groups)))
}

// Element resolves a top-level element by "{namespace}localName", by bare
// name in the empty namespace, or by local-name fallback after stripping any
// prefix. The fallback resolves ambiguity silently in registration order.
func (ix *Index) Element(name string) *ElementDef {
	if q, ok := parseQName(name); ok {
		if def, found := ix.elements[q]; found {
			return def
		}
	}
	local := localName(name)
	if q, ok := ix.elementsByLocal[local]; ok {
		return ix.elements[q]
	}
	return nil
}

// Group resolves a named group with the same lookup rules as Element.
func (ix *Index) Group(name string) *GroupDef {
	if q, ok := parseQName(name); ok {
		if def, found := ix.groups[q]; found {
			return def
		}
	}
	local := localName(name)
	if q, ok := ix.groupsByLocal[local]; ok {
		return ix.groups[q]
	}
	return nil
}

// FindType resolves a type reference as it appears inside ctx. Built-in
// XML Schema references (xs:/xsd: prefixes) short-circuit to the built-in
// sentinel. A prefixed reference resolves its prefix against ctx's own
// declarations, since that is where the reference textually appears. A
// namespaced miss falls back to a bare-local-name search across all types.
func (ix *Index) FindType(name string, ctx *SchemaDocument) *TypeDef {
	if name == "" {
		return nil
	}

	prefix, local := splitPrefix(name)
	if prefix == "xs" || prefix == "xsd" {
		return &TypeDef{Builtin: true}
	}

	if q, ok := parseQName(name); ok {
		if def, found := ix.types[q]; found {
			return def
		}
	}
	if prefix != "" && ctx != nil {
		if uri, declared := ctx.Xmlns[prefix]; declared {
			if uri == xmlSchemaNamespace {
				return &TypeDef{Builtin: true}
			}
			if def, found := ix.types[QName{Space: uri, Local: local}]; found {
				return def
			}
		}
	}
	if q, ok := ix.typesByLocal[local]; ok {
		return ix.types[q]
	}
	return nil
}

// Namespaces merges every prefix declaration visible on any loaded schema
// root into one prefix-to-URI map. A prefix declared with different URIs in
// different files keeps the first-loaded binding.
func (ix *Index) Namespaces() map[string]string {
	merged := make(map[string]string)
	for _, doc := range ix.docs {
		for prefix, uri := range doc.Xmlns {
			if _, exists := merged[prefix]; !exists {
				merged[prefix] = uri
			}
		}
	}
	return merged
}

// Documents returns the loaded schema documents in load order.
func (ix *Index) Documents() []*SchemaDocument {
	return ix.docs
}

// parseSchemaDocument decodes one schema file and extracts the namespace
// declarations from its root element.
func parseSchemaDocument(data []byte) (*SchemaDocument, error) {
	doc := &SchemaDocument{}
	if err := xml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode XSD: %w", err)
	}
	if err := doc.extractNamespaces(data); err != nil {
		return nil, fmt.Errorf("extract namespaces: %w", err)
	}
	return doc, nil
}

// extractNamespaces scans the raw bytes for the schema root element and
// records its xmlns declarations. encoding/xml does not surface namespace
// declarations on decoded structs, so they are pulled from the token stream.
func (s *SchemaDocument) extractNamespaces(data []byte) error {
	s.Xmlns = make(map[string]string)

	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "schema" {
			continue
		}
		for _, attr := range start.Attr {
			switch {
			case attr.Name.Space == "xmlns":
				s.Xmlns[attr.Name.Local] = attr.Value
			case attr.Name.Local == "xmlns":
				s.Xmlns[""] = attr.Value
			}
		}
		break
	}

	if _, exists := s.Xmlns["xs"]; !exists {
		s.Xmlns["xs"] = xmlSchemaNamespace
	}
	return nil
}

// parseQName recognizes the "{namespace}localName" query form and bare
// names, which address the empty namespace exactly.
func parseQName(name string) (QName, bool) {
	if strings.HasPrefix(name, "{") {
		end := strings.Index(name, "}")
		if end < 0 {
			return QName{}, false
		}
		return QName{Space: name[1:end], Local: name[end+1:]}, true
	}
	if !strings.Contains(name, ":") {
		return QName{Local: name}, true
	}
	return QName{}, false
}

// splitPrefix splits "prefix:local" references; the prefix is empty for
// bare and {namespace}local forms.
func splitPrefix(name string) (prefix, local string) {
	if strings.HasPrefix(name, "{") {
		if end := strings.Index(name, "}"); end >= 0 {
			return "", name[end+1:]
		}
	}
	if idx := strings.LastIndex(name, ":"); idx >= 0 {
		return name[:idx], name[idx+1:]
	}
	return "", name
}

// localName strips any namespace or prefix qualification from a reference.
func localName(name string) string {
	_, local := splitPrefix(name)
	return local
}
