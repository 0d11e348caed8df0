package eudamed

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Generator walks the schema-declared structure of a root element and
// produces the document subtree required by it, filled from the flat
// configuration. It never mutates the configuration; callers that generate
// several targets should give each generator its own filtered Config so
// outputs cannot cross-contaminate.
type Generator struct {
	index         *Index
	config        Config
	namespaces    map[string]string // namespace URI -> output prefix
	substitutions map[string]string // abstract element ref -> concrete name
	log           *zap.Logger
}

// GenerateOptions carries the optional knobs of a single generation run.
type GenerateOptions struct {
	// TypeOverride names a complex type to process instead of the root
	// element's own declared type. It exists to generate a fragment typed as
	// a concrete subtype when the element's declared type is abstract; the
	// result is stamped with an xsi:type attribute naming the override.
	TypeOverride string
}

// RootNotFoundError is returned when the requested root element is not
// present in the schema index. It is the generator's only hard failure;
// every other missing reference degrades gracefully.
type RootNotFoundError struct {
	Name string
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("root element %q is not defined in the loaded schemas", e.Name)
}

// NewGenerator builds a generator over an index and configuration.
// namespaces maps namespace URIs to the prefixes used to qualify output
// keys; substitutions redirects abstract element references to concrete
// element names. A nil logger disables logging.
func NewGenerator(index *Index, cfg Config, namespaces, substitutions map[string]string, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	if namespaces == nil {
		namespaces = map[string]string{}
	}
	if substitutions == nil {
		substitutions = map[string]string{}
	}
	return &Generator{
		index:         index,
		config:        cfg,
		namespaces:    namespaces,
		substitutions: substitutions,
		log:           log,
	}
}

// Generate resolves rootName in the schema index and produces its document
// tree, reading configuration paths rooted at startPath. The result is a
// single-entry node mapping the namespace-qualified root key to the
// generated content, or nil when no configuration matched anywhere in the
// subtree.
func (g *Generator) Generate(rootName, startPath string, opts *GenerateOptions) (*Node, error) {
	def := g.index.Element(rootName)
	if def == nil {
		return nil, &RootNotFoundError{Name: rootName}
	}
	rootKey := g.qualifiedKey(def)

	var content any
	if opts != nil && opts.TypeOverride != "" {
		content = g.generateWithOverride(def, startPath, opts.TypeOverride)
	} else {
		content = g.processElement(def.Element, def.Schema, startPath)
	}

	if isEmptyContent(content) {
		g.log.Warn("generation produced no content",
			zap.String("root", rootName),
			zap.String("startPath", startPath))
		return nil, nil
	}

	root := NewNode()
	root.Set(rootKey, content)
	return root, nil
}

// generateWithOverride processes a named complex type in place of the root
// element's declared type. An unknown override falls back to the declared
// type with a warning.
func (g *Generator) generateWithOverride(def *ElementDef, startPath, override string) any {
	td := g.index.FindType(override, def.Schema)
	if td == nil || td.Complex == nil {
		g.log.Warn("type override not found, using declared type",
			zap.String("override", override),
			zap.String("element", def.Element.Name))
		return g.processElement(def.Element, def.Schema, startPath)
	}

	content := g.processComplexType(td.Complex, td.Schema, startPath)
	if content == nil {
		return nil
	}
	content.Set(AttrPrefix+"xsi:type", override)
	return content
}

// processElement dispatches on the element's type: anything without a
// resolvable complex type is a leaf read straight from configuration.
func (g *Generator) processElement(el *Element, schema *SchemaDocument, path string) any {
	if el.ComplexType != nil {
		return g.processComplexType(el.ComplexType, schema, path)
	}
	if el.SimpleType == nil && el.Type != "" {
		td := g.index.FindType(el.Type, schema)
		if td != nil && td.Complex != nil {
			return g.processComplexType(td.Complex, td.Schema, path)
		}
	}

	value, ok := g.config.Get(path)
	if !ok {
		return nil
	}
	return value
}

// processComplexType produces the merged attribute and content-model output
// of one complex type, or nil when nothing in configuration applied. For an
// extension, the base type is processed at the same logical path (extension
// is additive, not a nested scope) and its output merges first, so base
// fields precede extension fields in the emitted order.
func (g *Generator) processComplexType(ct *ComplexType, schema *SchemaDocument, path string) *Node {
	result := NewNode()

	if ct.ComplexContent != nil && ct.ComplexContent.Extension != nil {
		ext := ct.ComplexContent.Extension

		base := g.index.FindType(ext.Base, schema)
		if base != nil && base.Complex != nil {
			if baseNode := g.processComplexType(base.Complex, base.Schema, path); baseNode != nil {
				result.Merge(baseNode)
			}
		} else if base == nil {
			g.log.Warn("extension base type not found",
				zap.String("base", ext.Base),
				zap.String("type", ct.Name))
		}

		g.processAttributes(ext.Attributes, path, result)
		if mg := extensionModelGroup(ext); mg != nil {
			g.processGroup(mg, schema, path, result)
		}
	} else {
		g.processAttributes(ct.Attributes, path, result)
		if mg := complexTypeModelGroup(ct); mg != nil {
			g.processGroup(mg, schema, path, result)
		}
	}

	if result.Len() == 0 {
		return nil
	}
	return result
}

// processAttributes emits declared attributes into result. A fixed value is
// schema-mandated and appears unconditionally; otherwise the configuration
// is probed at path/@name, then path/name for data entered without the
// sigil.
func (g *Generator) processAttributes(attrs []Attribute, path string, result *Node) {
	for i := range attrs {
		attr := &attrs[i]
		if attr.Name == "" {
			continue
		}
		if attr.Fixed != "" {
			result.Set(AttrPrefix+attr.Name, attr.Fixed)
			continue
		}
		value, ok := g.config.Get(path + "/" + AttrPrefix + attr.Name)
		if !ok {
			value, ok = g.config.Get(joinPath(path, attr.Name))
		}
		if ok {
			result.Set(AttrPrefix+attr.Name, value)
		}
	}
}

// processGroup walks one content model: its direct element declarations in
// declared order, then nested choice/sequence groups and named group
// references, all flattened into the same result so schema-authoring
// nesting adds no tree depth.
func (g *Generator) processGroup(mg *ModelGroup, schema *SchemaDocument, path string, result *Node) {
	for i := range mg.Elements {
		g.processChildElement(&mg.Elements[i], schema, path, result)
	}
	for i := range mg.Sequences {
		g.processGroup(&mg.Sequences[i], schema, path, result)
	}
	for i := range mg.Choices {
		g.processGroup(&mg.Choices[i], schema, path, result)
	}
	for i := range mg.GroupRefs {
		ref := mg.GroupRefs[i].Ref
		gd := g.index.Group(ref)
		if gd == nil {
			g.log.Warn("unresolvable group reference", zap.String("ref", ref))
			continue
		}
		if cm := gd.Group.contentModel(); cm != nil {
			g.processGroup(cm, gd.Schema, path, result)
		}
	}
}

// processChildElement resolves one child declaration (directly named or via
// ref, with substitution applied first) and emits it as a singleton or as a
// contiguously indexed array, depending on the particle's maxOccurs.
func (g *Generator) processChildElement(particle *Element, schema *SchemaDocument, path string, result *Node) {
	def := g.resolveParticle(particle, schema)
	if def == nil {
		return
	}

	name := def.Element.Name
	key := g.qualifiedKey(def)

	if isRepeated(particle.MaxOccurs) {
		items := g.collectArrayItems(def, particle, path, name)
		if len(items) > 0 {
			result.Set(key, items)
		}
		return
	}

	childPath := joinPath(path, name)
	content := g.processElement(def.Element, def.Schema, childPath)
	if isEmptyContent(content) {
		if isMandatory(particle) {
			// Absence of a mandatory field is left for downstream validation.
			g.log.Debug("mandatory element has no configuration",
				zap.String("path", childPath))
		}
		return
	}
	result.Set(key, content)
}

// resolveParticle turns a content-model particle into the element definition
// it stands for. A ref is first redirected through the substitution table,
// which stands in for XSD substitution-group resolution, then looked up by
// its full and local-only forms. An unresolvable ref is skipped so siblings
// still process.
func (g *Generator) resolveParticle(particle *Element, schema *SchemaDocument) *ElementDef {
	if particle.Ref == "" {
		if particle.Name == "" {
			return nil
		}
		return &ElementDef{Element: particle, Schema: schema}
	}

	target := particle.Ref
	if concrete, ok := g.substitutions[target]; ok {
		target = concrete
	}
	def := g.index.Element(target)
	if def == nil {
		g.log.Warn("unresolvable element reference",
			zap.String("ref", particle.Ref),
			zap.String("resolved", target))
		return nil
	}
	return def
}

// collectArrayItems materializes a repeated element by probing
// index-suffixed paths from zero upward. The scan stops at the first index
// with no content, so the output never contains gaps. When index 0 has no
// keys but the bare singleton path does, that single occurrence becomes the
// sole array item.
func (g *Generator) collectArrayItems(def *ElementDef, particle *Element, path, name string) []any {
	var items []any
	for i := 0; ; i++ {
		probe := indexedPath(path, name, i)
		if !g.config.HasPrefix(probe) {
			if i == 0 {
				bare := joinPath(path, name)
				if g.config.HasPrefix(bare) {
					if item := g.processElement(def.Element, def.Schema, bare); !isEmptyContent(item) {
						items = append(items, item)
					}
				}
			}
			break
		}
		item := g.processElement(def.Element, def.Schema, probe)
		if isEmptyContent(item) {
			if isMandatory(particle) {
				g.log.Debug("mandatory array item has no content, stopping scan",
					zap.String("path", probe))
			}
			break
		}
		items = append(items, item)
	}
	return items
}

// qualifiedKey computes the output key of an element: prefixed with its
// owning schema's namespace prefix when one is known, bare otherwise.
func (g *Generator) qualifiedKey(def *ElementDef) string {
	name := def.Element.Name
	ns := def.Schema.TargetNamespace
	if ns == "" {
		return name
	}
	prefix, ok := g.namespaces[ns]
	if !ok || prefix == "" {
		return name
	}
	return prefix + ":" + name
}

// isMandatory reports whether a particle declares minOccurs other than "0".
// Presence is never enforced; the flag only feeds diagnostics and array-scan
// termination.
func isMandatory(particle *Element) bool {
	return particle.MinOccurs != "" && particle.MinOccurs != "0"
}

// isRepeated reports whether maxOccurs allows more than one occurrence.
func isRepeated(maxOccurs string) bool {
	if maxOccurs == "unbounded" {
		return true
	}
	if maxOccurs == "" {
		return false
	}
	n, err := strconv.Atoi(maxOccurs)
	return err == nil && n > 1
}

// isEmptyContent reports whether a processed value carries nothing to emit.
func isEmptyContent(content any) bool {
	if content == nil {
		return true
	}
	if node, ok := content.(*Node); ok {
		return node.Len() == 0
	}
	return false
}

// complexTypeModelGroup returns the single content model of a complex type;
// first of sequence, choice, all wins if a schema author declared several.
func complexTypeModelGroup(ct *ComplexType) *ModelGroup {
	switch {
	case ct.Sequence != nil:
		return ct.Sequence
	case ct.Choice != nil:
		return ct.Choice
	case ct.All != nil:
		return ct.All
	}
	return nil
}

// extensionModelGroup returns the extension's own content model.
func extensionModelGroup(ext *Extension) *ModelGroup {
	switch {
	case ext.Sequence != nil:
		return ext.Sequence
	case ext.Choice != nil:
		return ext.Choice
	case ext.All != nil:
		return ext.All
	}
	return nil
}
