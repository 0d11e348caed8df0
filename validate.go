package eudamed

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ValidationError aggregates every problem found while validating a
// generated document.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d validation errors found:\n - %s",
		len(e.Errors), strings.Join(e.Errors, "\n - "))
}

// ValidateDocument checks a document against the loaded schemas: allowed
// children and their occurrence bounds, required and fixed attributes,
// built-in value types and restriction facets. The generation engine itself
// is deliberately permissive, so this is the opt-in downstream check.
//
// Elements are matched by local name; choice exclusivity and identity
// constraints are not enforced.
func (ix *Index) ValidateDocument(doc *etree.Document) error {
	root := doc.Root()
	if root == nil {
		return &ValidationError{Errors: []string{"document is empty"}}
	}

	def := ix.Element(root.Tag)
	if def == nil {
		return &ValidationError{Errors: []string{
			fmt.Sprintf("root element <%s> is not defined in the loaded schemas", root.Tag),
		}}
	}

	var errs []string
	ix.validateElement(root, def.Element, def.Schema, &errs)
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// validateElement dispatches on the element's resolved type.
func (ix *Index) validateElement(el *etree.Element, decl *Element, schema *SchemaDocument, errs *[]string) {
	if decl.ComplexType != nil {
		ix.validateComplexElement(el, decl.ComplexType, schema, errs)
		return
	}
	if decl.SimpleType != nil {
		ix.validateSimpleValue(el, decl.SimpleType, errs)
		return
	}
	if decl.Type != "" {
		td := ix.FindType(decl.Type, schema)
		switch {
		case td == nil:
			// Unknown user type, nothing to check.
		case td.Complex != nil:
			ix.validateComplexElement(el, td.Complex, td.Schema, errs)
			return
		case td.Simple != nil:
			ix.validateSimpleValue(el, td.Simple, errs)
			return
		case td.Builtin:
			if err := validateBuiltinValue(strings.TrimSpace(el.Text()), decl.Type); err != nil {
				*errs = append(*errs, fmt.Sprintf("in element <%s>: %v", el.Tag, err))
			}
			return
		}
	}
	if len(el.ChildElements()) > 0 && decl.Type != "" {
		*errs = append(*errs, fmt.Sprintf("element <%s> should be a leaf but has children", el.Tag))
	}
}

// childParticle is one allowed child with its occurrence bounds, collected
// after flattening extensions and group references.
type childParticle struct {
	decl   *Element
	def    *ElementDef // resolved target for refs, nil for local declarations
	schema *SchemaDocument
}

func (p childParticle) localName() string {
	if p.def != nil {
		return p.def.Element.Name
	}
	return p.decl.Name
}

func (p childParticle) target() (*Element, *SchemaDocument) {
	if p.def != nil {
		return p.def.Element, p.def.Schema
	}
	return p.decl, p.schema
}

// validateComplexElement checks children and attributes of one element
// against a complex type.
func (ix *Index) validateComplexElement(el *etree.Element, ct *ComplexType, schema *SchemaDocument, errs *[]string) {
	particles, attrs := ix.collectContent(ct, schema, 0)

	byName := make(map[string]childParticle, len(particles))
	for _, p := range particles {
		if _, exists := byName[p.localName()]; !exists {
			byName[p.localName()] = p
		}
	}

	counts := make(map[string]int)
	for _, child := range el.ChildElements() {
		counts[child.Tag]++
		p, allowed := byName[child.Tag]
		if !allowed {
			*errs = append(*errs, fmt.Sprintf("element <%s> is not a valid child of <%s>", child.Tag, el.Tag))
			continue
		}
		target, targetSchema := p.target()
		ix.validateElement(child, target, targetSchema, errs)
	}

	for _, p := range particles {
		name := p.localName()
		count := counts[name]
		if min := p.decl.MinOccurs; min != "" {
			if n, err := strconv.Atoi(min); err == nil && count < n {
				*errs = append(*errs, fmt.Sprintf(
					"element <%s> requires at least %d <%s> child, but found %d", el.Tag, n, name, count))
			}
		}
		if max := p.decl.MaxOccurs; max != "" && max != "unbounded" {
			if n, err := strconv.Atoi(max); err == nil && count > n {
				*errs = append(*errs, fmt.Sprintf(
					"element <%s> allows at most %d <%s> child, but found %d", el.Tag, n, name, count))
			}
		}
	}

	ix.validateAttributes(el, attrs, errs)
}

const maxExtensionDepth = 32

// collectContent flattens a complex type into its allowed child particles
// and attribute declarations, base type first, groups resolved inline.
func (ix *Index) collectContent(ct *ComplexType, schema *SchemaDocument, depth int) ([]childParticle, []Attribute) {
	if depth > maxExtensionDepth {
		return nil, nil
	}

	var particles []childParticle
	var attrs []Attribute

	if ct.ComplexContent != nil && ct.ComplexContent.Extension != nil {
		ext := ct.ComplexContent.Extension
		if base := ix.FindType(ext.Base, schema); base != nil && base.Complex != nil {
			baseParticles, baseAttrs := ix.collectContent(base.Complex, base.Schema, depth+1)
			particles = append(particles, baseParticles...)
			attrs = append(attrs, baseAttrs...)
		}
		attrs = append(attrs, ext.Attributes...)
		if mg := extensionModelGroup(ext); mg != nil {
			particles = append(particles, ix.collectGroupParticles(mg, schema, depth)...)
		}
		return particles, attrs
	}

	attrs = append(attrs, ct.Attributes...)
	if mg := complexTypeModelGroup(ct); mg != nil {
		particles = append(particles, ix.collectGroupParticles(mg, schema, depth)...)
	}
	return particles, attrs
}

// collectGroupParticles flattens one content model, recursing into nested
// groups and named group references.
func (ix *Index) collectGroupParticles(mg *ModelGroup, schema *SchemaDocument, depth int) []childParticle {
	if depth > maxExtensionDepth {
		return nil
	}

	var particles []childParticle
	for i := range mg.Elements {
		decl := &mg.Elements[i]
		p := childParticle{decl: decl, schema: schema}
		if decl.Ref != "" {
			p.def = ix.Element(decl.Ref)
			if p.def == nil {
				continue
			}
		}
		particles = append(particles, p)
	}
	for i := range mg.Sequences {
		particles = append(particles, ix.collectGroupParticles(&mg.Sequences[i], schema, depth+1)...)
	}
	for i := range mg.Choices {
		particles = append(particles, ix.collectGroupParticles(&mg.Choices[i], schema, depth+1)...)
	}
	for i := range mg.GroupRefs {
		gd := ix.Group(mg.GroupRefs[i].Ref)
		if gd == nil {
			continue
		}
		if cm := gd.Group.contentModel(); cm != nil {
			particles = append(particles, ix.collectGroupParticles(cm, gd.Schema, depth+1)...)
		}
	}
	return particles
}

// validateAttributes checks required presence, fixed values and built-in
// types of declared attributes.
func (ix *Index) validateAttributes(el *etree.Element, attrs []Attribute, errs *[]string) {
	for i := range attrs {
		decl := &attrs[i]
		attr := el.SelectAttr(decl.Name)

		if attr == nil {
			if decl.Use == "required" && decl.Fixed == "" {
				*errs = append(*errs, fmt.Sprintf(
					"required attribute %q is missing from element <%s>", decl.Name, el.Tag))
			}
			continue
		}
		if decl.Fixed != "" && attr.Value != decl.Fixed {
			*errs = append(*errs, fmt.Sprintf(
				"attribute %q in element <%s> has fixed value %q, but got %q",
				decl.Name, el.Tag, decl.Fixed, attr.Value))
		}
		if err := validateBuiltinValue(attr.Value, decl.Type); err != nil {
			*errs = append(*errs, fmt.Sprintf(
				"attribute %q in element <%s>: %v", decl.Name, el.Tag, err))
		}
		if decl.SimpleType != nil {
			for _, msg := range facetViolations(attr.Value, decl.SimpleType) {
				*errs = append(*errs, fmt.Sprintf(
					"attribute %q in element <%s>: %s", decl.Name, el.Tag, msg))
			}
		}
	}
}

// validateSimpleValue checks element text against a simple type.
func (ix *Index) validateSimpleValue(el *etree.Element, st *SimpleType, errs *[]string) {
	content := strings.TrimSpace(el.Text())
	if st.Restriction != nil {
		if err := validateBuiltinValue(content, st.Restriction.Base); err != nil {
			*errs = append(*errs, fmt.Sprintf("in element <%s>: %v", el.Tag, err))
		}
	}
	for _, msg := range facetViolations(content, st) {
		*errs = append(*errs, fmt.Sprintf("in element <%s>: %s", el.Tag, msg))
	}
}

// facetViolations evaluates restriction facets against a value.
func facetViolations(content string, st *SimpleType) []string {
	if st == nil || st.Restriction == nil {
		return nil
	}
	r := st.Restriction
	var msgs []string

	if r.Pattern != nil && r.Pattern.Value != "" {
		// XSD patterns match the whole value.
		re, err := regexp.Compile("^(?:" + r.Pattern.Value + ")$")
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("invalid pattern %q in schema: %v", r.Pattern.Value, err))
		} else if !re.MatchString(content) {
			msgs = append(msgs, fmt.Sprintf("value %q does not match pattern %q", content, r.Pattern.Value))
		}
	}

	if len(r.Enumeration) > 0 {
		found := false
		allowed := make([]string, 0, len(r.Enumeration))
		for _, e := range r.Enumeration {
			allowed = append(allowed, e.Value)
			if e.Value == content {
				found = true
			}
		}
		if !found {
			msgs = append(msgs, fmt.Sprintf("value %q is not one of the allowed values [%s]",
				content, strings.Join(allowed, ", ")))
		}
	}

	length := len([]rune(content))
	if r.Length != nil {
		if n, err := strconv.Atoi(r.Length.Value); err == nil && length != n {
			msgs = append(msgs, fmt.Sprintf("value %q must be exactly %d characters, got %d", content, n, length))
		}
	}
	if r.MinLength != nil {
		if n, err := strconv.Atoi(r.MinLength.Value); err == nil && length < n {
			msgs = append(msgs, fmt.Sprintf("value %q is shorter than minLength %d", content, n))
		}
	}
	if r.MaxLength != nil {
		if n, err := strconv.Atoi(r.MaxLength.Value); err == nil && length > n {
			msgs = append(msgs, fmt.Sprintf("value %q is longer than maxLength %d", content, n))
		}
	}

	if r.MinInclusive != nil {
		msgs = append(msgs, rangeViolation(content, r.MinInclusive.Value, true)...)
	}
	if r.MaxInclusive != nil {
		msgs = append(msgs, rangeViolation(content, r.MaxInclusive.Value, false)...)
	}
	return msgs
}

// rangeViolation checks a numeric bound; non-numeric content is reported.
func rangeViolation(content, limit string, isMin bool) []string {
	value, err := strconv.ParseFloat(content, 64)
	if err != nil {
		return []string{fmt.Sprintf("value %q is not numeric for range comparison", content)}
	}
	bound, err := strconv.ParseFloat(limit, 64)
	if err != nil {
		return []string{fmt.Sprintf("invalid range facet %q in schema", limit)}
	}
	if isMin && value < bound {
		return []string{fmt.Sprintf("value %q is below minInclusive %s", content, limit)}
	}
	if !isMin && value > bound {
		return []string{fmt.Sprintf("value %q is above maxInclusive %s", content, limit)}
	}
	return nil
}

var (
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)
	timePattern     = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)
	gYearPattern    = regexp.MustCompile(`^\d{4}$`)
)

// validateBuiltinValue checks a value against the XML Schema built-in types
// used by the EUDAMED schemas. Unknown or user-defined type names pass.
func validateBuiltinValue(content, typeName string) error {
	local := localName(typeName)
	switch local {
	case "integer", "long", "int", "short", "byte":
		if _, err := strconv.ParseInt(content, 10, 64); err != nil {
			return fmt.Errorf("value %q is not a valid %s", content, local)
		}
	case "nonNegativeInteger":
		if n, err := strconv.ParseInt(content, 10, 64); err != nil || n < 0 {
			return fmt.Errorf("value %q is not a valid nonNegativeInteger", content)
		}
	case "positiveInteger":
		if n, err := strconv.ParseInt(content, 10, 64); err != nil || n <= 0 {
			return fmt.Errorf("value %q is not a valid positiveInteger", content)
		}
	case "decimal", "double", "float":
		if _, err := strconv.ParseFloat(content, 64); err != nil {
			return fmt.Errorf("value %q is not a valid %s", content, local)
		}
	case "boolean":
		if content != "true" && content != "false" && content != "1" && content != "0" {
			return fmt.Errorf("value %q is not a valid boolean", content)
		}
	case "date":
		if !datePattern.MatchString(content) {
			return fmt.Errorf("value %q is not a valid date (expected YYYY-MM-DD)", content)
		}
	case "dateTime":
		if !dateTimePattern.MatchString(content) {
			return fmt.Errorf("value %q is not a valid dateTime", content)
		}
	case "time":
		if !timePattern.MatchString(content) {
			return fmt.Errorf("value %q is not a valid time", content)
		}
	case "gYear":
		if !gYearPattern.MatchString(content) {
			return fmt.Errorf("value %q is not a valid gYear", content)
		}
	case "anyURI":
		if content == "" || strings.Contains(content, " ") {
			return fmt.Errorf("value %q is not a valid URI", content)
		}
	case "token":
		if strings.TrimSpace(content) != content || strings.Contains(content, "  ") {
			return fmt.Errorf("value %q is not a valid token", content)
		}
	}
	return nil
}
