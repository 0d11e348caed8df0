package eudamed

import "encoding/xml"

// SchemaDocument is one parsed XSD file. It keeps its own namespace
// declarations because prefixed type references inside it must be resolved
// against the prefixes declared where the reference textually appears, not
// against the document being searched.
type SchemaDocument struct {
	XMLName         xml.Name `xml:"http://www.w3.org/2001/XMLSchema schema"`
	TargetNamespace string   `xml:"targetNamespace,attr"`

	Elements     []Element     `xml:"element"`
	ComplexTypes []ComplexType `xml:"complexType"`
	SimpleTypes  []SimpleType  `xml:"simpleType"`
	Groups       []Group       `xml:"group"`
	Imports      []Import      `xml:"import"`
	Includes     []Include     `xml:"include"`

	// Prefix -> namespace URI declarations found on the schema root.
	Xmlns map[string]string `xml:"-"`
	// Absolute path the document was loaded from.
	Path string `xml:"-"`
}

// Element represents an <xs:element> declaration, either top-level or inside
// a content model. Inside a content model it may be a bare reference (Ref)
// to a named top-level element.
type Element struct {
	Name      string `xml:"name,attr"`
	Ref       string `xml:"ref,attr"`
	Type      string `xml:"type,attr"`
	MinOccurs string `xml:"minOccurs,attr"`
	MaxOccurs string `xml:"maxOccurs,attr"` // "unbounded" or a number

	// An element can define its own anonymous type inline.
	ComplexType *ComplexType `xml:"complexType"`
	SimpleType  *SimpleType  `xml:"simpleType"`
}

// ComplexType represents an <xs:complexType> declaration: either a direct
// content model or an extension of a named base type.
type ComplexType struct {
	Name string `xml:"name,attr"`

	Sequence *ModelGroup `xml:"sequence"`
	Choice   *ModelGroup `xml:"choice"`
	All      *ModelGroup `xml:"all"`

	ComplexContent *ComplexContent `xml:"complexContent"`

	Attributes []Attribute `xml:"attribute"`
}

// ComplexContent wraps an <xs:extension> inside <xs:complexContent>.
type ComplexContent struct {
	Extension *Extension `xml:"extension"`
}

// Extension inherits a named base type's content model and appends its own.
// The base may itself be an extension.
type Extension struct {
	Base string `xml:"base,attr"`

	Sequence *ModelGroup `xml:"sequence"`
	Choice   *ModelGroup `xml:"choice"`
	All      *ModelGroup `xml:"all"`

	Attributes []Attribute `xml:"attribute"`
}

// ModelGroup is the body of a sequence, choice or all group: direct element
// declarations plus nested groups and references to named groups.
type ModelGroup struct {
	MinOccurs string `xml:"minOccurs,attr"`
	MaxOccurs string `xml:"maxOccurs,attr"`

	Elements  []Element    `xml:"element"`
	Sequences []ModelGroup `xml:"sequence"`
	Choices   []ModelGroup `xml:"choice"`
	GroupRefs []GroupRef   `xml:"group"`
}

// Group is a named, reusable content model referenced via <xs:group ref=...>.
type Group struct {
	Name string `xml:"name,attr"`

	Sequence *ModelGroup `xml:"sequence"`
	Choice   *ModelGroup `xml:"choice"`
	All      *ModelGroup `xml:"all"`
}

// GroupRef is a reference to a named group from within a content model.
type GroupRef struct {
	Ref       string `xml:"ref,attr"`
	MinOccurs string `xml:"minOccurs,attr"`
	MaxOccurs string `xml:"maxOccurs,attr"`
}

// Attribute represents an <xs:attribute> declaration.
type Attribute struct {
	Name  string `xml:"name,attr"`
	Type  string `xml:"type,attr"`
	Use   string `xml:"use,attr"`
	Fixed string `xml:"fixed,attr"`

	SimpleType *SimpleType `xml:"simpleType"`
}

// SimpleType represents an <xs:simpleType> declaration. The generator treats
// every simple type as a terminal leaf; the facets are only consulted by the
// optional output validator.
type SimpleType struct {
	Name        string       `xml:"name,attr"`
	Restriction *Restriction `xml:"restriction"`
	Union       *Union       `xml:"union"`
	List        *List        `xml:"list"`
}

// Restriction represents an <xs:restriction> with its facets.
type Restriction struct {
	Base         string   `xml:"base,attr"`
	MinLength    *Facet   `xml:"minLength"`
	MaxLength    *Facet   `xml:"maxLength"`
	Length       *Facet   `xml:"length"`
	Pattern      *Facet   `xml:"pattern"`
	MinInclusive *Facet   `xml:"minInclusive"`
	MaxInclusive *Facet   `xml:"maxInclusive"`
	Enumeration  []*Facet `xml:"enumeration"`
}

// Union represents an <xs:union> of member simple types.
type Union struct {
	MemberTypes string `xml:"memberTypes,attr"`
}

// List represents an <xs:list> of a simple item type.
type List struct {
	ItemType string `xml:"itemType,attr"`
}

// Facet represents a single restriction rule, like <xs:maxLength>.
type Facet struct {
	Value string `xml:"value,attr"`
}

// Import references a schema in another namespace.
type Import struct {
	Namespace      string `xml:"namespace,attr"`
	SchemaLocation string `xml:"schemaLocation,attr"`
}

// Include references a schema in the same namespace.
type Include struct {
	SchemaLocation string `xml:"schemaLocation,attr"`
}

// QName is the composite identity every indexed schema entity is stored
// under. Space is the defining document's target namespace URI.
type QName struct {
	Space string
	Local string
}

// String renders the {namespace}localName form used in lookups and logs.
func (q QName) String() string {
	if q.Space == "" {
		return q.Local
	}
	return "{" + q.Space + "}" + q.Local
}

// ElementDef pairs a top-level element declaration with the document that
// declared it, which supplies the namespace and prefix scope.
type ElementDef struct {
	Element *Element
	Schema  *SchemaDocument
}

// GroupDef pairs a named group with its declaring document.
type GroupDef struct {
	Group  *Group
	Schema *SchemaDocument
}

// TypeDef is a resolved type: a named complex or simple type with its
// declaring document, or the built-in sentinel for xs:/xsd: types.
type TypeDef struct {
	Complex *ComplexType
	Simple  *SimpleType
	Schema  *SchemaDocument
	Builtin bool
}

// contentModel returns the single content model of a named group.
func (g *Group) contentModel() *ModelGroup {
	switch {
	case g.Sequence != nil:
		return g.Sequence
	case g.Choice != nil:
		return g.Choice
	case g.All != nil:
		return g.All
	}
	return nil
}
