package eudamed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSchema drops a schema file into dir and returns its path.
func writeSchema(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadIndexesTopLevelDeclarations(t *testing.T) {
	dir := t.TempDir()
	path := writeSchema(t, dir, "device.xsd", `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns:dev="urn:example:device"
           targetNamespace="urn:example:device">
    <xs:element name="Device" type="dev:DeviceType"/>
    <xs:complexType name="DeviceType">
        <xs:sequence>
            <xs:element name="name" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
    <xs:simpleType name="CodeType">
        <xs:restriction base="xs:string">
            <xs:maxLength value="10"/>
        </xs:restriction>
    </xs:simpleType>
    <xs:group name="IdentifierGroup">
        <xs:sequence>
            <xs:element name="code" type="xs:string"/>
        </xs:sequence>
    </xs:group>
</xs:schema>`)

	index := NewIndex(nil)
	require.NoError(t, index.Load(path))

	def := index.Element("{urn:example:device}Device")
	require.NotNil(t, def)
	assert.Equal(t, "Device", def.Element.Name)
	assert.Equal(t, "urn:example:device", def.Schema.TargetNamespace)

	assert.NotNil(t, index.Element("Device"), "local-name fallback")
	assert.NotNil(t, index.Element("dev:Device"), "prefixed query strips to local name")
	assert.Nil(t, index.Element("Missing"))

	assert.NotNil(t, index.Group("IdentifierGroup"))

	td := index.FindType("dev:DeviceType", def.Schema)
	require.NotNil(t, td)
	assert.NotNil(t, td.Complex)

	st := index.FindType("dev:CodeType", def.Schema)
	require.NotNil(t, st)
	assert.NotNil(t, st.Simple)
}

func TestLoadFollowsImportsRelativeToImportingFile(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "common/types.xsd", `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="urn:example:common">
    <xs:complexType name="CodeType">
        <xs:sequence>
            <xs:element name="code" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
</xs:schema>`)
	writeSchema(t, dir, "entity/inner.xsd", `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="urn:example:entity">
    <xs:import namespace="urn:example:common" schemaLocation="../common/types.xsd"/>
    <xs:element name="Inner" type="xs:string"/>
</xs:schema>`)
	root := writeSchema(t, dir, "entity/root.xsd", `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="urn:example:entity">
    <xs:include schemaLocation="inner.xsd"/>
    <xs:element name="Outer" type="xs:string"/>
</xs:schema>`)

	index := NewIndex(nil)
	require.NoError(t, index.Load(root))

	assert.NotNil(t, index.Element("Outer"))
	assert.NotNil(t, index.Element("Inner"), "included schema is indexed")
	assert.NotNil(t, index.FindType("{urn:example:common}CodeType", nil),
		"transitively imported schema is indexed")
}

func TestLoadSkipsMissingImport(t *testing.T) {
	dir := t.TempDir()
	root := writeSchema(t, dir, "root.xsd", `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="urn:example:entity">
    <xs:import namespace="urn:example:optional" schemaLocation="not-shipped.xsd"/>
    <xs:element name="Root" type="xs:string"/>
</xs:schema>`)

	index := NewIndex(nil)
	require.NoError(t, index.Load(root), "missing import is skipped, not fatal")
	assert.NotNil(t, index.Element("Root"))
}

func TestLoadHandlesImportCycles(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "a.xsd", `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="urn:example:a">
    <xs:import namespace="urn:example:b" schemaLocation="b.xsd"/>
    <xs:element name="FromA" type="xs:string"/>
</xs:schema>`)
	writeSchema(t, dir, "b.xsd", `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="urn:example:b">
    <xs:import namespace="urn:example:a" schemaLocation="a.xsd"/>
    <xs:element name="FromB" type="xs:string"/>
</xs:schema>`)

	index := NewIndex(nil)
	require.NoError(t, index.Load(filepath.Join(dir, "a.xsd")))
	assert.NotNil(t, index.Element("FromA"))
	assert.NotNil(t, index.Element("FromB"))
}

func TestLocalNameFallbackFirstRegisteredWins(t *testing.T) {
	dir := t.TempDir()
	first := writeSchema(t, dir, "first.xsd", `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="urn:example:first">
    <xs:element name="Shared" type="xs:string"/>
</xs:schema>`)
	second := writeSchema(t, dir, "second.xsd", `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="urn:example:second">
    <xs:element name="Shared" type="xs:string"/>
</xs:schema>`)

	index := NewIndex(nil)
	require.NoError(t, index.Load(first))
	require.NoError(t, index.Load(second))

	def := index.Element("Shared")
	require.NotNil(t, def)
	assert.Equal(t, "urn:example:first", def.Schema.TargetNamespace,
		"bare-name shortcut keeps the first registration")

	// The namespaced keys stay authoritative and unambiguous.
	assert.Equal(t, "urn:example:second",
		index.Element("{urn:example:second}Shared").Schema.TargetNamespace)
}

func TestFindTypeBuiltinShortCircuit(t *testing.T) {
	index := NewIndex(nil)

	for _, name := range []string{"xs:string", "xsd:boolean", "xs:dateTime"} {
		td := index.FindType(name, nil)
		require.NotNil(t, td, name)
		assert.True(t, td.Builtin, name)
	}
}

func TestFindTypeResolvesPrefixAgainstReferencingSchema(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "common.xsd", `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="urn:example:common">
    <xs:complexType name="CodeType">
        <xs:sequence>
            <xs:element name="code" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
</xs:schema>`)
	root := writeSchema(t, dir, "root.xsd", `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns:cmn="urn:example:common"
           targetNamespace="urn:example:entity">
    <xs:import namespace="urn:example:common" schemaLocation="common.xsd"/>
    <xs:element name="Root" type="cmn:CodeType"/>
</xs:schema>`)

	index := NewIndex(nil)
	require.NoError(t, index.Load(root))

	def := index.Element("Root")
	require.NotNil(t, def)

	// The cmn prefix is declared on the referencing document, not on the
	// document that defines the type.
	td := index.FindType("cmn:CodeType", def.Schema)
	require.NotNil(t, td)
	require.NotNil(t, td.Complex)
	assert.Equal(t, "urn:example:common", td.Schema.TargetNamespace)
}

func TestNamespacesMergeFirstWriteWins(t *testing.T) {
	dir := t.TempDir()
	first := writeSchema(t, dir, "first.xsd", `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns:shared="urn:example:one"
           targetNamespace="urn:example:one">
    <xs:element name="A" type="xs:string"/>
</xs:schema>`)
	second := writeSchema(t, dir, "second.xsd", `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns:shared="urn:example:two"
           xmlns:other="urn:example:other"
           targetNamespace="urn:example:two">
    <xs:element name="B" type="xs:string"/>
</xs:schema>`)

	index := NewIndex(nil)
	require.NoError(t, index.Load(first))
	require.NoError(t, index.Load(second))

	ns := index.Namespaces()
	assert.Equal(t, "urn:example:one", ns["shared"], "first-loaded binding wins")
	assert.Equal(t, "urn:example:other", ns["other"])
	assert.Equal(t, xmlSchemaNamespace, ns["xs"])
}
