package eudamed

import (
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const regenFixture = `<MSGMessage>
  <header>
    <messageID>old-message-id</messageID>
    <correlationID>old-correlation-id</correlationID>
    <creationDateTime>2020-01-01T00:00:00.000000Z</creationDateTime>
  </header>
  <payload>
    <MDRBasicUDI>
      <identifier>
        <DICode>599302877PAYU9</DICode>
        <issuingEntityCode>GS1</issuingEntityCode>
      </identifier>
      <model>Test-877PAY</model>
    </MDRBasicUDI>
    <MDRUDIDIData>
      <identifier>
        <DICode>05993020000003</DICode>
      </identifier>
      <referenceNumber>05993020000003</referenceNumber>
      <basicUDIIdentifier>
        <DICode>599302877PAYU9</DICode>
      </basicUDIIdentifier>
    </MDRUDIDIData>
  </payload>
</MSGMessage>`

func regenDoc(t *testing.T) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(regenFixture))
	return doc
}

func deterministicOpts(suffix string) *RegenerateOptions {
	return &RegenerateOptions{
		ModelSuffix: suffix,
		Now:         func() time.Time { return time.Date(2026, 8, 24, 12, 30, 0, 0, time.UTC) },
		Digits:      func(n int) string { return strings.Repeat("123456", 3)[:n] },
	}
}

func TestRegenerateIDs(t *testing.T) {
	doc := regenDoc(t)

	result, err := RegenerateIDs(doc, deterministicOpts(""), nil)
	require.NoError(t, err)

	assert.NotEqual(t, "old-message-id", result.MessageID)
	assert.NotEqual(t, result.MessageID, result.CorrelationID)
	assert.Equal(t, result.MessageID, doc.FindElement("//messageID").Text())
	assert.Equal(t, result.CorrelationID, doc.FindElement("//correlationID").Text())
	assert.Equal(t, "2026-08-24T12:30:00.000000Z", doc.FindElement("//creationDateTime").Text())

	// Suffix 877PAY extracted from the existing Basic UDI-DI, check pair
	// recomputed.
	assert.Equal(t, "599302877PAYU9", result.BasicUDI)
	assert.True(t, GMNVerify(result.BasicUDI))
	assert.Equal(t, result.BasicUDI, doc.FindElement("//MDRBasicUDI/identifier/DICode").Text())
	assert.Equal(t, "Test-877PAY", doc.FindElement("//MDRBasicUDI/model").Text())

	assert.Equal(t, "05993021234569", result.GTIN)
	assert.True(t, GTIN14Verify(result.GTIN))
	assert.Equal(t, result.GTIN, doc.FindElement("//MDRUDIDIData/identifier/DICode").Text())
	assert.Equal(t, result.GTIN, doc.FindElement("//MDRUDIDIData/referenceNumber").Text())
	assert.Equal(t, result.BasicUDI, doc.FindElement("//MDRUDIDIData/basicUDIIdentifier/DICode").Text())
}

func TestRegenerateIDsExplicitSuffix(t *testing.T) {
	doc := regenDoc(t)

	result, err := RegenerateIDs(doc, deterministicOpts("ABC123"), nil)
	require.NoError(t, err)

	assert.Equal(t, "599302ABC123V2", result.BasicUDI)
	assert.Equal(t, "Test-ABC123", doc.FindElement("//MDRBasicUDI/model").Text())
}

func TestRegenerateIDsNoSuffixAvailable(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(`<MSGMessage><messageID>x</messageID></MSGMessage>`))

	_, err := RegenerateIDs(doc, deterministicOpts(""), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model suffix")
}
