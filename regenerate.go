package eudamed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegenerateOptions controls how identifiers in an existing EUDAMED message
// are rebuilt. Zero values fall back to the defaults used by the exchange
// test environment.
type RegenerateOptions struct {
	// ManufacturerPrefix is the GS1 company prefix of Basic UDI-DI values.
	ManufacturerPrefix string
	// GTINPrefix is the leading digits of generated GTIN-14 UDI-DI values.
	GTINPrefix string
	// ModelSuffix overrides the model reference suffix; when empty it is
	// extracted from the document's current Basic UDI-DI.
	ModelSuffix string
	// ModelPrefix is prepended to the suffix when rewriting the model name.
	ModelPrefix string

	// Now and Digits exist for deterministic tests.
	Now    func() time.Time
	Digits func(n int) string
}

// RegenerateResult reports the identifiers written into the document.
type RegenerateResult struct {
	MessageID     string
	CorrelationID string
	BasicUDI      string
	GTIN          string
}

func (o *RegenerateOptions) withDefaults() *RegenerateOptions {
	out := RegenerateOptions{}
	if o != nil {
		out = *o
	}
	if out.ManufacturerPrefix == "" {
		out.ManufacturerPrefix = "599302"
	}
	if out.GTINPrefix == "" {
		out.GTINPrefix = "0599302"
	}
	if out.ModelPrefix == "" {
		out.ModelPrefix = "Test-"
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	if out.Digits == nil {
		out.Digits = randomDigits
	}
	return &out
}

// RegenerateIDs rewrites the identifiers of a parsed EUDAMED message in
// place: fresh message/correlation UUIDs and creation timestamp, a Basic
// UDI-DI rebuilt from the manufacturer prefix with valid GMN check
// characters, and a new random GTIN-14 UDI-DI propagated to the reference
// number and the Basic UDI link. Elements that are absent from the document
// are skipped.
func RegenerateIDs(doc *etree.Document, opts *RegenerateOptions, log *zap.Logger) (*RegenerateResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	o := opts.withDefaults()
	result := &RegenerateResult{}

	result.MessageID = uuid.NewString()
	result.CorrelationID = uuid.NewString()
	setText(doc, "//messageID", result.MessageID)
	setText(doc, "//correlationID", result.CorrelationID)
	setText(doc, "//creationDateTime", o.Now().UTC().Format("2006-01-02T15:04:05.000000Z"))

	basicUDI, err := regenerateBasicUDI(doc, o, log)
	if err != nil {
		return nil, err
	}
	result.BasicUDI = basicUDI

	gtinBase := o.GTINPrefix + o.Digits(13-len(o.GTINPrefix))
	check, err := GTIN14CheckDigit(gtinBase)
	if err != nil {
		return nil, fmt.Errorf("generate GTIN: %w", err)
	}
	result.GTIN = gtinBase + check

	setText(doc, "//MDRUDIDIData/identifier/DICode", result.GTIN)
	setText(doc, "//MDRUDIDIData/referenceNumber", result.GTIN)
	setText(doc, "//MDRUDIDIData/basicUDIIdentifier/DICode", result.BasicUDI)

	log.Info("regenerated identifiers",
		zap.String("messageID", result.MessageID),
		zap.String("basicUDI", result.BasicUDI),
		zap.String("gtin", result.GTIN))
	return result, nil
}

// regenerateBasicUDI rebuilds the Basic UDI-DI from the manufacturer prefix
// and the model reference suffix, recomputing the GMN check pair.
func regenerateBasicUDI(doc *etree.Document, o *RegenerateOptions, log *zap.Logger) (string, error) {
	suffix := o.ModelSuffix
	if suffix == "" {
		suffix = extractModelSuffix(doc, o.ManufacturerPrefix)
	}
	if suffix == "" {
		return "", fmt.Errorf("regenerate basic UDI: no model suffix configured and none found in document")
	}

	base := o.ManufacturerPrefix + suffix
	check, err := GMNCheckCharacters(base)
	if err != nil {
		return "", fmt.Errorf("regenerate basic UDI: %w", err)
	}
	basicUDI := base + check

	setText(doc, "//MDRBasicUDI/identifier/DICode", basicUDI)
	if model := doc.FindElement("//MDRBasicUDI/model"); model != nil {
		model.SetText(o.ModelPrefix + suffix)
	}

	log.Debug("rebuilt basic UDI", zap.String("suffix", suffix), zap.String("basicUDI", basicUDI))
	return basicUDI, nil
}

// extractModelSuffix pulls the model reference suffix out of the document's
// current Basic UDI-DI: the characters between the manufacturer prefix and
// the two trailing check characters.
func extractModelSuffix(doc *etree.Document, prefix string) string {
	el := doc.FindElement("//MDRBasicUDI/identifier/DICode")
	if el == nil {
		return ""
	}
	current := strings.TrimSpace(el.Text())
	if len(current) <= len(prefix)+2 {
		return ""
	}
	base := current[:len(current)-2]
	if strings.HasPrefix(base, prefix) {
		return base[len(prefix):]
	}
	return ""
}

// setText replaces the text of the first element matching path, if present.
func setText(doc *etree.Document, path, text string) {
	if el := doc.FindElement(path); el != nil {
		el.SetText(text)
	}
}

// randomDigits returns n random decimal digits.
func randomDigits(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d", rand.Intn(10))
	}
	return b.String()
}
