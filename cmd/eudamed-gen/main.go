// Command eudamed-gen generates EUDAMED submission XML documents from an
// XSD schema set and a flat YAML configuration.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	eudamed "github.com/bksdavd/EUDAMED-XML-Generator"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// keyValueMap is a repeatable "key=value" flag.
type keyValueMap map[string]string

func (m keyValueMap) String() string { return fmt.Sprintf("%v", map[string]string(m)) }

func (m keyValueMap) Set(value string) error {
	key, val, found := strings.Cut(value, "=")
	if !found || key == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	m[key] = val
	return nil
}

func run(args []string) int {
	fs := flag.NewFlagSet("eudamed-gen", flag.ContinueOnError)
	var (
		schemas    stringList
		roots      stringList
		nsOverride = keyValueMap{}
		subs       = keyValueMap{}
	)
	fs.Var(&schemas, "schema", "XSD schema file to load (repeatable)")
	fs.Var(&roots, "root", "root element to generate (repeatable)")
	configPath := fs.String("config", "", "YAML configuration file with a defaults: mapping")
	startPath := fs.String("start", "", "configuration start path (defaults to the root element name)")
	typeOverride := fs.String("type", "", "complex type to generate instead of the root's declared type")
	outDir := fs.String("out", ".", "output directory")
	fs.Var(nsOverride, "ns", "namespace prefix override as prefix=uri (repeatable)")
	fs.Var(subs, "sub", "substitution as abstractRef=concreteName (repeatable)")
	indent := fs.Int("indent", 2, "indentation spaces; negative disables pretty printing")
	validate := fs.Bool("validate", false, "validate generated documents against the schemas")
	debug := fs.Bool("debug", false, "debug logging and generated-tree dumps")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: eudamed-gen -schema <file.xsd> -config <defaults.yaml> -root <Element> [options]\n\n")
		fmt.Fprintln(fs.Output(), "Generates schema-shaped EUDAMED XML from flat configuration.")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if len(schemas) == 0 || *configPath == "" || len(roots) == 0 {
		fmt.Fprintln(os.Stderr, "error: -schema, -config and -root are required")
		fs.Usage()
		return 2
	}

	logger := newLogger(*debug)
	defer func() { _ = logger.Sync() }()

	index := eudamed.NewIndex(logger)
	for _, path := range schemas {
		if err := index.Load(path); err != nil {
			logger.Error("failed to load schema", zap.String("path", path), zap.Error(err))
			return 1
		}
	}

	cfg, err := eudamed.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", zap.Error(err))
		return 1
	}

	namespaces := outputNamespaces(index, nsOverride)

	var opts *eudamed.GenerateOptions
	if *typeOverride != "" {
		opts = &eudamed.GenerateOptions{TypeOverride: *typeOverride}
	}

	failed := 0
	for _, root := range roots {
		start := *startPath
		if start == "" {
			start = root
		}

		// Each target gets its own generator over a filtered configuration
		// copy so repeated runs cannot cross-contaminate.
		gen := eudamed.NewGenerator(index, cfg.Filter(start), namespaces, subs, logger)
		tree, err := gen.Generate(root, start, opts)
		if err != nil {
			logger.Error("generation failed", zap.String("root", root), zap.Error(err))
			failed++
			continue
		}
		if tree == nil {
			logger.Warn("nothing to write", zap.String("root", root))
			continue
		}
		if *debug {
			spew.Fdump(os.Stderr, tree)
		}

		outPath := filepath.Join(*outDir, root+".xml")
		if err := writeTarget(outPath, tree, *indent, namespaces); err != nil {
			logger.Error("write failed", zap.String("root", root), zap.Error(err))
			failed++
			continue
		}
		logger.Info("generated document", zap.String("root", root), zap.String("file", outPath))

		if *validate {
			if err := validateTarget(index, outPath); err != nil {
				logger.Warn("generated document is not schema-valid",
					zap.String("file", outPath), zap.Error(err))
			}
		}
	}

	if failed > 0 {
		return 1
	}
	return 0
}

func newLogger(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// outputNamespaces inverts the index's prefix declarations into the
// URI-to-prefix map used for output qualification, then applies overrides.
func outputNamespaces(index *eudamed.Index, overrides map[string]string) map[string]string {
	out := make(map[string]string)
	for prefix, uri := range index.Namespaces() {
		if prefix == "" || prefix == "xs" || prefix == "xsd" {
			continue
		}
		if _, exists := out[uri]; !exists {
			out[uri] = prefix
		}
	}
	for prefix, uri := range overrides {
		out[uri] = prefix
	}
	return out
}

func writeTarget(path string, tree *eudamed.Node, indent int, namespaces map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	return eudamed.WriteDocument(f, tree, &eudamed.WriteOptions{
		Indent:      indent,
		Declaration: true,
		Namespaces:  namespaces,
	})
}

func validateTarget(index *eudamed.Index, path string) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return index.ValidateDocument(doc)
}
