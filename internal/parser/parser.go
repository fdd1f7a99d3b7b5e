// Package parser turns Weave Markdown documents into the public document
// model: frontmatter extraction, goldmark parsing with the Weave inline
// directives, the typed tree transform and the compile step.
package parser

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/starford/weave/internal/models"
	"github.com/starford/weave/internal/scan"
)

// Option configures a Parser.
type Option func(*options)

type options struct {
	strict       bool
	strip        bool
	filePath     string
	extensions   []goldmark.Extender
	transformers []util.PrioritizedValue
}

// WithStrict makes Parse fail with a *DiagnosticsError when any
// error-severity diagnostic is collected.
func WithStrict() Option {
	return func(o *options) { o.strict = true }
}

// WithStripPositions removes link positions and diagnostics from the result.
func WithStripPositions() Option {
	return func(o *options) { o.strip = true }
}

// WithFilePath stamps every diagnostic with path.
func WithFilePath(path string) Option {
	return func(o *options) { o.filePath = path }
}

// WithExtensions adds goldmark extensions to the underlying engine.
func WithExtensions(exts ...goldmark.Extender) Option {
	return func(o *options) { o.extensions = append(o.extensions, exts...) }
}

// WithASTTransformers registers goldmark AST transformers that run on the
// generic tree before the Weave transform.
func WithASTTransformers(ts ...util.PrioritizedValue) Option {
	return func(o *options) { o.transformers = append(o.transformers, ts...) }
}

// Parser parses Weave documents. It is safe for concurrent use.
type Parser struct {
	md   goldmark.Markdown
	opts options
}

// New builds a Parser backed by goldmark with GFM and the Weave directives.
func New(opts ...Option) *Parser {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	exts := append([]goldmark.Extender{extension.GFM, Directives}, o.extensions...)
	md := goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(gmparser.WithASTTransformers(o.transformers...)),
	)
	return &Parser{md: md, opts: o}
}

// Parse parses src with a one-off Parser.
func Parse(src []byte, opts ...Option) (*models.AST, error) {
	return New(opts...).Parse(src)
}

// Result is the transformed tree of one document before compilation.
type Result struct {
	Tree        *Document
	Frontmatter *Frontmatter
	BodyStart   int
	Diagnostics []models.Diagnostic
	Source      string
}

// ParseTree extracts the frontmatter, parses the body and transforms it
// into a Weave tree. Only frontmatter problems return an error.
func (p *Parser) ParseTree(src []byte) (*Result, error) {
	clean := string(StripBOM(src))
	fm, bodyStart, diags, err := ExtractFrontmatter(clean)
	if err != nil {
		return nil, err
	}

	body := []byte(clean[bodyStart:])
	root := p.md.Parser().Parse(text.NewReader(body))
	doc, treeDiags := Transform(root, body, bodyStart, scan.NewLineIndex(clean))
	diags = append(diags, treeDiags...)

	if p.opts.filePath != "" {
		for i := range diags {
			diags[i].FilePath = p.opts.filePath
		}
	}
	return &Result{
		Tree:        doc,
		Frontmatter: fm,
		BodyStart:   bodyStart,
		Diagnostics: diags,
		Source:      clean,
	}, nil
}

// Parse parses src into the public document model.
func (p *Parser) Parse(src []byte) (*models.AST, error) {
	res, err := p.ParseTree(src)
	if err != nil {
		return nil, err
	}
	if p.opts.strict {
		var errs []models.Diagnostic
		for _, d := range res.Diagnostics {
			if d.Severity == models.SeverityError {
				errs = append(errs, d)
			}
		}
		if len(errs) > 0 {
			return nil, &DiagnosticsError{Diagnostics: errs}
		}
	}

	ast := Compile(res.Tree, res.Frontmatter, res.BodyStart, res.Source, res.Diagnostics)
	if p.opts.strip {
		StripDebugInfo(ast)
	}
	return ast, nil
}
