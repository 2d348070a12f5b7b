// Package convert turns edited Mathpix-flavoured Markdown into standalone
// document files for the bundle's converted folder. The HTML converter is the
// built-in implementation; a hosting UI can substitute its own.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Document is one converted artifact destined for the converted folder.
type Document struct {
	Filename string
	Data     []byte
	Format   string
}

// Converter produces converted documents from edited Markdown content.
type Converter interface {
	Convert(ctx context.Context, mmd string, base string) ([]Document, error)
}

// HTMLConverter renders Markdown with math to a self-contained HTML document.
// Math segments become MathML, so the output needs no script or network
// access to display.
type HTMLConverter struct {
	md goldmark.Markdown
}

// NewHTMLConverter returns the built-in converter.
func NewHTMLConverter() *HTMLConverter {
	return &HTMLConverter{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				treeblood.MathML(),
			),
		),
	}
}

const htmlShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
table { border-collapse: collapse; }
td, th { border: 1px solid #999; padding: 0.25rem 0.5rem; }
math { font-size: 1.1em; }
</style>
</head>
<body>
%s</body>
</html>
`

// Convert renders mmd into one HTML document named after base.
func (c *HTMLConverter) Convert(ctx context.Context, mmd string, base string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(mmd) == "" {
		return nil, nil
	}
	if base == "" {
		base = "document"
	}

	var body bytes.Buffer
	if err := c.md.Convert([]byte(mmd), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	page := fmt.Sprintf(htmlShell, base, body.String())
	return []Document{{
		Filename: base + ".html",
		Data:     []byte(page),
		Format:   "text/html",
	}}, nil
}
