// Package results extracts every available output format from a canonical OCR
// response and writes each as a separate archive entry with a descriptive
// filename derived from the source.
package results

import (
	"context"
	"sort"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/wudi/mathbundle/archive"
	"github.com/wudi/mathbundle/observability"
	"github.com/wudi/mathbundle/ocr"
)

// DefaultBase is the filename stem used when no source-derived base is given.
const DefaultBase = "result"

// Collector writes result artifacts into an archive folder.
type Collector struct {
	log observability.Logger
	md  *converter.Converter
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger attaches a logger. The default is a no-op.
func WithLogger(log observability.Logger) Option {
	return func(c *Collector) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCollector returns a result collector.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		log: observability.NopLogger{},
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect writes every populated format from f into folder. The base stem
// produces descriptive filenames; empty base falls back to DefaultBase.
// Failures are recorded in the result, never returned as errors.
func (c *Collector) Collect(ctx context.Context, f ocr.Formats, folder *archive.Folder, baseName string) archive.CollectionResult {
	kind := f.Kind
	if !kind.Valid() {
		kind = ocr.KindText
	}
	result := archive.CollectionResult{Type: string(kind)}
	if baseName == "" {
		baseName = DefaultBase
	}

	if err := ctx.Err(); err != nil {
		result.Fail("results", "context: %v", err)
		return result
	}

	switch kind {
	case ocr.KindPDF:
		c.extractPDF(f, folder, baseName, &result)
	default:
		// Text and strokes responses share one extractor.
		c.extractText(f, folder, baseName, &result)
	}

	c.log.Debug("collected results",
		observability.String("kind", string(kind)),
		observability.Int("files", len(result.Files)))
	return result
}

// textFormat maps one canonical field to its archive entry.
type textFormat struct {
	tag     string
	suffix  string
	mime    string
	content string
}

func (c *Collector) extractText(f ocr.Formats, folder *archive.Folder, baseName string, result *archive.CollectionResult) {
	markdown := f.Markdown
	if strings.TrimSpace(markdown) == "" && strings.TrimSpace(f.LaTeX) != "" {
		markdown = synthesizeMarkdown(f.LaTeX)
	}
	tableMD := synthesizeTableMarkdown(f.TableTSV)
	if tableMD == "" && strings.TrimSpace(f.TableHTML) != "" {
		converted, err := c.md.ConvertString(f.TableHTML)
		if err != nil {
			result.Fail("results", "convert table html: %v", err)
		} else {
			tableMD = converted
		}
	}

	formats := []textFormat{
		{"latex", ".tex", "application/x-latex", f.LaTeX},
		{"mathml", ".mml", "application/mathml+xml", f.MathML},
		{"asciimath", "-asciimath.txt", "text/plain", f.AsciiMath},
		{"html", ".html", "text/html", f.HTML},
		{"table-html", "-table.html", "text/html", f.TableHTML},
		{"table-tsv", "-table.tsv", "text/tab-separated-values", f.TableTSV},
		{"table-markdown", "-table.md", "text/markdown", tableMD},
		{"markdown", ".md", "text/markdown", markdown},
		{"json", ".json", "application/json", string(f.Raw)},
	}
	for _, tf := range formats {
		content := strings.TrimSpace(tf.content)
		if content == "" {
			continue
		}
		name := baseName + tf.suffix
		if err := folder.Add(name, []byte(tf.content)); err != nil {
			result.Fail("results", "write %s: %v", tf.tag, err)
			continue
		}
		result.Record(archive.Entry{
			Type:     tf.tag,
			Filename: name,
			Size:     int64(len(tf.content)),
			Format:   tf.mime,
		})
	}
}

func (c *Collector) extractPDF(f ocr.Formats, folder *archive.Folder, baseName string, result *archive.CollectionResult) {
	docs := f.Docs
	if docs == nil {
		result.Fail("results", "pdf response carries no documents")
		if len(f.Raw) > 0 {
			c.writeText(folder, result, "json", baseName+".json", "application/json", string(f.Raw))
		}
		return
	}

	c.writeText(folder, result, "mmd", baseName+".mmd", "text/markdown", docs.MMD)
	c.writeText(folder, result, "markdown", baseName+".md", "text/markdown", docs.MD)
	c.writeText(folder, result, "html", baseName+".html", "text/html", docs.HTML)

	binaries := []struct {
		tag  string
		ext  string
		mime string
		data []byte
	}{
		{"docx", ".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", docs.DOCX},
		{"pptx", ".pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation", docs.PPTX},
		{"pdf", ".pdf", "application/pdf", docs.PDF},
	}
	for _, b := range binaries {
		if len(b.data) == 0 {
			continue
		}
		name := baseName + b.ext
		if err := folder.Add(name, b.data); err != nil {
			result.Fail("results", "write %s: %v", b.tag, err)
			continue
		}
		result.Record(archive.Entry{
			Type:     b.tag,
			Filename: name,
			Size:     int64(len(b.data)),
			Format:   b.mime,
			Binary:   true,
		})
	}

	// Nested archives pass through byte-for-byte, stored without
	// recompression. Sorted for a stable entry order.
	tags := make([]string, 0, len(docs.Archives))
	for tag := range docs.Archives {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		data := docs.Archives[tag]
		if len(data) == 0 {
			continue
		}
		name := baseName + "." + tag
		if err := folder.AddStored(name, data); err != nil {
			result.Fail("results", "write nested archive %s: %v", tag, err)
			continue
		}
		result.Record(archive.Entry{
			Type:     "archive",
			Filename: name,
			Size:     int64(len(data)),
			Format:   "application/zip",
			Binary:   true,
			Nested:   true,
		})
	}

	if len(f.Raw) > 0 {
		c.writeText(folder, result, "json", baseName+".json", "application/json", string(f.Raw))
	}
}

func (c *Collector) writeText(folder *archive.Folder, result *archive.CollectionResult, tag, name, mime, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	if err := folder.Add(name, []byte(content)); err != nil {
		result.Fail("results", "write %s: %v", tag, err)
		return
	}
	result.Record(archive.Entry{
		Type:     tag,
		Filename: name,
		Size:     int64(len(content)),
		Format:   mime,
	})
}

// synthesizeMarkdown wraps LaTeX in display-math delimiters so Markdown
// viewers with math support render it directly.
func synthesizeMarkdown(latex string) string {
	return "$$\n" + strings.TrimSpace(latex) + "\n$$\n"
}

// synthesizeTableMarkdown converts tab-separated rows into a pipe table with
// a header separator after the first row.
func synthesizeTableMarkdown(tsv string) string {
	tsv = strings.TrimSpace(tsv)
	if tsv == "" {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(tsv, "\r\n", "\n"), "\n")
	var b strings.Builder
	for i, line := range lines {
		cells := strings.Split(line, "\t")
		b.WriteString("|")
		for _, cell := range cells {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(cell))
			b.WriteString(" |")
		}
		b.WriteString("\n")
		if i == 0 {
			b.WriteString("|")
			for range cells {
				b.WriteString(" --- |")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
