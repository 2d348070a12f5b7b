// Package manifest renders the bundle's README.txt: a fixed-section plain
// text report of archive contents, quality metrics and processing details.
// Generation is a pure function of its inputs.
package manifest

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/wudi/mathbundle/archive"
	"github.com/wudi/mathbundle/data"
	"github.com/wudi/mathbundle/ocr"
)

// GeneratorName identifies the producer in the technical section.
const GeneratorName = "mathbundle"

// Input is everything the README generator consumes.
type Input struct {
	Source  archive.CollectionResult
	Results archive.CollectionResult
	Meta    data.Metadata

	// Edits and Converted are optional extra folders.
	Edits     archive.CollectionResult
	Converted archive.CollectionResult

	// Endpoint is the processing endpoint, resolved to a region via Regions.
	Endpoint string
	// Regions is the endpoint lookup table; nil falls back to the default.
	Regions *RegionTable

	// Pages enables the PDF per-page statistics view of the content section.
	Pages []data.PageStats
}

// formatNotes describes the result artifacts per response kind.
var formatNotes = map[string][]string{
	string(ocr.KindText): {
		"*.tex        LaTeX markup of the recognised mathematics",
		"*.mml        Presentation MathML",
		"*-asciimath  AsciiMath rendering",
		"*.html       HTML rendering of the recognised content",
		"*-table.*    Table renderings (HTML, TSV, Markdown)",
		"*.md         Markdown document (synthesised from LaTeX when absent)",
		"*.json       Full API response",
	},
	string(ocr.KindStrokes): {
		"*.tex        LaTeX recognised from the digital ink",
		"*.md         Markdown document",
		"*.json       Full API response including stroke statistics",
	},
	string(ocr.KindPDF): {
		"*.mmd        Mathpix-flavoured Markdown of the whole document",
		"*.md / .html Converted document renderings",
		"*.docx/.pptx Office document conversions",
		"*.*.zip      Nested conversion archives, stored without recompression",
		"*.json       Conversion status response",
	},
}

// Generate renders the README document. Deterministic for fixed inputs.
func Generate(in Input) string {
	regions := in.Regions
	if regions == nil {
		regions = DefaultRegions()
	}

	var b strings.Builder
	section := func(title string) {
		b.WriteString("\n")
		b.WriteString(title)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", len(title)))
		b.WriteString("\n")
	}

	b.WriteString("MATH OCR RESULT BUNDLE\n")
	b.WriteString("======================\n")

	section("Interaction")
	fmt.Fprintf(&b, "Captured via:  %s\n", in.Meta.Download.SourceType)
	fmt.Fprintf(&b, "Processed as:  %s\n", in.Meta.Download.APIType)
	fmt.Fprintf(&b, "Downloaded at: %s\n", in.Meta.Download.Timestamp)

	section("Processing summary")
	if in.Meta.Processing.RequestID != "" {
		fmt.Fprintf(&b, "Request ID:      %s\n", in.Meta.Processing.RequestID)
	}
	fmt.Fprintf(&b, "Processing mode: %s\n", in.Meta.Processing.ProcessingMode)
	fmt.Fprintf(&b, "Confidence:      %.1f%%\n", in.Meta.Processing.Confidence)
	if in.Meta.Processing.ConfidenceRate > 0 {
		fmt.Fprintf(&b, "Confidence rate: %.3f\n", in.Meta.Processing.ConfidenceRate)
	}
	if in.Meta.Timing.DurationMS > 0 {
		fmt.Fprintf(&b, "Build duration:  %d ms\n", in.Meta.Timing.DurationMS)
	}

	section("Archive contents")
	writeFolder(&b, "source/", in.Source.Files)
	writeFolder(&b, "results/", in.Results.Files)
	if len(in.Edits.Files) > 0 {
		writeFolder(&b, "edits/", in.Edits.Files)
	}
	if len(in.Converted.Files) > 0 {
		writeFolder(&b, "converted/", in.Converted.Files)
	}
	b.WriteString("data/\n")
	b.WriteString("  api-request.json, api-response.json, debug-info.md, metadata.json (as available)\n")

	section("File sizes")
	var total int64
	for _, entries := range [][]archive.Entry{in.Source.Files, in.Results.Files, in.Edits.Files, in.Converted.Files} {
		for _, e := range entries {
			fmt.Fprintf(&b, "%-40s %s\n", e.Filename, data.FormatFileSize(e.Size))
			total += e.Size
		}
	}
	fmt.Fprintf(&b, "%-40s %s (%s bytes)\n", "Total", data.FormatFileSize(total), humanize.Comma(total))

	section("Content analysis")
	if in.Meta.Download.APIType == string(ocr.KindPDF) && len(in.Pages) > 0 {
		fmt.Fprintf(&b, "Document pages: %d\n", len(in.Pages))
		for _, p := range in.Pages {
			fmt.Fprintf(&b, "  page %-3d  %3d lines  avg confidence %.1f%%\n", p.Page, p.LineCount, p.AvgConfidence)
		}
	} else {
		fmt.Fprintf(&b, "Detected content: %s\n", in.Meta.Content.DetectedType)
		fmt.Fprintf(&b, "Recognised lines: %d\n", in.Meta.Content.LineCount)
		fmt.Fprintf(&b, "Contains table:   %v\n", in.Meta.Content.HasTable)
	}

	if notes, ok := formatNotes[in.Meta.Download.APIType]; ok {
		section("Result formats")
		for _, n := range notes {
			b.WriteString("  " + n + "\n")
		}
	}

	section("Technical information")
	fmt.Fprintf(&b, "Generator:  %s\n", GeneratorName)
	if in.Endpoint != "" {
		fmt.Fprintf(&b, "Endpoint:   %s\n", in.Endpoint)
		fmt.Fprintf(&b, "Region:     %s\n", regions.Resolve(in.Endpoint))
	}
	fmt.Fprintf(&b, "Files:      %s\n", humanize.Comma(int64(in.Meta.Formats.TotalFiles)))

	if errs := collectErrors(in); len(errs) > 0 {
		section("Collection warnings")
		for _, e := range errs {
			b.WriteString("  - " + e + "\n")
		}
	}
	return b.String()
}

func writeFolder(b *strings.Builder, name string, entries []archive.Entry) {
	fmt.Fprintf(b, "%s (%d)\n", name, len(entries))
	for _, e := range entries {
		fmt.Fprintf(b, "  %-38s %s\n", e.Filename, e.Type)
	}
}

func collectErrors(in Input) []string {
	var out []string
	for _, r := range []archive.CollectionResult{in.Source, in.Results, in.Edits, in.Converted} {
		for _, e := range r.Errors {
			out = append(out, e.Error())
		}
	}
	return out
}
