package data

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/wudi/mathbundle/archive"
	"github.com/wudi/mathbundle/ocr"
)

// Processing modes derived from source modality, handwriting flags and
// response kind.
const (
	ModeHandwritten = "Handwritten Math"
	ModePrinted     = "Printed Math"
	ModePDF         = "PDF Document"
	ModePasted      = "Pasted Image"
)

// Metadata is the aggregate descriptor written as data/metadata.json. Key
// names are stable; external tooling reads this file.
type Metadata struct {
	Download   DownloadInfo   `json:"download"`
	Processing ProcessingInfo `json:"processing"`
	Content    ContentInfo    `json:"content"`
	Formats    FormatStats    `json:"formats"`
	Files      FileLists      `json:"files"`
	Timing     TimingInfo     `json:"timing"`
}

// DownloadInfo records when and from what the bundle was produced.
type DownloadInfo struct {
	Timestamp  string `json:"timestamp"`
	SourceType string `json:"sourceType"`
	APIType    string `json:"apiType"`
}

// ProcessingInfo summarises the OCR run.
type ProcessingInfo struct {
	RequestID      string  `json:"requestId,omitempty"`
	Confidence     float64 `json:"confidence"`
	ConfidenceRate float64 `json:"confidenceRate"`
	ProcessingMode string  `json:"processingMode"`
	IsHandwritten  bool    `json:"isHandwritten"`
	IsPrinted      bool    `json:"isPrinted"`
}

// ContentInfo classifies what was recognised.
type ContentInfo struct {
	DetectedType       string `json:"detectedType"`
	LineCount          int    `json:"lineCount"`
	HasTable           bool   `json:"hasTable"`
	HasMultipleFormats bool   `json:"hasMultipleFormats"`
}

// FormatStats breaks down the archived files by count and size.
type FormatStats struct {
	SourceCount    int               `json:"sourceCount"`
	ResultsCount   int               `json:"resultsCount"`
	TotalFiles     int               `json:"totalFiles"`
	TotalSize      int64             `json:"totalSize"`
	TotalSizeHuman string            `json:"totalSizeHuman"`
	SourceSizes    map[string]string `json:"sourceSizes"`
	ResultSizes    map[string]string `json:"resultSizes"`
}

// FileLists itemises the collected entries per folder.
type FileLists struct {
	Source  []archive.Entry `json:"source"`
	Results []archive.Entry `json:"results"`
}

// TimingInfo captures the build's wall-clock envelope.
type TimingInfo struct {
	StartedAt  string `json:"startedAt,omitempty"`
	FinishedAt string `json:"finishedAt,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

var trailingPercent = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%\s*$`)

// ParseConfidence extracts a percentage from the trailing "NN.N%" of a
// debug-panel string, falling back to the response's 0–1 confidence field.
func ParseConfidence(debugText string, apiConfidence float64) float64 {
	if m := trailingPercent.FindStringSubmatch(strings.TrimSpace(debugText)); m != nil {
		var v float64
		if _, err := fmt.Sscanf(m[1], "%f", &v); err == nil {
			return v
		}
	}
	return apiConfidence * 100
}

// ClassifyMode cross-tabulates source modality, handwriting flags and
// response kind into one of the four processing modes.
func ClassifyMode(sourceType string, f ocr.Formats) string {
	switch {
	case f.Kind == ocr.KindPDF:
		return ModePDF
	case sourceType == "clipboard":
		return ModePasted
	case sourceType == "canvas" || f.Kind == ocr.KindStrokes:
		return ModeHandwritten
	case f.IsHandwritten && !f.IsPrinted:
		return ModeHandwritten
	default:
		return ModePrinted
	}
}

// ClassifyContent determines the detected content type with precedence
// table > math > text, and reports table presence.
func ClassifyContent(f ocr.Formats) (detected string, hasTable bool) {
	hasTable = strings.TrimSpace(f.TableTSV) != "" ||
		strings.TrimSpace(f.TableHTML) != "" ||
		containsTable(f.HTML) ||
		(f.Docs != nil && containsTable(f.Docs.HTML))

	hasMath := strings.TrimSpace(f.LaTeX) != "" ||
		strings.TrimSpace(f.MathML) != "" ||
		strings.TrimSpace(f.AsciiMath) != ""

	switch {
	case hasTable:
		return "table", true
	case hasMath:
		return "math", false
	default:
		return "text", false
	}
}

// containsTable tokenises markup and looks for a table element. Tokenising
// avoids false positives on literal "<table" text inside attribute values or
// code spans.
func containsTable(markup string) bool {
	if markup == "" || !strings.Contains(markup, "<") {
		return false
	}
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "table" {
				return true
			}
		}
	}
}

// FormatFileSize renders a byte count on the 1024-based unit ladder used
// throughout the bundle: Bytes, KB, MB, GB. Whole bytes print without a
// decimal; larger units keep one.
func FormatFileSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d Bytes", n)
	}
	return fmt.Sprintf("%.1f %s", v, units[i])
}
