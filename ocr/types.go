// Package ocr defines the canonical model for math-OCR API responses. Both
// upstream shapes — the raw API payload and the pre-rendered fields exposed by
// a result renderer — are collapsed into one Formats value by the adapters in
// this package, so downstream collectors never sniff object shapes.
package ocr

import "encoding/json"

// Kind identifies the response shape of one OCR interaction.
type Kind string

const (
	// KindText is a single-image recognition response.
	KindText Kind = "text"
	// KindPDF is a document-conversion response with per-format payloads.
	KindPDF Kind = "pdf"
	// KindStrokes is a digital-ink recognition response.
	KindStrokes Kind = "strokes"
)

// Valid reports whether k is one of the three supported kinds.
func (k Kind) Valid() bool {
	return k == KindText || k == KindPDF || k == KindStrokes
}

// Line is one recognized line of content.
type Line struct {
	Type          string  `json:"type,omitempty"`
	Text          string  `json:"text,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
	IsHandwritten bool    `json:"is_handwritten,omitempty"`
}

// Page groups recognized lines for one page of a PDF document.
type Page struct {
	Page  int    `json:"page"`
	Lines []Line `json:"lines"`
}

// Documents carries the per-format payloads of a PDF conversion. Text formats
// are copied verbatim; binary formats and nested archives pass through
// byte-for-byte.
type Documents struct {
	MMD  string
	MD   string
	HTML string

	DOCX []byte
	PPTX []byte
	PDF  []byte

	// Archives maps an extension tag (for example "tex.zip") to a nested
	// archive payload that must never be recompressed.
	Archives map[string][]byte
}

// Formats is the canonical, shape-independent view of one OCR response that
// the result collector consumes.
type Formats struct {
	Kind Kind

	LaTeX     string
	MathML    string
	AsciiMath string
	HTML      string
	TableHTML string
	TableTSV  string
	Markdown  string

	// Raw is the full response serialization, written as the JSON artifact.
	Raw json.RawMessage

	// Docs holds PDF conversion outputs; nil for text and strokes responses.
	Docs *Documents

	// Ink metadata, populated for strokes responses.
	StrokeCount  int
	CanvasWidth  int
	CanvasHeight int

	RequestID      string
	Confidence     float64
	ConfidenceRate float64
	IsHandwritten  bool
	IsPrinted      bool
	Lines          []Line
}

// RawResponse mirrors the raw math-OCR API response payload.
type RawResponse struct {
	RequestID      string      `json:"request_id,omitempty"`
	Text           string      `json:"text,omitempty"`
	LaTeXStyled    string      `json:"latex_styled,omitempty"`
	HTML           string      `json:"html,omitempty"`
	Confidence     float64     `json:"confidence,omitempty"`
	ConfidenceRate float64     `json:"confidence_rate,omitempty"`
	IsHandwritten  bool        `json:"is_handwritten,omitempty"`
	IsPrinted      bool        `json:"is_printed,omitempty"`
	Data           []DataEntry `json:"data,omitempty"`
	LineData       []Line      `json:"line_data,omitempty"`

	PDFID    string `json:"pdf_id,omitempty"`
	NumPages int    `json:"num_pages,omitempty"`

	StrokeCount  int `json:"stroke_count,omitempty"`
	CanvasWidth  int `json:"canvas_width,omitempty"`
	CanvasHeight int `json:"canvas_height,omitempty"`
}

// DataEntry is one alternate-format rendering inside a raw response.
type DataEntry struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// RendererShape mirrors the pre-rendered format fields a result renderer
// exposes after displaying a response.
type RendererShape struct {
	Kind      Kind
	LaTeX     string
	MathML    string
	AsciiMath string
	HTML      string
	TableHTML string
	TableTSV  string
	Markdown  string
	JSON      json.RawMessage
}
