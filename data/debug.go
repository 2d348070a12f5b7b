package data

import (
	"fmt"
	"strings"
)

// PageStats is one page's Lines-API statistics from the debug panel.
type PageStats struct {
	Page          int     `json:"page"`
	LineCount     int     `json:"lineCount"`
	AvgConfidence float64 `json:"avgConfidence"`
}

// DebugData is a free-form telemetry snapshot from the UI's debug panel. It
// lives only for the duration of one bundle build and is never persisted
// outside the archive.
type DebugData struct {
	// Endpoint is the processing endpoint the interaction was sent to.
	Endpoint string
	// Operation names the API operation (for example "v3/text").
	Operation string
	// ConfidenceText is the panel's confidence string, typically ending in
	// a "NN.N%" figure.
	ConfidenceText string

	RequestSummary  string
	ResponseSummary string
	ProcessingNotes string

	// Pages carries per-document Lines-API statistics for PDF runs.
	Pages []PageStats

	// Raw is a pre-formatted debug dump. When set it is written verbatim
	// instead of the structured rendering.
	Raw string
}

// Markdown renders the snapshot as the data/debug-info.md document.
func (d *DebugData) Markdown() string {
	if d == nil {
		return ""
	}
	if strings.TrimSpace(d.Raw) != "" {
		return d.Raw
	}

	var b strings.Builder
	b.WriteString("# Debug Information\n\n")

	b.WriteString("## Request\n\n")
	if d.Endpoint != "" {
		fmt.Fprintf(&b, "- Endpoint: %s\n", d.Endpoint)
	}
	if d.Operation != "" {
		fmt.Fprintf(&b, "- Operation: %s\n", d.Operation)
	}
	if d.RequestSummary != "" {
		b.WriteString("\n" + strings.TrimSpace(d.RequestSummary) + "\n")
	}
	b.WriteString("\n## Response\n\n")
	if d.ConfidenceText != "" {
		fmt.Fprintf(&b, "- Confidence: %s\n", d.ConfidenceText)
	}
	if d.ResponseSummary != "" {
		b.WriteString("\n" + strings.TrimSpace(d.ResponseSummary) + "\n")
	}
	if len(d.Pages) > 0 {
		b.WriteString("\n| Page | Lines | Avg. Confidence |\n|---|---|---|\n")
		for _, p := range d.Pages {
			fmt.Fprintf(&b, "| %d | %d | %.1f%% |\n", p.Page, p.LineCount, p.AvgConfidence)
		}
	}
	b.WriteString("\n## Processing\n")
	if d.ProcessingNotes != "" {
		b.WriteString("\n" + strings.TrimSpace(d.ProcessingNotes) + "\n")
	}
	return b.String()
}
