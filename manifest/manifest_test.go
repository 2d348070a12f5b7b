package manifest

import (
	"strings"
	"testing"

	"github.com/wudi/mathbundle/archive"
	"github.com/wudi/mathbundle/data"
)

func TestRegionResolveExactBeforeSubstring(t *testing.T) {
	table := NewRegionTable()
	table.AddExact("eu-api.example.com", "Exact Europe")
	table.Add("eu-", "Substring Europe")

	if got := table.Resolve("https://eu-api.example.com/v3/text"); got != "Exact Europe" {
		t.Fatalf("Resolve() = %q, want exact match", got)
	}
	if got := table.Resolve("eu-west.example.com"); got != "Substring Europe" {
		t.Fatalf("Resolve() = %q, want substring match", got)
	}
	if got := table.Resolve("api.elsewhere.net"); got != UnknownRegion {
		t.Fatalf("Resolve() = %q, want %q", got, UnknownRegion)
	}
}

func TestRegionResolveHostForms(t *testing.T) {
	table := DefaultRegions()
	cases := []struct{ endpoint, want string }{
		{"https://api.mathocr.com/v3/text", "United States (Virginia)"},
		{"api.mathocr.com", "United States (Virginia)"},
		{"localhost:8080/v3/text", "Local development"},
		{"", UnknownRegion},
	}
	for _, tc := range cases {
		if got := table.Resolve(tc.endpoint); got != tc.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tc.endpoint, got, tc.want)
		}
	}
}

func TestLoadRegions(t *testing.T) {
	raw := []byte(`
- match: api.internal.corp
  region: On-premises
  exact: true
- match: staging
  region: Staging cluster
`)
	table, err := LoadRegions(raw)
	if err != nil {
		t.Fatalf("LoadRegions() error = %v", err)
	}
	if got := table.Resolve("api.internal.corp"); got != "On-premises" {
		t.Fatalf("Resolve() = %q", got)
	}
	if got := table.Resolve("ocr-staging.example.com"); got != "Staging cluster" {
		t.Fatalf("Resolve() = %q", got)
	}
}

func TestLoadRegionsRejectsIncompleteRules(t *testing.T) {
	if _, err := LoadRegions([]byte("- match: x\n")); err == nil {
		t.Fatal("expected error for rule without region")
	}
}

func sampleInput() Input {
	return Input{
		Source: archive.CollectionResult{
			Type:  "upload",
			Files: []archive.Entry{{Type: "upload", Filename: "My-Document.pdf", Size: 2048}},
		},
		Results: archive.CollectionResult{
			Type: "text",
			Files: []archive.Entry{
				{Type: "latex", Filename: "My-Document.tex", Size: 64},
				{Type: "json", Filename: "My-Document.json", Size: 512},
			},
		},
		Meta: data.Metadata{
			Download: data.DownloadInfo{
				Timestamp:  "2024-05-01T10:00:00Z",
				SourceType: "upload",
				APIType:    "text",
			},
			Processing: data.ProcessingInfo{
				RequestID:      "req-123",
				Confidence:     96.5,
				ProcessingMode: data.ModePrinted,
			},
			Content: data.ContentInfo{DetectedType: "math", LineCount: 4},
			Formats: data.FormatStats{TotalFiles: 3},
		},
		Endpoint: "https://api.mathocr.com/v3/text",
	}
}

func TestGenerateSections(t *testing.T) {
	out := Generate(sampleInput())
	for _, want := range []string{
		"MATH OCR RESULT BUNDLE",
		"Interaction",
		"Captured via:  upload",
		"Processing summary",
		"Request ID:      req-123",
		"Confidence:      96.5%",
		"Archive contents",
		"source/ (1)",
		"results/ (2)",
		"My-Document.tex",
		"File sizes",
		"2.0 KB",
		"Content analysis",
		"Detected content: math",
		"Result formats",
		"Technical information",
		"Region:     United States (Virginia)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("README missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	in := sampleInput()
	if Generate(in) != Generate(in) {
		t.Fatal("Generate() not deterministic for identical inputs")
	}
}

func TestGeneratePDFPageView(t *testing.T) {
	in := sampleInput()
	in.Meta.Download.APIType = "pdf"
	in.Pages = []data.PageStats{
		{Page: 1, LineCount: 30, AvgConfidence: 97.1},
		{Page: 2, LineCount: 12, AvgConfidence: 91.0},
	}
	out := Generate(in)
	if !strings.Contains(out, "Document pages: 2") {
		t.Fatalf("missing page view:\n%s", out)
	}
	if strings.Contains(out, "Recognised lines:") {
		t.Fatal("generic line view should be replaced by the page view")
	}
}

func TestGenerateSurfacesCollectionWarnings(t *testing.T) {
	in := sampleInput()
	in.Results.Errors = []archive.CollectionError{{Stage: "results", Message: "write html: boom"}}
	out := Generate(in)
	if !strings.Contains(out, "Collection warnings") || !strings.Contains(out, "write html: boom") {
		t.Fatalf("warnings missing:\n%s", out)
	}
}
