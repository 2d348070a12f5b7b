package results

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/wudi/mathbundle/archive"
	"github.com/wudi/mathbundle/ocr"
)

func collect(t *testing.T, f ocr.Formats, base string) (archive.CollectionResult, *archive.Folder) {
	t.Helper()
	folder := archive.New().Folder("results")
	res := NewCollector().Collect(context.Background(), f, folder, base)
	return res, folder
}

func TestTextOnlyResponseYieldsLatexMarkdownJSON(t *testing.T) {
	raw := []byte(`{"text":"x^2+1"}`)
	f, err := ocr.FromRaw(raw)
	if err != nil {
		t.Fatalf("FromRaw: %v", err)
	}
	res, _ := collect(t, f, "My-Document")

	if len(res.Errors) != 0 {
		t.Fatalf("errors = %+v", res.Errors)
	}
	want := []string{"My-Document.tex", "My-Document.md", "My-Document.json"}
	if got := res.Filenames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	types := map[string]bool{}
	for _, e := range res.Files {
		types[e.Type] = true
	}
	for _, forbidden := range []string{"mathml", "asciimath", "html", "table-html"} {
		if types[forbidden] {
			t.Fatalf("unexpected %s entry for text-only response", forbidden)
		}
	}
}

func TestMarkdownSynthesisFromLatex(t *testing.T) {
	f := ocr.Formats{Kind: ocr.KindText, LaTeX: `\frac{a}{b}`}
	res, _ := collect(t, f, "")

	var md *archive.Entry
	for i := range res.Files {
		if res.Files[i].Type == "markdown" {
			md = &res.Files[i]
		}
	}
	if md == nil {
		t.Fatalf("no markdown entry: %v", res.Filenames())
	}
	if md.Filename != DefaultBase+".md" {
		t.Fatalf("filename = %q", md.Filename)
	}
}

func TestExplicitMarkdownNotOverwritten(t *testing.T) {
	f := ocr.Formats{Kind: ocr.KindText, LaTeX: "x", Markdown: "already here"}
	_, folder := collect(t, f, "r")
	if !folder.Has("r.md") {
		t.Fatal("markdown entry missing")
	}
}

func TestTableMarkdownFromTSV(t *testing.T) {
	got := synthesizeTableMarkdown("a\tb\n1\t2")
	want := "| a | b |\n| --- | --- |\n| 1 | 2 |\n"
	if got != want {
		t.Fatalf("synthesizeTableMarkdown = %q, want %q", got, want)
	}
}

func TestTableFormats(t *testing.T) {
	f := ocr.Formats{
		Kind:      ocr.KindText,
		TableHTML: "<table><tr><td>a</td></tr></table>",
		TableTSV:  "a\tb",
	}
	res, _ := collect(t, f, "tbl")
	want := []string{"tbl-table.html", "tbl-table.tsv", "tbl-table.md"}
	if got := res.Filenames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
}

func TestTableMarkdownFallsBackToHTML(t *testing.T) {
	f := ocr.Formats{
		Kind:      ocr.KindText,
		TableHTML: "<table><tr><th>h</th></tr><tr><td>v</td></tr></table>",
	}
	res, _ := collect(t, f, "tbl")
	names := res.Filenames()
	found := false
	for _, n := range names {
		if n == "tbl-table.md" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no table markdown synthesised from html: %v", names)
	}
}

func TestRendererAndRawShapeRoundTrip(t *testing.T) {
	raw := []byte(`{"text":"e=mc^2","html":"<span>e=mc²</span>"}`)
	fRaw, err := ocr.FromRaw(raw)
	if err != nil {
		t.Fatalf("FromRaw: %v", err)
	}
	fRenderer := ocr.FromRenderer(ocr.RendererShape{
		LaTeX: "e=mc^2",
		HTML:  "<span>e=mc²</span>",
		JSON:  json.RawMessage(raw),
	})

	resRaw, _ := collect(t, fRaw, "x")
	resRenderer, _ := collect(t, fRenderer, "x")

	if !reflect.DeepEqual(resRaw.Filenames(), resRenderer.Filenames()) {
		t.Fatalf("extraction diverged: %v vs %v", resRaw.Filenames(), resRenderer.Filenames())
	}
}

func TestStrokesResponseUsesTextExtractor(t *testing.T) {
	raw := []byte(`{"text":"y=x","stroke_count":4,"canvas_width":800,"canvas_height":600}`)
	f, err := ocr.FromRaw(raw)
	if err != nil {
		t.Fatalf("FromRaw: %v", err)
	}
	if f.Kind != ocr.KindStrokes {
		t.Fatalf("kind = %q", f.Kind)
	}
	res, _ := collect(t, f, "ink")
	if res.Type != string(ocr.KindStrokes) {
		t.Fatalf("result type = %q", res.Type)
	}
	if !strings.Contains(strings.Join(res.Filenames(), " "), "ink.tex") {
		t.Fatalf("latex entry missing: %v", res.Filenames())
	}
}

func TestPDFExtractor(t *testing.T) {
	f := ocr.Formats{
		Kind: ocr.KindPDF,
		Raw:  json.RawMessage(`{"pdf_id":"doc1","num_pages":2}`),
		Docs: &ocr.Documents{
			MMD:  "# page one",
			HTML: "<html><body>doc</body></html>",
			DOCX: []byte("docx-bytes"),
			Archives: map[string][]byte{
				"tex.zip":  []byte("PK\x03\x04tex"),
				"html.zip": []byte("PK\x03\x04html"),
			},
		},
	}
	res, folder := collect(t, f, "doc")
	if len(res.Errors) != 0 {
		t.Fatalf("errors = %+v", res.Errors)
	}
	want := []string{"doc.mmd", "doc.html", "doc.docx", "doc.html.zip", "doc.tex.zip", "doc.json"}
	if got := res.Filenames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	for _, e := range res.Files {
		if e.Type == "archive" && !e.Nested {
			t.Fatalf("nested flag missing on %s", e.Filename)
		}
	}
	if !folder.Has("doc.tex.zip") {
		t.Fatal("nested archive not written")
	}
}

func TestPDFWithoutDocumentsRecordsError(t *testing.T) {
	f := ocr.Formats{Kind: ocr.KindPDF, Raw: json.RawMessage(`{"pdf_id":"d"}`)}
	res, _ := collect(t, f, "doc")
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %+v", res.Errors)
	}
	// The raw response is still preserved.
	if got := res.Filenames(); !reflect.DeepEqual(got, []string{"doc.json"}) {
		t.Fatalf("files = %v", got)
	}
}

func TestEmptyFormatsWriteNothing(t *testing.T) {
	res, _ := collect(t, ocr.Formats{Kind: ocr.KindText}, "")
	if len(res.Files) != 0 {
		t.Fatalf("files = %v, want none", res.Filenames())
	}
}
