package convert

import (
	"context"
	"strings"
	"testing"
)

func TestConvertProducesStandaloneHTML(t *testing.T) {
	c := NewHTMLConverter()
	docs, err := c.Convert(context.Background(), "# Title\n\nSome $$x^2$$ math.", "My-Document")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("documents = %d, want 1", len(docs))
	}
	d := docs[0]
	if d.Filename != "My-Document.html" {
		t.Fatalf("filename = %q", d.Filename)
	}
	if d.Format != "text/html" {
		t.Fatalf("format = %q", d.Format)
	}
	page := string(d.Data)
	if !strings.HasPrefix(page, "<!DOCTYPE html>") {
		t.Fatal("output is not a standalone document")
	}
	if !strings.Contains(page, "<h1") {
		t.Fatalf("markdown heading not rendered:\n%s", page)
	}
	if !strings.Contains(page, "<math") {
		t.Fatalf("math not rendered to MathML:\n%s", page)
	}
}

func TestConvertEmptyContent(t *testing.T) {
	c := NewHTMLConverter()
	docs, err := c.Convert(context.Background(), "   \n", "x")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if docs != nil {
		t.Fatalf("documents = %+v, want none for empty content", docs)
	}
}

func TestConvertDefaultsBase(t *testing.T) {
	c := NewHTMLConverter()
	docs, err := c.Convert(context.Background(), "text", "")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if docs[0].Filename != "document.html" {
		t.Fatalf("filename = %q", docs[0].Filename)
	}
}

func TestConvertRespectsContext(t *testing.T) {
	c := NewHTMLConverter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Convert(ctx, "text", "x"); err == nil {
		t.Fatal("expected context error")
	}
}
