package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"testing"
)

func readAll(t *testing.T, f *zip.File) []byte {
	t.Helper()
	rc, err := f.Open()
	if err != nil {
		t.Fatalf("open %s: %v", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", f.Name, err)
	}
	return data
}

func TestFinalizeRoundTrip(t *testing.T) {
	a := New()
	src := a.Folder("source")
	if err := src.Add("input.pdf", []byte("%PDF-1.4 fake")); err != nil {
		t.Fatalf("add: %v", err)
	}
	res := a.Folder("results")
	if err := res.Add("result.tex", []byte("x^2")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := a.AddRoot("README.txt", []byte("hello")); err != nil {
		t.Fatalf("add root: %v", err)
	}

	blob, err := a.Finalize()
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	want := map[string]string{
		"source/input.pdf":   "%PDF-1.4 fake",
		"results/result.tex": "x^2",
		"README.txt":         "hello",
	}
	if len(zr.File) != len(want) {
		t.Fatalf("entry count = %d, want %d", len(zr.File), len(want))
	}
	for _, f := range zr.File {
		content, ok := want[f.Name]
		if !ok {
			t.Fatalf("unexpected entry %s", f.Name)
		}
		if got := string(readAll(t, f)); got != content {
			t.Fatalf("entry %s = %q, want %q", f.Name, got, content)
		}
	}
}

func TestDuplicateNameRejected(t *testing.T) {
	a := New()
	f := a.Folder("edits")
	if err := f.Add("v1.mmd", []byte("a")); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := f.Add("v1.mmd", []byte("b"))
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("duplicate add error = %v, want ErrDuplicateName", err)
	}
	if !f.Has("v1.mmd") {
		t.Fatal("Has() = false after insert")
	}
	if f.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", f.Len())
	}
}

func TestNestedArchivesAreStored(t *testing.T) {
	nested := []byte("PK\x03\x04 nested zip payload")
	a := New()
	if err := a.Folder("results").AddStored("out.tex.zip", nested); err != nil {
		t.Fatalf("AddStored: %v", err)
	}
	blob, err := a.Finalize()
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if len(zr.File) != 1 {
		t.Fatalf("entry count = %d, want 1", len(zr.File))
	}
	f := zr.File[0]
	if f.Method != zip.Store {
		t.Fatalf("method = %d, want Store", f.Method)
	}
	if !bytes.Equal(readAll(t, f), nested) {
		t.Fatal("nested payload not byte-identical")
	}
}

func TestTotalFiles(t *testing.T) {
	a := New()
	a.Folder("source")
	if a.TotalFiles() != 0 {
		t.Fatalf("TotalFiles() = %d, want 0", a.TotalFiles())
	}
	a.Folder("source").Add("a.png", nil)
	a.Folder("data").Add("metadata.json", nil)
	a.AddRoot("README.txt", nil)
	if got := a.TotalFiles(); got != 3 {
		t.Fatalf("TotalFiles() = %d, want 3", got)
	}
}
