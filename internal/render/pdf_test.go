package render

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSortPagePaths(t *testing.T) {
	in := []string{
		"/img/doc_page_10.png",
		"/img/doc_page_2.png",
		"/img/cover.png",
		"/img/doc_page_1.png",
	}
	want := []string{
		"/img/doc_page_1.png",
		"/img/doc_page_2.png",
		"/img/doc_page_10.png",
		"/img/cover.png",
	}

	if got := SortPagePaths(in); !reflect.DeepEqual(got, want) {
		t.Errorf("SortPagePaths() = %v, want %v", got, want)
	}
	if in[0] != "/img/doc_page_10.png" {
		t.Error("SortPagePaths() modified its input")
	}
}

func TestPageNumber(t *testing.T) {
	tests := []struct {
		path   string
		want   int
		wantOK bool
	}{
		{path: "quote_page_3.png", want: 3, wantOK: true},
		{path: "/a/b/my_page_doc_page_12.png", want: 12, wantOK: true},
		{path: "quote_page_3.jpg", wantOK: false},
		{path: "quote.png", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := PageNumber(tt.path)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("PageNumber(%q) = %d, %v; want %d, %v", tt.path, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRasterize_InvalidInput(t *testing.T) {
	dir := t.TempDir()
	notPDF := filepath.Join(dir, "fake.pdf")
	if err := os.WriteFile(notPDF, []byte("this is not a pdf"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	r := NewPDFRasterizer("", 0, filepath.Join(dir, "images"))

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "absent.pdf")},
		{name: "not a PDF", path: notPDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, err := r.Rasterize(context.Background(), tt.path)
			if err == nil {
				t.Fatal("Rasterize() expected error")
			}
			if len(paths) != 0 {
				t.Errorf("Rasterize() paths = %v, want none", paths)
			}
		})
	}
}

func TestNewPDFRasterizer_Defaults(t *testing.T) {
	r := NewPDFRasterizer("", -1, "/tmp/images")
	if r.binary != "pdftoppm" || r.dpi != DefaultDPI {
		t.Errorf("defaults = %q/%d", r.binary, r.dpi)
	}
}
