// Package render turns PDF documents into page images.
package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"docflow/internal/contextutil"
)

// DefaultDPI is the rendering resolution used when none is configured.
const DefaultDPI = 300

var pageSuffix = regexp.MustCompile(`_page_(\d+)\.png$`)

// PDFRasterizer renders each page of a PDF to <base>_page_<n>.png using pdftoppm.
type PDFRasterizer struct {
	binary string
	dpi    int
	outDir string
}

// NewPDFRasterizer creates a rasterizer writing into outDir.
func NewPDFRasterizer(binary string, dpi int, outDir string) *PDFRasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &PDFRasterizer{binary: binary, dpi: dpi, outDir: outDir}
}

// PageCount validates the PDF and returns its number of pages.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(f, conf)
	if err != nil {
		return 0, fmt.Errorf("invalid PDF %s: %w", filepath.Base(path), err)
	}
	if n == 0 {
		return 0, fmt.Errorf("PDF %s has no pages", filepath.Base(path))
	}
	return n, nil
}

// Rasterize renders every page and returns the image paths in page order.
func (r *PDFRasterizer) Rasterize(ctx context.Context, pdfPath string) ([]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	pages, err := PageCount(pdfPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	paths := make([]string, 0, pages)

	for page := 1; page <= pages; page++ {
		select {
		case <-ctx.Done():
			return paths, ctx.Err()
		default:
		}

		out, err := r.renderPage(ctx, pdfPath, base, page)
		if err != nil {
			return paths, err
		}
		paths = append(paths, out)
	}

	logger.DebugContext(ctx, "rasterized PDF", "file", filepath.Base(pdfPath), "pages", pages, "dpi", r.dpi)
	return SortPagePaths(paths), nil
}

// renderPage runs pdftoppm for a single page.
// -singlefile writes <prefix>.png without pdftoppm's own page suffix.
func (r *PDFRasterizer) renderPage(ctx context.Context, pdfPath, base string, page int) (string, error) {
	prefix := filepath.Join(r.outDir, base+"_page_"+strconv.Itoa(page))
	pageStr := strconv.Itoa(page)

	cmd := exec.CommandContext(ctx, r.binary,
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(r.dpi),
		"-singlefile",
		pdfPath,
		prefix,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("pdftoppm failed on page %d: %w (output: %s)", page, err, strings.TrimSpace(string(output)))
	}

	out := prefix + ".png"
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("pdftoppm did not create page %d: %w", page, err)
	}
	return out, nil
}

// SortPagePaths orders page images by their numeric page suffix.
// Paths without a suffix keep their relative order after numbered ones.
func SortPagePaths(paths []string) []string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, iok := PageNumber(sorted[i])
		pj, jok := PageNumber(sorted[j])
		if iok != jok {
			return iok
		}
		return pi < pj
	})
	return sorted
}

// PageNumber returns the page number encoded in a page image name.
func PageNumber(path string) (int, bool) {
	m := pageSuffix.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
