// Package workspace resolves the on-disk layout shared by the pipeline stages.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MarkdownFile is the name of the combined transcription inside a document's output folder.
const MarkdownFile = "output_all_pages.md"

// resultTimeLayout is the timestamp suffix of result artifacts.
const resultTimeLayout = "20060102_150405"

// Layout holds the working directories.
type Layout struct {
	Root     string
	Download string // original attachments
	Images   string // transient page images
	Output   string // output/<base>/output_all_pages.md
	Results  string // results/<base>_<timestamp>.json
}

// Ensure creates every directory of the layout.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Root, l.Download, l.Images, l.Output, l.Results} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// UniqueDownloadPath returns a free path for name in the download directory.
// The stem is the document key, so it must be unused by any file in the
// directory, whatever its extension, and by reserved when given. _1, _2, ...
// is appended before the extension until it is free.
func (l Layout) UniqueDownloadPath(name string, reserved func(stem string) bool) (string, error) {
	name = filepath.Base(name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	taken, err := l.downloadStems()
	if err != nil {
		return "", err
	}
	inUse := func(s string) bool {
		return taken[s] || (reserved != nil && reserved(s))
	}

	candidate := stem
	for i := 1; inUse(candidate); i++ {
		candidate = stem + "_" + strconv.Itoa(i)
	}
	return filepath.Join(l.Download, candidate+ext), nil
}

// downloadStems returns the names in the download directory without extensions.
func (l Layout) downloadStems() (map[string]bool, error) {
	entries, err := os.ReadDir(l.Download)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", l.Download, err)
	}
	stems := make(map[string]bool, len(entries))
	for _, e := range entries {
		n := e.Name()
		stems[strings.TrimSuffix(n, filepath.Ext(n))] = true
	}
	return stems, nil
}

// DocumentDir returns the output folder for a document key.
func (l Layout) DocumentDir(key string) string {
	return filepath.Join(l.Output, key)
}

// MarkdownPath returns the combined markdown path for a document key.
func (l Layout) MarkdownPath(key string) string {
	return filepath.Join(l.DocumentDir(key), MarkdownFile)
}

// ResultPath returns the result artifact path for the markdown file md of a
// document key at t. The combined transcription gives <key>_<time>.json;
// any other markdown file adds its stem: <key>_<stem>_<time>.json.
func (l Layout) ResultPath(key, md string, t time.Time) string {
	return filepath.Join(l.Results, resultName(key, md, t)+".json")
}

// ErrorResultPath returns the failure payload path, named like ResultPath.
func (l Layout) ErrorResultPath(key, md string, t time.Time) string {
	return filepath.Join(l.Results, resultName(key, md, t)+".error.json")
}

func resultName(key, md string, t time.Time) string {
	name := key
	if base := filepath.Base(md); md != "" && base != MarkdownFile {
		name += "_" + strings.TrimSuffix(base, filepath.Ext(base))
	}
	return name + "_" + t.Format(resultTimeLayout)
}

// PurgeImages removes every page image from the images directory.
func (l Layout) PurgeImages() (int, error) {
	matches, err := filepath.Glob(filepath.Join(l.Images, "*.png"))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove %s: %w", m, err)
		}
		removed++
	}
	return removed, nil
}

// PendingPDFs lists the PDF files in the download directory in name order.
func (l Layout) PendingPDFs() ([]string, error) {
	entries, err := os.ReadDir(l.Download)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", l.Download, err)
	}

	var pdfs []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		pdfs = append(pdfs, filepath.Join(l.Download, e.Name()))
	}
	sort.Strings(pdfs)
	return pdfs, nil
}
