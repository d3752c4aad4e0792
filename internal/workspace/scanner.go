package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MarkdownDoc is a markdown file found under a document's output folder.
type MarkdownDoc struct {
	Key     string // document key, the output folder name
	RelPath string // path relative to the output directory
	AbsPath string
}

// MarkdownDocs walks the output directory and returns every markdown file
// that sits inside a document folder. Hidden folders are skipped.
func (l Layout) MarkdownDocs(ctx context.Context) ([]MarkdownDoc, error) {
	if _, err := os.Stat(l.Output); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var docs []MarkdownDoc
	err := filepath.WalkDir(l.Output, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			if path != l.Output && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}

		relPath, err := filepath.Rel(l.Output, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		relPath = filepath.ToSlash(relPath)

		// Files directly under output/ belong to no document.
		key, _, found := strings.Cut(relPath, "/")
		if !found {
			return nil
		}

		docs = append(docs, MarkdownDoc{Key: key, RelPath: relPath, AbsPath: path})
		return nil
	})
	if err != nil {
		return docs, fmt.Errorf("failed to scan output directory: %w", err)
	}

	return docs, nil
}
