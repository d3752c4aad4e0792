// Package markdown validates transcribed documents and summarizes their structure.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const minContentLength = 50

// Metadata describes the structure of a markdown document.
type Metadata struct {
	TotalLength     int      `json:"total_length"`
	Headers         []string `json:"headers"`
	Sections        []string `json:"sections"`
	Tables          int      `json:"tables"`
	TableRows       int      `json:"table_rows"`
	Checked         int      `json:"checked"`
	Unchecked       int      `json:"unchecked"`
	RadioSelected   int      `json:"radio_selected"`
	RadioUnselected int      `json:"radio_unselected"`
}

var parser = goldmark.New(goldmark.WithExtensions(extension.Table))

// Validate reports whether content looks like a usable transcription:
// non-empty, and either carrying a heading or longer than 50 characters.
func Validate(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}
	if len(trimmed) > minContentLength {
		return true
	}
	return hasHeading(parse(trimmed))
}

// Inspect walks the document and collects its metadata.
func Inspect(content string) Metadata {
	meta := Metadata{
		TotalLength: len(content),
		Headers:     []string{},
		Sections:    []string{},
	}
	if strings.TrimSpace(content) == "" {
		return meta
	}

	source := []byte(content)
	doc := parse(content)

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			title := nodeText(node, source)
			meta.Headers = append(meta.Headers, strings.Repeat("#", node.Level)+" "+title)
			if node.Level == 2 {
				meta.Sections = append(meta.Sections, title)
			}
			return ast.WalkSkipChildren, nil
		case *east.Table:
			meta.Tables++
		case *east.TableRow:
			meta.TableRows++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	// Form controls are plain text inside paragraphs and table cells, so
	// they are counted per line rather than from the AST.
	for _, line := range strings.Split(content, "\n") {
		meta.Checked += strings.Count(line, "[x]") + strings.Count(line, "[X]")
		meta.Unchecked += strings.Count(line, "[ ]")
		meta.RadioSelected += strings.Count(line, "(•)")
		meta.RadioUnselected += strings.Count(line, "( )")
	}

	return meta
}

func parse(content string) ast.Node {
	return parser.Parser().Parse(text.NewReader([]byte(content)))
}

func hasHeading(doc ast.Node) bool {
	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if _, ok := n.(*ast.Heading); ok && entering {
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}

// nodeText concatenates the text segments below n.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
