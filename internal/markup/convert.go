// Package markup renders GitHub-flavored Markdown as Jira wiki markup.
// Every body or comment written to Jira passes through here.
package markup

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// maxBodyLen caps any single body of text. Jira limits total text to 32KB;
// half of that leaves room for the description template and markers.
const maxBodyLen = 16384

// Converter translates markdown to Jira wiki markup by walking the
// goldmark AST. It is pure; the same input always yields the same output.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter returns a Converter with GFM extensions (tables,
// strikethrough, task lists) enabled.
func NewConverter() *Converter {
	return &Converter{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Convert renders markdown as Jira wiki markup, truncating oversized
// output with a trailing "[...]".
func (c *Converter) Convert(markdown string) string {
	if markdown == "" {
		return "\n"
	}

	src := []byte(markdown)
	doc := c.md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	for child := doc.FirstChild(); child != nil; child = child.NextSibling() {
		renderBlock(&buf, child, src, 0)
	}

	out := strings.TrimRight(buf.String(), "\n")
	if len(out) > maxBodyLen {
		// Cut and add newlines to encourage the end of any open formatting block.
		out = out[:maxBodyLen-8] + "\n\n[...]"
	}
	return out
}

// renderBlock renders one block-level node followed by a blank line.
// listDepth tracks nesting for list item markers.
func renderBlock(buf *bytes.Buffer, n ast.Node, src []byte, listDepth int) {
	switch node := n.(type) {
	case *ast.Heading:
		fmt.Fprintf(buf, "h%d. %s\n\n", node.Level, renderInlines(node, src))

	case *ast.Paragraph:
		buf.WriteString(renderInlines(node, src))
		buf.WriteString("\n\n")

	case *ast.TextBlock:
		buf.WriteString(renderInlines(node, src))
		buf.WriteString("\n")

	case *ast.Blockquote:
		var inner bytes.Buffer
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			renderBlock(&inner, child, src, listDepth)
		}
		fmt.Fprintf(buf, "{quote}\n%s{quote}\n\n", inner.String())

	case *ast.FencedCodeBlock:
		lang := string(node.Language(src))
		if lang != "" {
			fmt.Fprintf(buf, "{code:%s}\n", lang)
		} else {
			buf.WriteString("{code}\n")
		}
		writeLines(buf, node, src)
		buf.WriteString("{code}\n\n")

	case *ast.CodeBlock:
		buf.WriteString("{code}\n")
		writeLines(buf, node, src)
		buf.WriteString("{code}\n\n")

	case *ast.List:
		renderList(buf, node, src, listDepth)
		if listDepth == 0 {
			buf.WriteString("\n")
		}

	case *ast.ThematicBreak:
		buf.WriteString("----\n\n")

	case *ast.HTMLBlock:
		writeLines(buf, node, src)
		buf.WriteString("\n")

	case *east.Table:
		renderTable(buf, node, src)
		buf.WriteString("\n")

	default:
		// Unknown block: render its inline content rather than dropping it.
		buf.WriteString(renderInlines(n, src))
		buf.WriteString("\n\n")
	}
}

// renderList renders a (possibly nested) list. Jira uses one marker
// character per nesting level: "**" for a second-level bullet, "##" for a
// second-level numbered item.
func renderList(buf *bytes.Buffer, list *ast.List, src []byte, depth int) {
	marker := "*"
	if list.IsOrdered() {
		marker = "#"
	}
	prefix := strings.Repeat(marker, depth+1)

	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var inner bytes.Buffer
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			if nested, ok := child.(*ast.List); ok {
				renderList(&inner, nested, src, depth+1)
				continue
			}
			renderBlock(&inner, child, src, depth+1)
		}
		content := strings.TrimRight(inner.String(), "\n")
		if content == "" {
			continue
		}
		lines := strings.SplitN(content, "\n", 2)
		fmt.Fprintf(buf, "%s %s\n", prefix, lines[0])
		if len(lines) > 1 {
			buf.WriteString(lines[1])
			buf.WriteString("\n")
		}
	}
}

// renderTable renders a GFM table: "||h||h||" header row, "|c|c|" body rows.
func renderTable(buf *bytes.Buffer, table *east.Table, src []byte) {
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		header := false
		if _, ok := row.(*east.TableHeader); ok {
			header = true
		}
		sep := "|"
		if header {
			sep = "||"
		}
		buf.WriteString(sep)
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			content := renderInlines(cell, src)
			if content == "" {
				content = " "
			}
			buf.WriteString(content)
			buf.WriteString(sep)
		}
		buf.WriteString("\n")
	}
}

// renderInlines renders the inline children of a node.
func renderInlines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		renderInline(&buf, child, src)
	}
	return buf.String()
}

func renderInline(buf *bytes.Buffer, n ast.Node, src []byte) {
	switch node := n.(type) {
	case *ast.Text:
		buf.Write(node.Segment.Value(src))
		if node.SoftLineBreak() || node.HardLineBreak() {
			buf.WriteString("\n")
		}

	case *ast.String:
		buf.Write(node.Value)

	case *ast.Emphasis:
		mark := "_"
		if node.Level == 2 {
			mark = "*"
		}
		buf.WriteString(mark)
		buf.WriteString(renderInlines(node, src))
		buf.WriteString(mark)

	case *ast.CodeSpan:
		fmt.Fprintf(buf, "{{%s}}", renderInlines(node, src))

	case *ast.Link:
		fmt.Fprintf(buf, "[%s|%s]", renderInlines(node, src), string(node.Destination))

	case *ast.AutoLink:
		// Jira auto-links bare URLs.
		buf.Write(node.URL(src))

	case *ast.Image:
		fmt.Fprintf(buf, "!%s!", string(node.Destination))

	case *ast.RawHTML:
		for i := 0; i < node.Segments.Len(); i++ {
			segment := node.Segments.At(i)
			buf.Write(segment.Value(src))
		}

	case *east.Strikethrough:
		fmt.Fprintf(buf, "-%s-", renderInlines(node, src))

	case *east.TaskCheckBox:
		if node.IsChecked {
			buf.WriteString("(/) ")
		} else {
			buf.WriteString("(x) ")
		}

	default:
		buf.WriteString(renderInlines(n, src))
	}
}

// writeLines copies a node's raw source lines into the buffer.
func writeLines(buf *bytes.Buffer, n ast.Node, src []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		buf.Write(segment.Value(src))
	}
}
