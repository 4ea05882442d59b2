// Package markdown renders agent-supplied Markdown text to sanitized HTML
// for Text components.
//
// The renderer is stateless after construction and safe for concurrent use,
// so one instance can serve every session.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// TagClassMap maps an HTML tag name ("p", "h1".."h6", "ul", "ol", "li",
// "blockquote", "a", "strong", "em", "code") to CSS classes added to every
// element of that tag.
type TagClassMap map[string][]string

// Renderer converts Markdown to HTML and sanitizes the result.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New creates a renderer with GitHub-flavoured extensions (tables, task
// lists, strikethrough, autolinks) plus definition lists and footnotes.
func New() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Globally()
	policy.AllowAttrs("type", "checked", "disabled").OnElements("input")

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.DefinitionList,
				extension.Footnote,
			),
		),
		policy: policy,
	}
}

// Render converts src to sanitized HTML, applying classes when non-empty.
// Blank input renders to "".
func (r *Renderer) Render(src string, classes TagClassMap) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}

	source := []byte(src)
	doc := r.md.Parser().Parse(text.NewReader(source))
	if len(classes) > 0 {
		applyClasses(doc, classes)
	}

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, source, doc); err != nil {
		return "", fmt.Errorf("markdown: render: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// Component returns a templ component that renders src. Use it from
// templates that display Text components:
//
//	@renderer.Component(props.Text, nil)
func (r *Renderer) Component(src string, classes TagClassMap) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		out, err := r.Render(src, classes)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	})
}

func applyClasses(doc ast.Node, classes TagClassMap) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if cls := classes[tagOf(n)]; len(cls) > 0 {
			addClasses(n, cls)
		}
		return ast.WalkContinue, nil
	})
}

// tagOf returns the HTML tag goldmark renders n as, or "" for nodes that
// cannot carry attributes.
func tagOf(n ast.Node) string {
	switch t := n.(type) {
	case *ast.Paragraph:
		return "p"
	case *ast.Heading:
		return fmt.Sprintf("h%d", t.Level)
	case *ast.List:
		if t.IsOrdered() {
			return "ol"
		}
		return "ul"
	case *ast.ListItem:
		return "li"
	case *ast.Blockquote:
		return "blockquote"
	case *ast.Link:
		return "a"
	case *ast.Emphasis:
		if t.Level == 2 {
			return "strong"
		}
		return "em"
	case *ast.CodeSpan:
		return "code"
	}
	return ""
}

func addClasses(n ast.Node, cls []string) {
	joined := strings.Join(cls, " ")
	if v, ok := n.AttributeString("class"); ok {
		switch existing := v.(type) {
		case []byte:
			joined = string(existing) + " " + joined
		case string:
			joined = existing + " " + joined
		}
	}
	n.SetAttributeString("class", []byte(joined))
}

// IsMarkdown reports whether text looks like it contains Markdown syntax.
// It is a cheap heuristic for choosing between Render and EscapeHTML.
func IsMarkdown(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	for _, marker := range []string{"##", "**", "__", "```", "`", "- ", "* ", "1. ", "> "} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	if strings.Count(s, "*") >= 2 {
		return true
	}
	return strings.Contains(s, "[") && strings.Contains(s, "]") && strings.Contains(s, "(")
}

// EscapeHTML escapes plain text for inclusion in HTML. Blank input yields "".
func EscapeHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return html.EscapeString(s)
}
