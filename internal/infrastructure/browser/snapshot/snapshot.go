// Package snapshot renders page HTML as an indented outline of the elements
// a model can reason about, with a [ref=eN] handle on everything it can act on.
package snapshot

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// RefAttr is set on interactive elements in the live page before the HTML
// is captured.
const RefAttr = "data-kosher-ref"

// InteractiveSelector matches the elements that receive a ref.
const InteractiveSelector = `a[href], button, input:not([type=hidden]), textarea, select, [role=button], [role=link], [role=checkbox], [contenteditable=true]`

type Config struct {
	TagsToSkip    []string
	MaxOutputSize int
}

var DefaultConfig = Config{
	TagsToSkip: []string{
		"script", "style", "noscript", "svg", "iframe",
		"link", "meta", "head", "template",
	},
	MaxOutputSize: 40_000,
}

type Page struct {
	URL  string
	HTML string
}

// Build renders the outline. Title is taken from the document itself.
func Build(page Page, cfg *Config) (string, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}

	doc, err := html.Parse(strings.NewReader(page.HTML))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "- Page URL: %s\n", page.URL)
	fmt.Fprintf(&sb, "- Page Title: %s\n", title(doc))
	sb.WriteString("- Page Snapshot:\n")

	b := &builder{cfg: cfg, out: &sb, labels: collectLabels(doc)}
	if body := findElement(doc, "body"); body != nil {
		b.walk(body, 1)
	}

	return truncate(sb.String(), cfg.MaxOutputSize), nil
}

type builder struct {
	cfg    *Config
	out    *strings.Builder
	labels map[string]string
}

func (b *builder) walk(n *html.Node, depth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if text := collapse(c.Data); text != "" {
				b.line(depth, "text: "+text)
			}
		case html.ElementNode:
			if isOneOf(c.Data, b.cfg.TagsToSkip...) || hidden(c) {
				continue
			}
			if role, name, ok := b.describe(c); ok {
				b.line(depth, formatNode(c, role, name))
				if isLeafRole(role) {
					continue
				}
				b.walk(c, depth+1)
				continue
			}
			b.walk(c, depth)
		}
	}
}

func (b *builder) line(depth int, s string) {
	b.out.WriteString(strings.Repeat("  ", depth))
	b.out.WriteString("- ")
	b.out.WriteString(s)
	b.out.WriteByte('\n')
}

// describe maps an element onto a role and accessible name. Elements with
// no role of their own are flattened into their parent.
func (b *builder) describe(n *html.Node) (role, name string, ok bool) {
	if r := attr(n, "role"); r != "" {
		return r, b.accessibleName(n), true
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return "heading", textContent(n), true
	case "a":
		if attr(n, "href") == "" {
			return "", "", false
		}
		return "link", b.accessibleName(n), true
	case "button":
		return "button", b.accessibleName(n), true
	case "textarea":
		return "textbox", b.accessibleName(n), true
	case "select":
		return "combobox", b.accessibleName(n), true
	case "input":
		switch strings.ToLower(attr(n, "type")) {
		case "submit", "button", "reset":
			name := attr(n, "value")
			if name == "" {
				name = b.accessibleName(n)
			}
			return "button", name, true
		case "checkbox":
			return "checkbox", b.accessibleName(n), true
		case "radio":
			return "radio", b.accessibleName(n), true
		default:
			return "textbox", b.accessibleName(n), true
		}
	case "img":
		return "img", attr(n, "alt"), true
	case "form":
		return "form", attr(n, "aria-label"), true
	case "ul", "ol":
		return "list", "", true
	case "li":
		return "listitem", "", true
	case "p":
		return "paragraph", "", true
	case "label":
		// Labels are folded into the name of the control they describe.
		return "", "", false
	}
	return "", "", false
}

func (b *builder) accessibleName(n *html.Node) string {
	if v := attr(n, "aria-label"); v != "" {
		return v
	}
	if id := attr(n, "id"); id != "" {
		if label, ok := b.labels[id]; ok {
			return label
		}
	}
	if text := textContent(n); text != "" {
		return text
	}
	for _, key := range []string{"placeholder", "title", "name"} {
		if v := attr(n, key); v != "" {
			return v
		}
	}
	return ""
}

func formatNode(n *html.Node, role, name string) string {
	var sb strings.Builder
	sb.WriteString(role)
	if name != "" {
		fmt.Fprintf(&sb, " %q", name)
	}
	if level := headingLevel(n); level > 0 {
		fmt.Fprintf(&sb, " [level=%d]", level)
	}
	if isOneOf(n.Data, "input", "textarea") {
		if attr(n, "type") == "checkbox" || attr(n, "type") == "radio" {
			if hasAttr(n, "checked") {
				sb.WriteString(" [checked]")
			}
		} else if v := attr(n, "value"); v != "" && attr(n, "type") != "password" {
			fmt.Fprintf(&sb, " [value=%q]", v)
		}
	}
	if hasAttr(n, "disabled") {
		sb.WriteString(" [disabled]")
	}
	if ref := attr(n, RefAttr); ref != "" {
		fmt.Fprintf(&sb, " [ref=%s]", ref)
	}
	return sb.String()
}

func isLeafRole(role string) bool {
	return isOneOf(role, "heading", "link", "button", "textbox", "combobox", "checkbox", "radio", "img")
}

func headingLevel(n *html.Node) int {
	if len(n.Data) == 2 && n.Data[0] == 'h' && n.Data[1] >= '1' && n.Data[1] <= '6' {
		return int(n.Data[1] - '0')
	}
	return 0
}

func hidden(n *html.Node) bool {
	if hasAttr(n, "hidden") || attr(n, "aria-hidden") == "true" {
		return true
	}
	if n.Data == "input" && strings.EqualFold(attr(n, "type"), "hidden") {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(attr(n, "style")), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

func collectLabels(doc *html.Node) map[string]string {
	labels := make(map[string]string)
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "label" {
			if target := attr(n, "for"); target != "" {
				labels[target] = textContent(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return labels
}

func title(doc *html.Node) string {
	if t := findElement(doc, "title"); t != nil {
		return textContent(t)
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		if n.Type == html.ElementNode && isOneOf(n.Data, "script", "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return collapse(sb.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxSize int) string {
	if maxSize > 0 && len(s) > maxSize {
		return s[:maxSize] + "\n- text: [snapshot truncated]\n"
	}
	return s
}

func isOneOf(s string, candidates ...string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}
