package scrape

import (
	"strings"

	"golang.org/x/net/html"
)

// simpleSelector is one step of a descendant selector chain: an
// optional tag name plus any number of #id and .class qualifiers.
type simpleSelector struct {
	tag     string
	id      string
	classes []string
}

// parseSelector splits a selector like "div.result a.title" into its
// descendant steps. Unsupported syntax simply produces steps that match
// nothing, which degrades to zero extracted items.
func parseSelector(s string) []simpleSelector {
	fields := strings.Fields(s)
	chain := make([]simpleSelector, 0, len(fields))
	for _, f := range fields {
		chain = append(chain, parseSimple(f))
	}
	return chain
}

func parseSimple(s string) simpleSelector {
	var sel simpleSelector
	for s != "" {
		marker := byte(0)
		switch s[0] {
		case '#', '.':
			marker = s[0]
			s = s[1:]
		}
		end := strings.IndexAny(s, "#.")
		if end == -1 {
			end = len(s)
		}
		part := s[:end]
		s = s[end:]
		switch marker {
		case '#':
			sel.id = part
		case '.':
			if part != "" {
				sel.classes = append(sel.classes, part)
			}
		default:
			sel.tag = strings.ToLower(part)
		}
	}
	return sel
}

func (sel simpleSelector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if sel.tag != "" && sel.tag != "*" && n.Data != sel.tag {
		return false
	}
	if sel.id != "" && attrVal(n, "id") != sel.id {
		return false
	}
	if len(sel.classes) > 0 {
		have := strings.Fields(attrVal(n, "class"))
		for _, want := range sel.classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// selectAll returns the nodes under root matching the selector chain,
// in document order.
func selectAll(root *html.Node, selector string) []*html.Node {
	chain := parseSelector(selector)
	if len(chain) == 0 {
		return nil
	}
	scopes := []*html.Node{root}
	for _, step := range chain {
		var next []*html.Node
		seen := make(map[*html.Node]struct{})
		for _, scope := range scopes {
			walk(scope, func(n *html.Node) {
				if n == scope || !step.matches(n) {
					return
				}
				if _, dup := seen[n]; dup {
					return
				}
				seen[n] = struct{}{}
				next = append(next, n)
			})
		}
		scopes = next
	}
	return scopes
}

// findFirst returns the first node under scope matching the selector.
func findFirst(scope *html.Node, selector string) *html.Node {
	matched := selectAll(scope, selector)
	if len(matched) == 0 {
		return nil
	}
	return matched[0]
}

func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText collects the concatenated text content of n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
