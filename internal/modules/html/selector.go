package html

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// Selector is a single compound selector of the form tag, .class, #id or a
// combination such as div.note#intro.
type Selector struct {
	Tag     string
	ID      string
	Classes []string
}

// ParseSelector parses s. An empty selector matches paragraphs.
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Selector{Tag: "p"}, nil
	}
	if strings.ContainsAny(s, " >+~[:,") {
		return Selector{}, fmt.Errorf("unsupported selector %q", s)
	}
	var sel Selector
	rest := s
	if i := strings.IndexAny(rest, ".#"); i != 0 {
		if i < 0 {
			i = len(rest)
		}
		sel.Tag = strings.ToLower(rest[:i])
		rest = rest[i:]
	}
	for rest != "" {
		kind := rest[0]
		rest = rest[1:]
		end := strings.IndexAny(rest, ".#")
		if end < 0 {
			end = len(rest)
		}
		name := rest[:end]
		rest = rest[end:]
		if name == "" {
			return Selector{}, fmt.Errorf("unsupported selector %q", s)
		}
		if kind == '#' {
			sel.ID = name
		} else {
			sel.Classes = append(sel.Classes, name)
		}
	}
	return sel, nil
}

// Match reports whether element n satisfies the selector.
func (s Selector) Match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.Tag != "" && n.Data != s.Tag {
		return false
	}
	if s.ID != "" && getAttr(n, "id") != s.ID {
		return false
	}
	classes := strings.Fields(getAttr(n, "class"))
	for _, c := range s.Classes {
		if !slices.Contains(classes, c) {
			return false
		}
	}
	return true
}
