// Package frontmatter splits, parses and serializes YAML front matter
// delimited by "---" lines.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates content started with a front matter
// delimiter but never closed it.
var ErrMissingClosingDelimiter = errors.New("yaml front matter start delimiter found but closing delimiter is missing")

// Parts is content split at its front matter delimiters.
type Parts struct {
	// Raw is the YAML between the delimiters, without them.
	Raw []byte
	// Body is everything after the closing delimiter.
	Body []byte
	// Present reports whether the content had front matter at all.
	Present bool
	// Newline is "\r\n" when the content uses CRLF line endings, else "\n".
	Newline string
}

// Split separates front matter from the body. Content that does not start
// with a delimiter line is returned as the body.
func Split(content []byte) (Parts, error) {
	nl := detectNewline(content)
	parts := Parts{Body: content, Newline: nl}

	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return parts, nil
	}
	rest := content[len(open):]

	// Empty front matter: the closing delimiter follows immediately.
	if bytes.HasPrefix(rest, open) || bytes.Equal(rest, []byte("---")) {
		parts.Present = true
		parts.Raw = []byte{}
		parts.Body = rest[min(len(open), len(rest)):]
		return parts, nil
	}

	closing := []byte(nl + "---")
	for offset := 0; ; {
		idx := bytes.Index(rest[offset:], closing)
		if idx < 0 {
			return Parts{Newline: nl}, ErrMissingClosingDelimiter
		}
		end := offset + idx
		after := rest[end+len(closing):]
		switch {
		case len(after) == 0:
			parts.Body = []byte{}
		case bytes.HasPrefix(after, []byte(nl)):
			parts.Body = after[len(nl):]
		default:
			// "---" followed by more text is not a delimiter line.
			offset = end + len(closing)
			continue
		}
		parts.Present = true
		parts.Raw = rest[:end+len(nl)]
		return parts, nil
	}
}

// Join reassembles content from raw YAML and a body. Without front matter the
// body is returned unchanged.
func Join(p Parts) []byte {
	if !p.Present {
		return p.Body
	}
	nl := p.Newline
	if nl == "" {
		nl = "\n"
	}
	delim := []byte("---" + nl)
	out := make([]byte, 0, 2*len(delim)+len(p.Raw)+len(p.Body))
	out = append(out, delim...)
	out = append(out, p.Raw...)
	out = append(out, delim...)
	return append(out, p.Body...)
}

// ParseYAML parses raw YAML into a map. Empty input gives an empty map.
func ParseYAML(raw []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Parse splits content and parses its front matter.
func Parse(content []byte) (map[string]any, []byte, error) {
	parts, err := Split(content)
	if err != nil {
		return nil, nil, err
	}
	fields, err := ParseYAML(parts.Raw)
	if err != nil {
		return nil, nil, err
	}
	return fields, parts.Body, nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
