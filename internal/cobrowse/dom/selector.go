package dom

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher reports whether an element matches a compiled selector.
type Matcher func(Element) bool

var identPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// CompileSelector compiles the selector grammar shared by every Document
// implementation: "#id", "[attr=\"v\"]", "tag[attr=\"v\"]", "tag.class",
// and "tag". Returns an error for anything it cannot parse, mirroring the
// querySelector throw for invalid selectors.
func CompileSelector(selector string) (Matcher, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, fmt.Errorf("empty selector")
	}
	if selector == WindowTarget {
		return nil, fmt.Errorf("%q is not a queryable selector", WindowTarget)
	}

	if strings.HasPrefix(selector, "#") {
		id, err := unescapeIdent(selector[1:])
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", selector, err)
		}
		return func(el Element) bool {
			v, ok := el.Attr("id")
			return ok && v == id
		}, nil
	}

	if i := strings.IndexByte(selector, '['); i >= 0 {
		tag := strings.ToLower(selector[:i])
		if tag != "" && !identPattern.MatchString(tag) {
			return nil, fmt.Errorf("selector %q: invalid tag", selector)
		}
		name, value, err := parseAttrClause(selector[i:])
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", selector, err)
		}
		return func(el Element) bool {
			if tag != "" && el.Tag() != tag {
				return false
			}
			v, ok := el.Attr(name)
			return ok && v == value
		}, nil
	}

	if i := strings.IndexByte(selector, '.'); i >= 0 {
		tag := strings.ToLower(selector[:i])
		class := selector[i+1:]
		if tag != "" && !identPattern.MatchString(tag) {
			return nil, fmt.Errorf("selector %q: invalid tag", selector)
		}
		if !identPattern.MatchString(class) {
			return nil, fmt.Errorf("selector %q: invalid class", selector)
		}
		return func(el Element) bool {
			if tag != "" && el.Tag() != tag {
				return false
			}
			for _, c := range el.Classes() {
				if c == class {
					return true
				}
			}
			return false
		}, nil
	}

	tag := strings.ToLower(selector)
	if tag == "*" {
		return func(Element) bool { return true }, nil
	}
	if !identPattern.MatchString(tag) {
		return nil, fmt.Errorf("selector %q: invalid tag", selector)
	}
	return func(el Element) bool { return el.Tag() == tag }, nil
}

// parseAttrClause parses `[name="value"]`, returning name and the unescaped
// value.
func parseAttrClause(s string) (name, value string, err error) {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return "", "", fmt.Errorf("malformed attribute clause")
	}
	body := s[1 : len(s)-1]
	eq := strings.IndexByte(body, '=')
	if eq < 0 {
		return "", "", fmt.Errorf("attribute clause missing =")
	}
	name = body[:eq]
	if !identPattern.MatchString(name) && !strings.HasPrefix(name, "data-") {
		return "", "", fmt.Errorf("invalid attribute name %q", name)
	}
	raw := body[eq+1:]
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return "", "", fmt.Errorf("attribute value must be double-quoted")
	}
	value = strings.ReplaceAll(raw[1:len(raw)-1], `\"`, `"`)
	return name, value, nil
}

// EscapeIdent escapes an attribute value for embedding as a CSS identifier
// (the CSS.escape equivalent): a leading digit becomes a hex escape, any
// other unsafe character is backslash-escaped.
func EscapeIdent(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				fmt.Fprintf(&b, `\%x `, r)
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EscapeAttrValue escapes an attribute value for embedding inside a
// double-quoted attribute selector.
func EscapeAttrValue(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// unescapeIdent inverts EscapeIdent.
func unescapeIdent(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty identifier")
	}
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\\' {
			b.WriteRune(r)
			continue
		}
		i++
		if i >= len(runes) {
			return "", fmt.Errorf("dangling escape in identifier")
		}
		if isHexDigit(runes[i]) {
			// Hex escape: consume hex digits up to the terminating space.
			start := i
			for i < len(runes) && isHexDigit(runes[i]) {
				i++
			}
			var code int
			if _, err := fmt.Sscanf(string(runes[start:i]), "%x", &code); err != nil {
				return "", fmt.Errorf("bad hex escape in identifier")
			}
			b.WriteRune(rune(code))
			if i < len(runes) && runes[i] != ' ' {
				i-- // no terminating space; reprocess this rune
			}
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String(), nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
