package dom

import "strings"

// Resolve turns an element into a stable reference string that the viewer
// side can re-resolve against its own document. Priority order, first match
// wins: unique id, test automation id, form-field name, tag plus first
// simple class (validated by lookup), tag alone. The result is always a
// non-empty, syntactically valid selector; internal failures fall back to
// the document-root reference.
func Resolve(doc Document, el Element) (ref string) {
	defer func() {
		if recover() != nil {
			ref = RootTarget
		}
	}()
	if el == nil {
		return RootTarget
	}

	if id, ok := el.Attr("id"); ok && id != "" {
		return "#" + EscapeIdent(id)
	}
	if tid, ok := el.Attr("data-testid"); ok && tid != "" {
		return `[data-testid="` + EscapeAttrValue(tid) + `"]`
	}
	if name, ok := el.Attr("name"); ok && name != "" {
		return `[name="` + EscapeAttrValue(name) + `"]`
	}

	tag := strings.ToLower(el.Tag())
	if tag == "" {
		return RootTarget
	}
	if class := firstSimpleClass(el.Classes()); class != "" {
		sel := tag + "." + class
		// Validate by attempting the lookup; an invalid selector falls
		// back to the bare tag.
		if doc != nil {
			if _, err := doc.QuerySelector(sel); err == nil {
				return sel
			}
		}
	}
	return tag
}

// Lookup resolves a reference string against the document. It returns nil
// for the window sentinel, for invalid selectors, and for selectors that
// match nothing.
func Lookup(doc Document, ref string) Element {
	if doc == nil || ref == "" || ref == WindowTarget {
		return nil
	}
	el, err := doc.QuerySelector(ref)
	if err != nil {
		return nil
	}
	return el
}

// firstSimpleClass returns the first class token that is safe to embed in a
// selector: alphabetic-leading with no pseudo or attribute syntax.
func firstSimpleClass(classes []string) string {
	for _, c := range classes {
		if identPattern.MatchString(c) {
			return c
		}
	}
	return ""
}
