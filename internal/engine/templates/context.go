package templates

import (
	"bytes"
	"regexp"

	"github.com/flosch/pongo2/v6"
)

// PayloadKey exposes the whole document, including non-object payloads.
const PayloadKey = "payload"

// pongo2 refuses to render with top-level keys that are not plain identifiers.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ToContext turns a JSON body into a render context. Object keys are available
// directly; keys that are not identifiers are only reachable through payload.
func ToContext(body []byte) (pongo2.Context, error) {
	return toContext(body, nil)
}

func toContext(body []byte, scope *orderScope) (pongo2.Context, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return pongo2.Context{PayloadKey: map[string]any{}}, nil
	}

	doc, err := Parse(body)
	if err != nil {
		return nil, err
	}

	ctx := pongo2.Context{PayloadKey: doc.native(scope)}
	if doc.Kind() == KindObject {
		for _, key := range doc.Keys() {
			if !identifierPattern.MatchString(key) {
				continue
			}
			field, _ := doc.Get(key)
			ctx[key] = field.native(scope)
		}
	}
	return ctx, nil
}
