package templates

import (
	"bytes"

	"github.com/flosch/pongo2/v6"
)

func init() {
	if err := pongo2.RegisterFilter("tojson", filterToJSON); err != nil {
		panic(err)
	}
}

// filterToJSON renders a payload fragment as compact JSON: {{ payload|tojson }}.
// Objects keep the key order they arrived with.
func filterToJSON(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	var buf bytes.Buffer
	if err := encodeOrdered(&buf, in.Interface()); err != nil {
		return nil, &pongo2.Error{Sender: "filter:tojson", OrigError: err}
	}
	return pongo2.AsSafeValue(buf.String()), nil
}
