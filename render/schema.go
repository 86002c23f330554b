package render

import (
	"github.com/invopop/jsonschema"

	"github.com/RyanBlaney/sonido-tonic/analysis"
)

// Schema returns the JSON Schema of the analysis result as written by JSON
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	s := r.Reflect(&analysis.Result{})
	s.Title = "sonido-tonic analysis result"
	return s
}

// KeySchema returns the JSON Schema of the chord-side key description
func KeySchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	s := r.Reflect(&analysis.KeyInfo{})
	s.Title = "sonido-tonic key description"
	return s
}
