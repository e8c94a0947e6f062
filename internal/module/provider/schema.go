package provider

import (
	"github.com/invopop/jsonschema"
)

// Schema describes the JSON payload accepted by the variant. Attached files
// are not part of the payload and do not appear in it.
func (v Variant) Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}
	s := r.Reflect(v.newInput())
	s.Title = v.Name
	s.Description = "Input for " + v.Model
	return s
}
