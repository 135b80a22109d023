package analysis

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed response.schema.json
var responseSchema string

var compiledSchema *gojsonschema.Schema

func init() {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(responseSchema))
	if err != nil {
		panic(fmt.Sprintf("analysis: invalid embedded response schema: %v", err))
	}
	compiledSchema = schema
}

// Diagnose lists the ways a raw payload deviates from the documented response shape.
// Deviations never stop normalization; they only explain which fields were defaulted.
func Diagnose(raw []byte) []string {
	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return []string{fmt.Sprintf("(root): %v", err)}
	}

	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		issues = append(issues, fmt.Sprintf("%s: %s", field, desc.Description()))
	}

	return issues
}
