package source

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Only the parts the engine cannot run without are checked; everything
// else in a Postman export passes through.
const collectionSchema = `{
  "type": "object",
  "required": ["info", "item"],
  "properties": {
    "info": {
      "type": "object",
      "required": ["name"],
      "properties": {"name": {"type": "string"}}
    },
    "item": {"type": "array"}
  }
}`

const environmentSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "values": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["key"],
        "properties": {"key": {"type": "string"}}
      }
    }
  }
}`

var schemas = map[Kind]gojsonschema.JSONLoader{
	KindCollection:  gojsonschema.NewStringLoader(collectionSchema),
	KindEnvironment: gojsonschema.NewStringLoader(environmentSchema),
}

// validate checks a definition against the schema for its kind
func validate(kind Kind, doc []byte) error {
	schema, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("no schema for %s", kind)
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("not a Postman %s: %s", kind, strings.Join(problems, "; "))
}

// unwrap strips the {"collection": {...}} envelope used by Postman API
// exports so both export styles load the same way.
func unwrap(kind Kind, doc []byte) []byte {
	root := gjson.ParseBytes(doc)
	inner := root.Get(string(kind))
	if !inner.IsObject() {
		return doc
	}
	// Only treat it as an envelope when it is the sole top-level key.
	keys := 0
	root.ForEach(func(_, _ gjson.Result) bool {
		keys++
		return keys < 2
	})
	if keys != 1 {
		return doc
	}
	return []byte(inner.Raw)
}
