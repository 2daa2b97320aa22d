// Package specgen derives an OpenAPI document from the function registry.
// It is a pure transform: given the same metadata and descriptor list the
// output is byte-identical.
package specgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/actionmesh-labs/actionmesh-go/registry"
)

// Meta carries the document-level fields of the manifest.
type Meta struct {
	Title    string
	Version  string
	Servers  []string
	BasePath string
}

// typeMapping maps manifest data types to OpenAPI schema types. Unknown
// types fall back to string.
var typeMapping = map[string]string{
	"string":   "string",
	"integer":  "integer",
	"float":    "number",
	"boolean":  "boolean",
	"date":     "string",
	"datetime": "string",
	"list":     "array",
	"dict":     "object",
}

const defaultSummary = "No summary provided"

// Generate builds the OpenAPI YAML document for the given functions.
func Generate(meta Meta, functions []registry.FunctionDescriptor) (string, error) {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:   meta.Title,
			Version: meta.Version,
		},
		Paths: openapi3.NewPaths(),
	}
	for _, server := range meta.Servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{URL: server})
	}

	for _, fn := range functions {
		path := meta.BasePath + fn.Path
		method := strings.ToUpper(fn.Method)

		op := &openapi3.Operation{
			Summary:     summaryOf(fn),
			OperationID: fn.FunctionName,
			Responses:   buildResponses(fn.Response),
		}

		for _, param := range fn.Parameters {
			if isBodyParam(method, param) {
				addBodyProperty(op, param)
				continue
			}
			op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
				Value: &openapi3.Parameter{
					Name:     param.Name,
					In:       param.In,
					Required: param.Required,
					Schema:   openapi3.NewSchemaRef("", schemaOfType(param.Type)),
				},
			})
		}

		item := doc.Paths.Value(path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(path, item)
		}
		item.SetOperation(method, op)
	}

	return marshalYAML(doc)
}

func summaryOf(fn registry.FunctionDescriptor) string {
	if strings.TrimSpace(fn.Summary) == "" {
		return defaultSummary
	}
	return fn.Summary
}

// isBodyParam reports whether the parameter travels in a JSON request body
// rather than as a named parameter entry.
func isBodyParam(method string, param registry.ParameterSpec) bool {
	switch method {
	case registry.MethodPost, registry.MethodPut, registry.MethodPatch:
		return param.In == registry.InBody
	}
	return false
}

// addBodyProperty folds one body parameter into the operation's JSON request
// body object schema, creating the body on first use.
func addBodyProperty(op *openapi3.Operation, param registry.ParameterSpec) {
	if op.RequestBody == nil {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content: openapi3.NewContentWithJSONSchema(&openapi3.Schema{
					Type:       &openapi3.Types{"object"},
					Properties: openapi3.Schemas{},
				}),
			},
		}
	}
	schema := schemaOfType(param.Type)
	if len(param.Properties) > 0 {
		schema.Properties = propertySchemas(param.Properties)
	}
	body := op.RequestBody.Value.Content.Get("application/json").Schema.Value
	body.Properties[param.Name] = openapi3.NewSchemaRef("", schema)
}

// propertySchemas renders nested property specs recursively.
func propertySchemas(props []registry.PropertySpec) openapi3.Schemas {
	out := openapi3.Schemas{}
	for _, prop := range props {
		mapped := mapType(prop.Type)
		switch {
		case mapped == "array" && prop.ChildType != "":
			item := schemaOfType(prop.ChildType)
			if mapType(prop.ChildType) == "object" && len(prop.Properties) > 0 {
				item.Properties = propertySchemas(prop.Properties)
			}
			out[prop.Name] = openapi3.NewSchemaRef("", &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: openapi3.NewSchemaRef("", item),
			})
		case mapped == "object" && len(prop.Properties) > 0:
			out[prop.Name] = openapi3.NewSchemaRef("", &openapi3.Schema{
				Type:       &openapi3.Types{"object"},
				Properties: propertySchemas(prop.Properties),
			})
		default:
			out[prop.Name] = openapi3.NewSchemaRef("", schemaOfType(prop.Type))
		}
	}
	return out
}

func buildResponses(resp registry.ResponseSpec) *openapi3.Responses {
	desc := "Success"
	success := &openapi3.Response{Description: &desc}

	switch strings.ToLower(resp.Type) {
	case registry.ResponseList:
		success.Content = openapi3.NewContentWithJSONSchema(&openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: openapi3.NewSchemaRef("", listItemSchema(resp)),
		})
	case registry.ResponseDict:
		success.Content = openapi3.NewContentWithJSONSchema(&openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: propertySchemas(resp.Properties),
		})
	case registry.ResponsePrimitive:
		success.Content = openapi3.NewContentWithJSONSchema(schemaOfType(resp.ChildType))
	}

	return openapi3.NewResponses(
		openapi3.WithStatus(200, &openapi3.ResponseRef{Value: success}),
	)
}

func listItemSchema(resp registry.ResponseSpec) *openapi3.Schema {
	if mapType(resp.ChildType) == "object" && len(resp.Properties) > 0 {
		return &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: propertySchemas(resp.Properties),
		}
	}
	return schemaOfType(resp.ChildType)
}

func schemaOfType(t string) *openapi3.Schema {
	return &openapi3.Schema{Type: &openapi3.Types{mapType(t)}}
}

func mapType(t string) string {
	if mapped, ok := typeMapping[strings.ToLower(strings.TrimSpace(t))]; ok {
		return mapped
	}
	return "string"
}

// marshalYAML round-trips the document through JSON into a generic map and
// emits YAML. Both stages order map keys, so output is deterministic.
func marshalYAML(doc *openapi3.T) (string, error) {
	raw, err := doc.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encode openapi document: %w", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("decode openapi document: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("render openapi yaml: %w", err)
	}
	return string(out), nil
}
