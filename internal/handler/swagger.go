package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bingovintage/loan-engine/docs"
	"github.com/labstack/echo/v4"
	"github.com/swaggo/swag"
)

// OpenAPI3Spec is the swag output rewritten as OpenAPI 3.0
type OpenAPI3Spec struct {
	OpenAPI    string         `json:"openapi"`
	Info       map[string]any `json:"info"`
	Servers    []Server       `json:"servers"`
	Paths      map[string]any `json:"paths"`
	Components map[string]any `json:"components,omitempty"`
}

// Server represents an OpenAPI 3.0 server
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

var openAPIServers = []Server{
	{URL: "http://localhost:8080/api/v1", Description: "Local Development"},
	{URL: "https://loans.bingovintage.ug/api/v1", Description: "Production"},
}

func rewriteRef(ref string) string {
	return strings.Replace(ref, "#/definitions/", "#/components/schemas/", 1)
}

// convertNode walks a Swagger 2.0 fragment rewriting definition refs
func convertNode(node any) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			if ref, ok := value.(string); ok && key == "$ref" {
				out[key] = rewriteRef(ref)
				continue
			}
			out[key] = convertNode(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = convertNode(item)
		}
		return out
	default:
		return node
	}
}

// convertOperation moves body and formData parameters into a requestBody
// and wraps the type fields of the rest into a schema
func convertOperation(op map[string]any) map[string]any {
	out := make(map[string]any, len(op))
	for key, value := range op {
		if key != "parameters" {
			out[key] = convertNode(value)
		}
	}

	params, _ := op["parameters"].([]any)
	var kept []any
	formProps := map[string]any{}
	var formRequired []any
	for _, raw := range params {
		p, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch p["in"] {
		case "body":
			out["requestBody"] = map[string]any{
				"required": p["required"],
				"content": map[string]any{
					"application/json": map[string]any{"schema": convertNode(p["schema"])},
				},
			}
		case "formData":
			prop := map[string]any{"type": p["type"]}
			if p["type"] == "file" {
				prop = map[string]any{"type": "string", "format": "binary"}
			}
			name, _ := p["name"].(string)
			formProps[name] = prop
			if req, _ := p["required"].(bool); req {
				formRequired = append(formRequired, p["name"])
			}
		default:
			kept = append(kept, convertParameter(p))
		}
	}
	if len(formProps) > 0 {
		out["requestBody"] = map[string]any{
			"content": map[string]any{
				"multipart/form-data": map[string]any{
					"schema": map[string]any{"type": "object", "properties": formProps, "required": formRequired},
				},
			},
		}
	}
	if len(kept) > 0 {
		out["parameters"] = kept
	}
	return out
}

func convertParameter(p map[string]any) map[string]any {
	out := make(map[string]any)
	for _, field := range []string{"name", "in", "description", "required"} {
		if val, ok := p[field]; ok {
			out[field] = val
		}
	}

	schema := make(map[string]any)
	for _, field := range []string{"type", "format", "enum", "default", "minimum", "maximum", "items"} {
		if val, ok := p[field]; ok {
			schema[field] = convertNode(val)
		}
	}
	if len(schema) > 0 {
		out["schema"] = schema
	}
	return out
}

func convertPaths(paths map[string]any) map[string]any {
	out := make(map[string]any, len(paths))
	for path, raw := range paths {
		methods, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		converted := make(map[string]any, len(methods))
		for method, op := range methods {
			if m, ok := op.(map[string]any); ok {
				converted[method] = convertOperation(m)
			}
		}
		out[path] = converted
	}
	return out
}

// BuildOpenAPI3 converts a swag generated Swagger 2.0 document
func BuildOpenAPI3(doc string) (*OpenAPI3Spec, error) {
	var swagger2 map[string]any
	if err := json.Unmarshal([]byte(doc), &swagger2); err != nil {
		return nil, err
	}

	info, _ := swagger2["info"].(map[string]any)
	paths, _ := swagger2["paths"].(map[string]any)

	components := make(map[string]any)
	if secDefs, ok := swagger2["securityDefinitions"].(map[string]any); ok {
		components["securitySchemes"] = secDefs
	}
	if definitions, ok := swagger2["definitions"].(map[string]any); ok {
		components["schemas"] = convertNode(definitions)
	}

	return &OpenAPI3Spec{
		OpenAPI:    "3.0.3",
		Info:       info,
		Servers:    openAPIServers,
		Paths:      convertPaths(paths),
		Components: components,
	}, nil
}

// ServeOpenAPI3Spec handles GET /openapi.json
func ServeOpenAPI3Spec(c echo.Context) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		return NewInternalError(c, "Failed to read API documentation")
	}

	spec, err := BuildOpenAPI3(doc)
	if err != nil {
		return NewInternalError(c, "Failed to convert API documentation")
	}
	return c.JSON(http.StatusOK, spec)
}
