// Package schemas embeds the OpenAPI document describing the server API.
package schemas

import _ "embed"

// OpenAPISpec is the raw openapi.yaml, used by the request validation
// middleware.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
