// Package openapi embeds the REST API contract.
package openapi

import _ "embed"

// Spec is the OpenAPI document served at /api/openapi.yaml.
//
//go:embed openapi.yaml
var Spec []byte
