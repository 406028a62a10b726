// Пакет openapi — встроенный OpenAPI контракт bruker-api.
package openapi

import _ "embed"

// Spec — OpenAPI 3.0 документ API.
//
//go:embed openapi.yaml
var Spec []byte
