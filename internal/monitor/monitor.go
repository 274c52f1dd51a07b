// Package monitor validates incoming purchase requests against a JSON
// schema before any money movement is attempted.
package monitor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// purchaseRequestSchema is the contract for POST /api/purchases bodies.
const purchaseRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["customerId", "operation", "redirectUrl", "subscriptions"],
  "properties": {
    "customerId": {"type": "string", "minLength": 1},
    "operation": {
      "type": "string",
      "enum": ["NewPurchase", "AdditionalSeatsPurchase", "Renewal"]
    },
    "redirectUrl": {"type": "string", "minLength": 1},
    "subscriptions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["offerId", "quantity", "seatPrice"],
        "properties": {
          "subscriptionId": {"type": "string"},
          "offerId": {"type": "string", "minLength": 1},
          "friendlyName": {"type": "string"},
          "quantity": {"type": "integer", "minimum": 1},
          "seatPrice": {"type": "number", "minimum": 0}
        }
      }
    }
  }
}`

// ContractMonitor validates request bodies against the purchase schema.
type ContractMonitor struct {
	schema *gojsonschema.Schema
}

// NewContractMonitor compiles the embedded purchase request schema.
func NewContractMonitor() (*ContractMonitor, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(purchaseRequestSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling purchase request schema: %w", err)
	}
	return &ContractMonitor{schema: schema}, nil
}

// Validate checks the request body. It returns true when valid, or false
// and the list of violations.
func (cm *ContractMonitor) Validate(requestBody []byte) (bool, []string, error) {
	result, err := cm.schema.Validate(gojsonschema.NewBytesLoader(requestBody))
	if err != nil {
		return false, nil, fmt.Errorf("validating request: %w", err)
	}
	if result.Valid() {
		return true, nil, nil
	}
	var violations []string
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return false, violations, nil
}

// FormatErrors joins validation violations into a single message.
func FormatErrors(violations []string) string {
	if len(violations) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(violations, "; ")
}
