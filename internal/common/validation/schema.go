// internal/common/validation/schema.go

// Package validation checks reasoning-service output against the employee
// record shape before any candidate is allowed into the pipeline.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// employeeRecordSchema describes one catalog entry as stored in the vector
// index metadata. The reasoning service must reproduce these chunks verbatim,
// so extra fields are tolerated but the identity fields are required.
const employeeRecordSchema = `{
	"type": "object",
	"properties": {
		"Employee ID":             {"type": "string", "minLength": 1},
		"Name":                    {"type": "string"},
		"Email":                   {"type": "string"},
		"Department":              {"type": "string", "minLength": 1},
		"Role/title":              {"type": "string"},
		"Primary skills":          {"type": "string"},
		"Secondary skills":        {"type": "string"},
		"Experience years":        {"type": "integer"},
		"Problem domains handled": {"type": "string"}
	},
	"required": ["Employee ID", "Department"]
}`

var compiledEmployeeSchema *gojsonschema.Schema

func init() {
	var err error
	compiledEmployeeSchema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(employeeRecordSchema))
	if err != nil {
		panic(fmt.Sprintf("employee record schema does not compile: %v", err))
	}
}

// EmployeeRecord validates a single JSON document against the employee record
// schema. Returns nil when the document is acceptable.
func EmployeeRecord(doc []byte) error {
	result, err := compiledEmployeeSchema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("invalid JSON document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return fmt.Errorf("employee record validation failed: %s", strings.Join(msgs, "; "))
}
