package validation

import (
	"fmt"
)

// correctableFields are the only score fields an administrative
// correction may touch. Everything else is fixed at ingest.
var correctableFields = map[string]bool{
	"/title":    true,
	"/composer": true,
	"/subtitle": true,
}

// requiredFields may be rewritten but never removed; a catalog entry
// always carries a title and composer, even when empty.
var requiredFields = map[string]bool{
	"/title":    true,
	"/composer": true,
}

// CorrectionValidator validates JSON Patch operations for metadata corrections
type CorrectionValidator struct{}

// NewCorrectionValidator creates a new correction validator
func NewCorrectionValidator() *CorrectionValidator {
	return &CorrectionValidator{}
}

// ValidateOperations validates all patch operations
func (v *CorrectionValidator) ValidateOperations(operations []map[string]interface{}) error {
	if len(operations) == 0 {
		return fmt.Errorf("correction patch is empty")
	}

	for i, op := range operations {
		if err := v.validateOperation(op, i); err != nil {
			return err
		}
	}

	return nil
}

// validateOperation validates a single operation
func (v *CorrectionValidator) validateOperation(op map[string]interface{}, index int) error {
	opType, ok := op["op"].(string)
	if !ok {
		return fmt.Errorf("operation %d: missing or invalid 'op' field", index)
	}

	path, ok := op["path"].(string)
	if !ok {
		return fmt.Errorf("operation %d: missing or invalid 'path' field", index)
	}

	if !correctableFields[path] {
		return fmt.Errorf("operation %d: path %s is not correctable", index, path)
	}

	switch opType {
	case "replace", "add":
		value, ok := op["value"]
		if !ok {
			return fmt.Errorf("operation %d: 'value' required for %s operation", index, opType)
		}
		if _, ok := value.(string); !ok {
			return fmt.Errorf("operation %d: value for %s must be a string, got %T", index, path, value)
		}

	case "remove":
		if requiredFields[path] {
			return fmt.Errorf("operation %d: %s cannot be removed", index, path)
		}

	default:
		return fmt.Errorf("operation %d: unsupported operation type: %s", index, opType)
	}

	return nil
}
