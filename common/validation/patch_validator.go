package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// MaxPatchOperations bounds a single tag patch; change events carry one or two
const MaxPatchOperations = 8

var (
	indexPath = regexp.MustCompile(`^/(0|[1-9][0-9]*|-)$`)
	tagIDPath = regexp.MustCompile(`^/(0|[1-9][0-9]*)/id$`)
)

// PatchValidator validates JSON Patch documents aimed at a tag list
type PatchValidator struct{}

// NewPatchValidator creates a new patch validator
func NewPatchValidator() *PatchValidator {
	return &PatchValidator{}
}

// Validate decodes a patch and validates every operation
func (v *PatchValidator) Validate(patchJSON []byte) error {
	var operations []map[string]interface{}
	if err := json.Unmarshal(patchJSON, &operations); err != nil {
		return fmt.Errorf("patch validation failed: not an operation array: %w", err)
	}
	return v.ValidateOperations(operations)
}

// ValidateOperations validates all patch operations
func (v *PatchValidator) ValidateOperations(operations []map[string]interface{}) error {
	if len(operations) == 0 {
		return fmt.Errorf("patch validation failed: no operations")
	}
	if len(operations) > MaxPatchOperations {
		return fmt.Errorf("patch validation failed: %d operations exceeds limit of %d", len(operations), MaxPatchOperations)
	}

	for i, op := range operations {
		if err := v.validateOperation(op, i); err != nil {
			return err
		}
	}
	return nil
}

// validateOperation validates a single operation
func (v *PatchValidator) validateOperation(op map[string]interface{}, index int) error {
	opType, ok := op["op"].(string)
	if !ok {
		return fmt.Errorf("operation %d: missing or invalid 'op' field", index)
	}

	path, ok := op["path"].(string)
	if !ok {
		return fmt.Errorf("operation %d: missing or invalid 'path' field", index)
	}

	switch opType {
	case "add":
		if !indexPath.MatchString(path) {
			return fmt.Errorf("operation %d: add must target a list slot, got %q", index, path)
		}
		value, ok := op["value"]
		if !ok {
			return fmt.Errorf("operation %d: 'value' required for add operation", index)
		}
		return v.validateTagValue(value, index)

	case "remove":
		if !indexPath.MatchString(path) || path == "/-" {
			return fmt.Errorf("operation %d: remove must target a list index, got %q", index, path)
		}

	case "test":
		if !tagIDPath.MatchString(path) {
			return fmt.Errorf("operation %d: test must target a tag id, got %q", index, path)
		}
		if _, ok := op["value"].(string); !ok {
			return fmt.Errorf("operation %d: test value must be a tag id string", index)
		}

	default:
		return fmt.Errorf("operation %d: unsupported operation type: %s", index, opType)
	}

	return nil
}

// validateTagValue validates a tag value in a patch
func (v *PatchValidator) validateTagValue(value interface{}, opIndex int) error {
	tagValue, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("operation %d: tag value must be an object, got %T", opIndex, value)
	}

	if id, _ := tagValue["id"].(string); id == "" {
		return fmt.Errorf("operation %d: tag must have 'id' field (string)", opIndex)
	}
	if text, _ := tagValue["tag_text"].(string); text == "" {
		return fmt.Errorf("operation %d: tag must have 'tag_text' field (string)", opIndex)
	}
	if _, ok := tagValue["record_id"].(string); !ok {
		return fmt.Errorf("operation %d: tag must have 'record_id' field (string)", opIndex)
	}

	return nil
}
