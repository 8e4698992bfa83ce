package tagsync

import (
	"encoding/json"
	"fmt"

	"github.com/lyzr/explorer/common/models"
)

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// AddPatch describes prepending tag to a record's tag array
func AddPatch(tag models.Tag) (json.RawMessage, error) {
	tag.Pending = false
	return json.Marshal([]patchOp{
		{Op: "add", Path: "/0", Value: tag},
	})
}

// RemovePatch describes removing the tag at index. The test op makes the
// patch fail on any list where that slot holds a different tag.
func RemovePatch(index int, tagID string) (json.RawMessage, error) {
	if index < 0 {
		return nil, fmt.Errorf("invalid tag index %d", index)
	}
	return json.Marshal([]patchOp{
		{Op: "test", Path: fmt.Sprintf("/%d/id", index), Value: tagID},
		{Op: "remove", Path: fmt.Sprintf("/%d", index)},
	})
}
