package services

import (
	"reflect"
	"sort"

	"workflow-governance/backend/internal/repository"
	"workflow-governance/backend/pkg/models"
)

// nestedFields are compared one level deep so the diff names the leaf.
var nestedFields = map[string]bool{
	"metadata":         true,
	"collaboration":    true,
	"approvalWorkflow": true,
}

var ignoredFields = map[string]bool{
	"metadata.lastModified": true,
}

// diff lists the fields that differ between two versions of content,
// keyed by JSON path.
func diff(before, after models.WorkflowContent) map[string]models.FieldChange {
	a, err := repository.Encode(before)
	if err != nil {
		return nil
	}
	b, err := repository.Encode(after)
	if err != nil {
		return nil
	}
	out := map[string]models.FieldChange{}
	compare(out, "", a, b)
	return out
}

func compare(out map[string]models.FieldChange, prefix string, a, b map[string]any) {
	for _, k := range unionKeys(a, b) {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if ignoredFields[path] {
			continue
		}
		av, bv := a[k], b[k]
		if prefix == "" && nestedFields[k] {
			am, _ := av.(map[string]any)
			bm, _ := bv.(map[string]any)
			compare(out, k, am, bm)
			continue
		}
		if !reflect.DeepEqual(av, bv) {
			out[path] = models.FieldChange{Old: av, New: bv}
		}
	}
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var keys []string
	for _, m := range []map[string]any{a, b} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func toolsEqual(a, b []models.Tool) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
