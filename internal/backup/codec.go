// Package backup converts record collections to and from the portable
// JSON document used for file export, file restore and cloud sync.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"bear-kitchen/internal/planner"
	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/shared"
)

const indent = "  "

// Filename is the export name for a recipe backup taken at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("backup_%s.json", t.Format("2006-01-02"))
}

// PlansFilename is the export name for a week plan backup taken at t.
func PlansFilename(t time.Time) string {
	return fmt.Sprintf("backup_plans_%s.json", t.Format("2006-01-02"))
}

// EncodeRecipes writes recipes as a pretty-printed JSON array. Embedded
// image bytes are base64 encoded.
func EncodeRecipes(recipes []recipe.Recipe) ([]byte, error) {
	return encode(recipes)
}

// DecodeRecipes reads a document written by EncodeRecipes, including ones
// from older versions that lack newer fields or carry a single image.
func DecodeRecipes(doc []byte) ([]recipe.Recipe, error) {
	var recipes []recipe.Recipe
	if err := decode(doc, &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// EncodePlans writes week plans as a pretty-printed JSON array.
func EncodePlans(plans []planner.WeekPlan) ([]byte, error) {
	return encode(plans)
}

// DecodePlans reads a document written by EncodePlans.
func DecodePlans(doc []byte) ([]planner.WeekPlan, error) {
	var plans []planner.WeekPlan
	if err := decode(doc, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func encode[T any](records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", indent)
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return append(data, '\n'), nil
}

// decode accepts only a JSON array of objects.
func decode[T any](doc []byte, out *[]T) error {
	doc = bytes.TrimSpace(doc)
	if len(doc) == 0 || doc[0] != '[' {
		return fmt.Errorf("backup is not a JSON array: %w", shared.ErrParse)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(doc, &raw); err != nil {
		return fmt.Errorf("failed to decode backup: %w: %w", shared.ErrParse, err)
	}

	records := make([]T, 0, len(raw))
	for i, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) == 0 || r[0] != '{' {
			return fmt.Errorf("backup entry %d is not an object: %w", i, shared.ErrParse)
		}
		var rec T
		if err := json.Unmarshal(r, &rec); err != nil {
			return fmt.Errorf("failed to decode backup entry %d: %w: %w", i, shared.ErrParse, err)
		}
		records = append(records, rec)
	}
	*out = records
	return nil
}
