package service

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidModelJSON is returned when the model reply is not a JSON object
var ErrInvalidModelJSON = errors.New("model did not return valid JSON")

// EstimateKeys is the complete, ordered key set of a NutritionEstimate
var EstimateKeys = []string{
	"food_name",
	"serving_description",
	"calories",
	"fat_grams",
	"protein_grams",
	"confidence_level",
}

// NutritionEstimate is the projection of a model reply onto EstimateKeys.
// Values are the JSON the model emitted, untouched; a nil value encodes as
// null.
type NutritionEstimate struct {
	FoodName           json.RawMessage `json:"food_name"`
	ServingDescription json.RawMessage `json:"serving_description"`
	Calories           json.RawMessage `json:"calories"`
	FatGrams           json.RawMessage `json:"fat_grams"`
	ProteinGrams       json.RawMessage `json:"protein_grams"`
	ConfidenceLevel    json.RawMessage `json:"confidence_level"`
}

// ParseEstimate parses raw model output as a single JSON object and projects
// it onto EstimateKeys: absent keys become null, unknown keys are dropped.
func ParseEstimate(raw string) (*NutritionEstimate, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModelJSON, err)
	}
	// "null" unmarshals into a nil map without error
	if fields == nil {
		return nil, fmt.Errorf("%w: top-level value is null", ErrInvalidModelJSON)
	}

	return &NutritionEstimate{
		FoodName:           fields["food_name"],
		ServingDescription: fields["serving_description"],
		Calories:           fields["calories"],
		FatGrams:           fields["fat_grams"],
		ProteinGrams:       fields["protein_grams"],
		ConfidenceLevel:    fields["confidence_level"],
	}, nil
}
