package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Filter(t *testing.T) {
	r := NewResult()
	r.Add("opportunity.short_description", "REQUIRED", "Short description is required")
	r.Add("priceList.currency", "MISMATCH", "Currency must match Price List currency")
	r.Add("productOfferings[0].price.value", "REQUIRED", "Price is required")
	r.Add("productOfferings[2].priceType", "MISMATCH", "Price type must match")
	r.Add("productOfferings[1].validFor.endDateTime", "RANGE", "End date must be after start date")

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{"exact field", []string{"opportunity.short_description"}, []string{"opportunity.short_description"}},
		{"nested under prefix", []string{"priceList"}, []string{"priceList.currency"}},
		{"array wildcard", []string{"productOfferings[].price.value", "productOfferings[].priceType"},
			[]string{"productOfferings[0].price.value", "productOfferings[2].priceType"}},
		{"no match", []string{"account"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered := r.Filter(tt.patterns...)
			assert.Equal(t, tt.want, filtered.Fields())
			assert.Equal(t, len(tt.want) == 0, filtered.Valid)
		})
	}
}

func TestResult_GetErrorsForField(t *testing.T) {
	r := NewResult()
	r.Add("account.name", "REQUIRED", "Account name is required")
	r.Add("account.email", "FORMAT", "Invalid email address")
	r.Add("accountType", "REQUIRED", "nope")

	assert.Len(t, r.GetErrorsForField("account"), 2)
	assert.True(t, r.HasErrors("accountType"))
	assert.False(t, r.HasErrors("account"))
	assert.Equal(t, "Invalid email address", r.FieldMessages()["account.email"])
}

func TestValidateInput(t *testing.T) {
	schema := JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"entity":   {Type: "string", Enum: []string{"catalog", "category"}},
			"id":       {Type: "string", MinLength: Ptr(1)},
			"attempts": {Type: "integer", Minimum: Ptr(0.0)},
			"items":    {Type: "array", MinItems: Ptr(1), Items: &Property{Type: "object", Required: []string{"id"}, Properties: map[string]Property{"id": {Type: "string"}}}},
		},
		Required: []string{"entity", "id"},
	}

	tests := []struct {
		name      string
		input     map[string]interface{}
		wantValid bool
		wantField string
	}{
		{"valid", map[string]interface{}{"entity": "catalog", "id": "c1"}, true, ""},
		{"missing id", map[string]interface{}{"entity": "catalog"}, false, "id"},
		{"bad enum", map[string]interface{}{"entity": "widget", "id": "c1"}, false, "entity"},
		{"extra field", map[string]interface{}{"entity": "catalog", "id": "c1", "other": true}, false, "other"},
		{"non integer", map[string]interface{}{"entity": "catalog", "id": "c1", "attempts": 1.5}, false, "attempts"},
		{"nested required", map[string]interface{}{"entity": "catalog", "id": "c1", "items": []interface{}{map[string]interface{}{}}}, false, "items[0].id"},
		{"empty array", map[string]interface{}{"entity": "catalog", "id": "c1", "items": []interface{}{}}, false, "items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateInput(tt.input, schema)
			assert.Equal(t, tt.wantValid, res.Valid, res.GetErrorMessages())
			if tt.wantField != "" {
				assert.True(t, res.HasErrors(tt.wantField), res.GetErrorMessages())
			}
		})
	}
}

func TestDocumentSchema_Validate(t *testing.T) {
	schema := MustCompileDocumentSchema(`{
		"type": "object",
		"required": ["name", "items"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"items": {"type": "array", "minItems": 1, "items": {"type": "object", "required": ["price"]}}
		}
	}`)

	res, err := schema.Validate(map[string]interface{}{"name": "x", "items": []interface{}{map[string]interface{}{"price": 1}}})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = schema.Validate(map[string]interface{}{"items": []interface{}{map[string]interface{}{}}})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("name"), res.GetErrorMessages())
	assert.True(t, res.HasErrors("items[0].price"), res.GetErrorMessages())
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("buyer@example.com"))
	assert.False(t, ValidateEmail("buyer@example"))
	assert.False(t, ValidateEmail(""))
}

func TestValidateTaskTypeNaming(t *testing.T) {
	assert.NoError(t, ValidateTaskTypeNaming("catalog.status.transition"))
	assert.Error(t, ValidateTaskTypeNaming("catalog-status"))
}

func TestResult_Only(t *testing.T) {
	r := NewResult()
	r.Add("productOfferings", "MIN_ITEMS", "At least one product offering is required")
	r.Add("productOfferings[0].price.value", "REQUIRED", "Price is required")
	r.Add("productOfferings[0].price.unit", "MISMATCH", "Currency must match Price List currency")

	only := r.Only("productOfferings", "productOfferings[].price.value")
	assert.Equal(t, []string{"productOfferings", "productOfferings[0].price.value"}, only.Fields())

	concrete := r.Only("productOfferings[0].price.unit")
	assert.Len(t, concrete.Errors, 1)
	assert.True(t, r.Only().Valid)
}
