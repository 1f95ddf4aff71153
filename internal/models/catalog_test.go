package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Enterprise", "ENTERPRISE"},
		{"spaces", "Mobile Plans 2025", "MOBILE_PLANS_2025"},
		{"punctuation runs", "  Voice & Data -- Bundles ", "VOICE_DATA_BUNDLES"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveCode(tt.in))
		})
	}
}

func TestProductOffering_PricingType(t *testing.T) {
	po := ProductOffering{ProductOfferingPrice: []ProductOfferingPrice{{}, {PriceType: PriceTypeRecurring}}}
	assert.Equal(t, PriceTypeRecurring, po.PricingType())
	assert.Equal(t, "", ProductOffering{}.PricingType())
}

func TestListParams_Normalize(t *testing.T) {
	assert.Equal(t, ListParams{Page: 1, Limit: 10}, ListParams{}.Normalize(10))
	assert.Equal(t, ListParams{Page: 3, Limit: 5, Query: "x"}, ListParams{Page: 3, Limit: 5, Query: "x"}.Normalize(10))
}
