package validation

import (
	"math"
	"testing"

	"github.com/diewo77/bon-livraison/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct_Client(t *testing.T) {
	tests := []struct {
		name   string
		client models.ClientInfo
		want   Violations
	}{
		{"complete", models.ClientInfo{Code: "CL1", Name: "ACME"}, Violations{}},
		{"missing name", models.ClientInfo{Code: "CL1"}, Violations{"name": "required"}},
		{"missing both", models.ClientInfo{}, Violations{"name": "required", "code": "required"}},
		{"blank code", models.ClientInfo{Code: "  ", Name: "ACME"}, Violations{"code": "required"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Struct(tt.client)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValid_ImportRecords(t *testing.T) {
	assert.True(t, Valid(models.ItemInput{Reference: "R", Designation: "D"}))
	assert.False(t, Valid(models.ItemInput{Reference: "R"}))
	assert.True(t, Valid(&models.InvoiceInput{Number: "N1", Date: "2025-01-01"}))
	assert.False(t, Valid(models.InvoiceInput{Number: "N1"}))
}

func TestHelpers(t *testing.T) {
	v := Violations{}
	Required("vendor", " ", v)
	PositiveFloat("quantity", 0, v)
	RangeFloat("discount", 120, 0, 100, v)
	RangeFloat("tvaRate", math.NaN(), 0, 100, v)
	RangeFloat("ok", 50, 0, 100, v)

	assert.Equal(t, Violations{
		"vendor":   "required",
		"quantity": "must_be_positive",
		"discount": "out_of_range",
		"tvaRate":  "out_of_range",
	}, v)
	assert.False(t, v.Empty())
	assert.Equal(t, "Requis", v.Messages("fr")["vendor"])
	assert.Equal(t, "Out of range", v.Messages("en")["discount"])
}
