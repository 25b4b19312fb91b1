package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPercentage(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name        string
		part, whole decimal.Decimal
		want        string
	}{
		{name: "zero denominator", part: d("50"), whole: d("0"), want: "0"},
		{name: "negative denominator", part: d("50"), whole: d("-10"), want: "0"},
		{name: "zero over zero", part: d("0"), whole: d("0"), want: "0"},
		{name: "exact", part: d("5000"), whole: d("12000"), want: "41.67"},
		{name: "full", part: d("12000"), whole: d("12000"), want: "100"},
		{name: "overpaid", part: d("15000"), whole: d("12000"), want: "125"},
		{name: "round half up", part: d("1"), whole: d("8"), want: "12.5"},
		{name: "thirds", part: d("2"), whole: d("3"), want: "66.67"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentage(tt.part, tt.whole)
			assert.True(t, got.Equal(d(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "", want: ""},
		{in: "9876543210", want: "+919876543210"},
		{in: "098765 43210", want: "+919876543210"},
		{in: "919876543210", want: "+919876543210"},
		{in: "+91 98765-43210", want: "+919876543210"},
		{in: "+1 (415) 555-2671", want: "+14155552671"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

func TestCleanOrderings(t *testing.T) {
	cols := map[string]string{"name": "s.name", "roll": "s.roll"}
	got := CleanOrderings([]DBOrdering{
		{Field: "name", Ascending: true},
		{Field: "password_hash"},
		{Field: "roll"},
	}, cols)
	assert.Equal(t, []DBOrdering{{Field: "s.name", Ascending: true}, {Field: "s.roll"}}, got)
	assert.Equal(t, "s.roll DESC", got[1].String())
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "", want: ""},
		{in: "   ", want: ""},
		{in: " Amit ", want: "Amit"},
		{in: "  Bright   Future  ", want: "Bright Future"},
		{in: "Class\t10\nA", want: "Class 10 A"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanName(tt.in), tt.in)
	}
}
