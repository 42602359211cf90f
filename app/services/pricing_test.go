package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name     string
		food     float64
		addons   []float64
		quantity int
		want     float64
	}{
		{"food with addon times quantity", 1000, []float64{200}, 2, 2400},
		{"no addons", 149, nil, 3, 447},
		{"multiple addons", 299, []float64{49, 39}, 1, 387},
		{"quantity clamped to one", 100, nil, 0, 100},
		{"negative quantity clamped", 100, nil, -5, 100},
		{"rounded to two decimals", 10.555, nil, 1, 10.56},
		{"float accumulation stays exact", 0.1, []float64{0.2}, 3, 0.9},
		{"negative price floors at zero", -50, nil, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LineTotal(tt.food, tt.addons, tt.quantity))
		})
	}
}
