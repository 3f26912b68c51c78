package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStormID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		year int
		want string
	}{
		{"canonical", "AL092024", 0, "AL092024"},
		{"canonical lower", "ep142023", 0, "EP142023"},
		{"short atlantic", "09l", 2024, "AL092024"},
		{"short upper", "05L", 2024, "AL052024"},
		{"named", "ernesto05l", 2024, "AL052024"},
		{"east pacific", "12e", 2024, "EP122024"},
		{"north indian", "02b", 2024, "IO022024"},
		{"southern", "18s", 2025, "SH182025"},
		{"whitespace", "  09l ", 2024, "AL092024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeStormID(tt.raw, tt.year)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeStormID_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		year int
	}{
		{"empty", "", 2024},
		{"unknown basin letter", "09x", 2024},
		{"unknown basin", "XX092024", 0},
		{"short without year", "09l", 0},
		{"garbage", "storm", 2024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeStormID(tt.raw, tt.year)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "normalize storm id")
		})
	}
}

func TestBasinOf(t *testing.T) {
	assert.Equal(t, "EP", BasinOf("EP062024"))
	assert.Equal(t, "AL", BasinOf("al052024"))
	assert.Empty(t, BasinOf("A"))
}

func TestStormTitle(t *testing.T) {
	assert.Equal(t, "HURRICANE ERNESTO", Storm{ID: "AL052024", Name: "Ernesto", Classification: "HU"}.Title())
	assert.Equal(t, "TROPICAL STORM GILMA", Storm{ID: "EP072024", Name: "Gilma", Classification: "ts"}.Title())
	assert.Equal(t, "TROPICAL CYCLONE AL992024", Storm{ID: "AL992024"}.Title())
}
