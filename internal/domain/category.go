package domain

import "math"

// Category is a Saffir-Simpson band.
type Category int

const (
	CategoryNone Category = iota
	CategoryDepression
	CategoryStorm
	Category1
	Category2
	Category3
	Category4
	Category5
)

// CategoryForWind maps sustained wind in knots to a band. NaN counts as calm.
func CategoryForWind(kt float64) Category {
	if math.IsNaN(kt) {
		kt = 0
	}
	switch {
	case kt < 5:
		return CategoryNone
	case kt < 34:
		return CategoryDepression
	case kt < 64:
		return CategoryStorm
	case kt < 83:
		return Category1
	case kt < 96:
		return Category2
	case kt < 113:
		return Category3
	case kt < 137:
		return Category4
	default:
		return Category5
	}
}

var categoryColors = map[Category]string{
	CategoryNone:       "#FFFFFF",
	CategoryDepression: "#8FC2F2",
	CategoryStorm:      "#3185D3",
	Category1:          "#FFFF00",
	Category2:          "#FF9E00",
	Category3:          "#DD0000",
	Category4:          "#FF00FC",
	Category5:          "#8B0088",
}

var categoryLabels = map[Category]string{
	CategoryNone:       "Unknown",
	CategoryDepression: "Tropical Depression",
	CategoryStorm:      "Tropical Storm",
	Category1:          "Category 1",
	Category2:          "Category 2",
	Category3:          "Category 3",
	Category4:          "Category 4",
	Category5:          "Category 5",
}

// Color returns the band's hex colour, e.g. "#FFFF00".
func (c Category) Color() string {
	if s, ok := categoryColors[c]; ok {
		return s
	}
	return categoryColors[CategoryNone]
}

func (c Category) String() string {
	if s, ok := categoryLabels[c]; ok {
		return s
	}
	return categoryLabels[CategoryNone]
}

// LegendCategories lists the bands shown in plot legends, weakest first.
func LegendCategories() []Category {
	return []Category{CategoryDepression, CategoryStorm, Category1, Category2, Category3, Category4, Category5}
}
