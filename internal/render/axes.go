package render

import (
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
)

// tickSteps are the candidate grid spacings in degrees.
var tickSteps = []float64{1, 2, 5, 10, 15, 20, 30}

const maxTicks = 9

// LatLabel formats a latitude as "17°N", "23°S" or "0°".
func LatLabel(v float64) string {
	switch {
	case v > 0:
		return fmt.Sprintf("%s°N", trimDegrees(v))
	case v < 0:
		return fmt.Sprintf("%s°S", trimDegrees(-v))
	default:
		return "0°"
	}
}

// LonLabel formats a longitude as "61°W", "150°E", "0°" or "180°".
func LonLabel(v float64) string {
	v = wrapLon(v)
	switch {
	case v == 180 || v == -180:
		return "180°"
	case v > 0:
		return fmt.Sprintf("%s°E", trimDegrees(v))
	case v < 0:
		return fmt.Sprintf("%s°W", trimDegrees(-v))
	default:
		return "0°"
	}
}

func trimDegrees(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func wrapLon(v float64) float64 {
	for v > 180 {
		v -= 360
	}
	for v < -180 {
		v += 360
	}
	return v
}

// degreeTicks returns evenly spaced ticks inside [min, max] using the
// smallest step that keeps the count at or below maxTicks.
func degreeTicks(lo, hi float64, label func(float64) string) []chart.Tick {
	step := tickSteps[len(tickSteps)-1]
	for _, s := range tickSteps {
		if (hi-lo)/s <= maxTicks {
			step = s
			break
		}
	}
	var ticks []chart.Tick
	for v := math.Ceil(lo/step) * step; v <= hi; v += step {
		ticks = append(ticks, chart.Tick{Value: v, Label: label(v)})
	}
	return ticks
}

// cycleTitle formats a forecast issue time for a plot title, e.g. "2024-08-14 12Z".
func cycleTitle(t time.Time) string {
	return t.UTC().Format("2006-01-02 15Z")
}

// cycleLabel is the compact legend form, day hour minute: "141200Z".
func cycleLabel(t time.Time) string {
	return t.UTC().Format("021504Z")
}
