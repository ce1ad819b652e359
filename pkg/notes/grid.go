package notes

import (
	"strconv"
	"strings"
)

// DefaultGridDenominator is used when a grid string cannot be parsed
const DefaultGridDenominator = 16

// GridDenominator extracts d from a grid string of the form "n/d".
// Malformed strings resolve to DefaultGridDenominator; the result is never
// below 1.
func GridDenominator(grid string) int {
	parts := strings.Split(grid, "/")
	if len(parts) < 2 {
		return DefaultGridDenominator
	}
	d, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return DefaultGridDenominator
	}
	return max(1, d)
}

// GridSeconds returns the length of one grid cell in seconds at bpm
func GridSeconds(bpm int, grid string) float64 {
	quarter := 60.0 / float64(max(1, bpm))
	return quarter * (4.0 / float64(GridDenominator(grid)))
}
