package world

import (
	"strconv"
	"strings"
)

// FormatOccupancy renders an occupancy grid as tab-separated rows followed by
// a blank line.
func FormatOccupancy(grid [][]int) string {
	var b strings.Builder
	for _, row := range grid {
		for c, n := range row {
			if c > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(strconv.Itoa(n))
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}
