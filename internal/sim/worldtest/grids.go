package worldtest

func Total(grid [][]int) int {
	n := 0
	for _, row := range grid {
		for _, c := range row {
			n += c
		}
	}
	return n
}

// Dispersed reports whether every cell holds exactly one agent.
func Dispersed(grid [][]int) bool {
	for _, row := range grid {
		for _, c := range row {
			if c != 1 {
				return false
			}
		}
	}
	return true
}

// Corners returns the counts at the top-left, top-right, bottom-right and
// bottom-left corners.
func Corners(grid [][]int) [4]int {
	n := len(grid)
	if n == 0 {
		return [4]int{}
	}
	return [4]int{grid[0][0], grid[0][n-1], grid[n-1][n-1], grid[n-1][0]}
}
