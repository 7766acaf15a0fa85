package factor

// counter enumerates the joint assignments of a variable list in row-major
// order while tracking an offset into each of several tables. steps[t][d] is
// how far table t moves when digit d increments; zero means table t does not
// depend on that variable.
type counter struct {
	cards  []int
	digits []int
	steps  [][]int
	offs   []int
}

func newCounter(vars []Variable, steps ...[]int) *counter {
	cards := make([]int, len(vars))
	for i, v := range vars {
		cards[i] = v.Card()
	}
	return &counter{
		cards:  cards,
		digits: make([]int, len(vars)),
		steps:  steps,
		offs:   make([]int, len(steps)),
	}
}

// next advances to the following assignment and reports false once every
// assignment has been visited (the counter then wraps to all zeros).
func (c *counter) next() bool {
	for d := len(c.cards) - 1; d >= 0; d-- {
		c.digits[d]++
		for t := range c.offs {
			c.offs[t] += c.steps[t][d]
		}
		if c.digits[d] < c.cards[d] {
			return true
		}
		for t := range c.offs {
			c.offs[t] -= c.steps[t][d] * c.cards[d]
		}
		c.digits[d] = 0
	}
	return false
}
