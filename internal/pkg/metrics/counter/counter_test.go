package counter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIncrements(t *testing.T) {
	got := parseIncrements(map[string]string{
		"12":  "3",
		"4":   "1",
		"x":   "9",
		"0":   "2",
		"7":   "0",
		"8":   "-2",
		"9":   "lots",
		"100": "5",
	})

	assert.Equal(t, []increment{{id: 4, n: 1}, {id: 12, n: 3}, {id: 100, n: 5}}, got)
	assert.Empty(t, parseIncrements(nil))
}

func TestTargetsAreDistinct(t *testing.T) {
	assert.NotEqual(t, useCaseViews.key, jobViews.key)
	assert.Equal(t, "use_cases", useCaseViews.table)
	assert.Equal(t, "jobs", jobViews.table)
}
