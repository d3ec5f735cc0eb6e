package components

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogPaneKeepsTail(t *testing.T) {
	lp := NewLogPane(80, 5)
	lp.limit = 3

	for i := 0; i < 5; i++ {
		lp.Append(fmt.Sprintf("line %d", i))
	}

	assert.Equal(t, []string{"line 2", "line 3", "line 4"}, lp.Lines())
}

func TestLogPaneSplitsLines(t *testing.T) {
	lp := NewLogPane(80, 5)
	lp.Append("first\nsecond\n")

	assert.Equal(t, []string{"first", "second"}, lp.Lines())
}
