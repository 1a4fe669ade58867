package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualAdvance(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewManual(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Second), c.Advance(time.Second))
	assert.Equal(t, start.Add(time.Second), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestRealMovesForward(t *testing.T) {
	c := New()
	a := c.Now()
	b := c.Now()
	assert.False(t, b.Before(a))
}
