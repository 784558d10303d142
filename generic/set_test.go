package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAddRemove(t *testing.T) {
	assert := assert.New(t)
	s := NewSet("a", "b")
	assert.Equal(2, s.Count())
	assert.True(s.Contains("a", "b"))
	assert.False(s.Contains("c"))
	assert.True(s.Add("c"))
	assert.False(s.Add("c"))
	assert.True(s.Remove("a"))
	assert.False(s.Remove("a"))
	assert.Equal(2, s.Count())
}

func TestSetClear(t *testing.T) {
	assert := assert.New(t)
	s := NewSet(1, 2, 3)
	s.Clear()
	assert.Equal(0, s.Count())
	assert.False(s.Contains(1))
}
