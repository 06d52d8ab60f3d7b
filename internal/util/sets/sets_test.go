package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := New("posts", "assets")
	assert.True(t, s.Has("posts"))
	assert.False(t, s.Has("feeds"))

	s.Add("feeds")
	s.Delete("posts")
	assert.True(t, s.Has("feeds"))
	assert.False(t, s.Has("posts"))
	assert.Len(t, s, 2)
}
