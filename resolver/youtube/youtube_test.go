package youtube

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupported(t *testing.T) {
	assert := assert.New(t)
	r := New()

	assert.True(r.IsSupported("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.True(r.IsSupported("https://m.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.True(r.IsSupported("https://www.youtube.com/v/dQw4w9WgXcQ"))
	assert.True(r.IsSupported("https://youtu.be/dQw4w9WgXcQ"))
	assert.False(r.IsSupported("https://www.youtube.com/watch"))
	assert.False(r.IsSupported("https://example.com/watch?v=dQw4w9WgXcQ"))
	assert.False(r.IsSupported("://not a url"))
}

func TestExtractVideoID(t *testing.T) {
	for _, tc := range []struct {
		url string
		id  string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/details?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	} {
		parsed, err := url.Parse(tc.url)
		require.NoError(t, err)
		id, err := extractVideoID(parsed)
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.id, id, tc.url)
	}
}
