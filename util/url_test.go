package util

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustParse(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	assert.NoError(t, err)
	return u
}

func TestFilenameFromURL(t *testing.T) {
	assert := assert.New(t)

	filename, err := FilenameFromURL(mustParse(t, "https://example.com/media/movie.mp4"))
	assert.NoError(err)
	assert.Equal("movie.mp4", filename)

	_, err = FilenameFromURL(mustParse(t, "https://example.com/"))
	assert.ErrorIs(err, ErrNoFilename)

	_, err = FilenameFromURL(mustParse(t, "https://example.com/media/.."))
	assert.ErrorIs(err, ErrNoFilename)
}

func TestExtensionFromURL(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("mp4", ExtensionFromURL(mustParse(t, "https://example.com/a/b/Movie.MP4")))
	assert.Equal("m3u8", ExtensionFromURL(mustParse(t, "https://example.com/live/index.m3u8?token=x")))
	assert.Equal("", ExtensionFromURL(mustParse(t, "https://example.com/watch")))
	assert.Equal("", ExtensionFromURL(mustParse(t, "https://example.com/")))
}
