package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcedia "github.com/tobyprime/Mcedia-sub001"
)

func openTestCache(t *testing.T) *Cache {
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleInfo() *mcedia.MediaInfo {
	return &mcedia.MediaInfo{
		Title:     "测试视频",
		Platform:  "哔哩哔哩",
		RawURL:    "https://www.bilibili.com/video/BV1xx411c7md",
		StreamURL: "https://upos.example.com/video.flv",
		Headers:   map[string]string{"Referer": "https://www.bilibili.com"},
	}
}

func TestPutGet(t *testing.T) {
	assert := assert.New(t)
	c := openTestCache(t)
	info := sampleInfo()

	require.NoError(t, c.Put(info.RawURL, info))
	got, err := c.Get(info.RawURL, DefaultMaxAge)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(info.Title, got.Title)
	assert.Equal(info.StreamURL, got.StreamURL)
	assert.Equal(info.Headers, got.Headers)
}

func TestGetMiss(t *testing.T) {
	c := openTestCache(t)
	got, err := c.Get("https://example.com/unknown", DefaultMaxAge)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetStaleIsMiss(t *testing.T) {
	c := openTestCache(t)
	info := sampleInfo()
	require.NoError(t, c.Put(info.RawURL, info))

	got, err := c.Get(info.RawURL, time.Duration(0))
	require.NoError(t, err)
	assert.Nil(t, got, "zero max age makes every entry stale")
}

func TestHistoryNewestFirst(t *testing.T) {
	assert := assert.New(t)
	c := openTestCache(t)

	require.NoError(t, c.AppendHistory("https://example.com/1", &mcedia.MediaInfo{Title: "一"}))
	require.NoError(t, c.AppendHistory("https://example.com/2", &mcedia.MediaInfo{Title: "二"}))
	require.NoError(t, c.AppendHistory("https://example.com/3", nil))

	entries, err := c.History(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal("https://example.com/3", entries[0].URL)
	assert.Equal("二", entries[1].Title)
	assert.Equal("一", entries[2].Title)

	limited, err := c.History(2)
	require.NoError(t, err)
	assert.Len(limited, 2)
	assert.Equal("https://example.com/3", limited[0].URL)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path)
	require.NoError(t, err)
	info := sampleInfo()
	require.NoError(t, c.Put(info.RawURL, info))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()
	got, err := c.Get(info.RawURL, DefaultMaxAge)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, info.Title, got.Title)
}
