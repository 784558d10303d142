package yhdm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcedia "github.com/tobyprime/Mcedia-sub001"
)

func testResolver(t *testing.T, playsJSON string) *Resolver {
	mux := http.NewServeMux()
	mux.HandleFunc("/vod-play/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>某动画 第1集 - 樱花动漫</title></head><body></body></html>`)
	})
	mux.HandleFunc("/_get_plays/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, playsJSON)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	r := New()
	r.Base = server.URL
	r.HTTP = server.Client()
	return r
}

func TestIsSupported(t *testing.T) {
	assert := assert.New(t)
	r := New()

	assert.True(r.IsSupported("https://yhdm.one/vod-play/12345/1.html"))
	assert.False(r.IsSupported("https://yhdm.one/vod/12345.html"))
	assert.False(r.IsSupported("https://www.bilibili.com/video/BV1xx411c7md"))
}

func TestResolve(t *testing.T) {
	assert := assert.New(t)
	r := testResolver(t, `{"video_plays":[{"url":"https://cdn.example.com/ep1.m3u8"}]}`)

	info, err := r.Resolve(context.Background(), mcedia.Request{URL: "https://yhdm.one/vod-play/12345/1.html"})
	require.NoError(t, err)
	assert.Equal("某动画 第1集", info.Title, "site suffix must be stripped")
	assert.Equal("樱花动漫", info.Platform)
	assert.Equal("https://cdn.example.com/ep1.m3u8", info.StreamURL)
	assert.True(info.MultiPart)
	assert.Equal(1, info.PartNumber)
	assert.Equal("第1集", info.PartName)
}

func TestResolveEmptyPlaysDiscardsTitle(t *testing.T) {
	// The page fetch succeeds and yields a title, but the play API coming back empty fails the
	// whole resolve; the title result must not leak out as a partial success.
	r := testResolver(t, `{"video_plays":[]}`)

	info, err := r.Resolve(context.Background(), mcedia.Request{URL: "https://yhdm.one/vod-play/12345/1.html"})
	assert.Nil(t, info)
	assert.ErrorIs(t, err, mcedia.ErrParse)
}

func TestResolvePageErrorFailsResolve(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/vod-play/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/_get_plays/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"video_plays":[{"url":"https://cdn.example.com/ep1.m3u8"}]}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	r := New()
	r.Base = server.URL
	r.HTTP = server.Client()

	_, err := r.Resolve(context.Background(), mcedia.Request{URL: "https://yhdm.one/vod-play/12345/1.html"})
	var upstream *mcedia.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusNotFound, upstream.StatusCode)
}
