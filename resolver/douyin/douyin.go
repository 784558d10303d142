// Package douyin resolves Douyin share links. A share is usually a chunk of text containing a
// v.douyin.com short URL; expanding it yields the canonical video id, whose mobile share page
// embeds the playable address in a JSON blob.
package douyin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/bitly/go-simplejson"

	mcedia "github.com/tobyprime/Mcedia-sub001"
)

var (
	sharePattern   = regexp.MustCompile(`https?://v\.douyin\.com/[-0-9A-Za-z]+/?`)
	videoIDPattern = regexp.MustCompile(`/video/(\d+)`)
)

const (
	defaultDetailBase = "https://www.iesdouyin.com"

	// The share page only embeds the data blob for mobile clients.
	mobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Mobile/15E148 Safari/604.1"

	blobPrefix = "window._ROUTER_DATA = "
	blobSuffix = "</script>"

	requestTimeout = 8 * time.Second
	maxBodyBytes   = 4 << 20
)

type Resolver struct {
	// SharePattern locates the short URL inside share text; replaceable in tests.
	SharePattern *regexp.Regexp
	// DetailBase is the host serving the share/video detail page.
	DetailBase string
	HTTP       *http.Client
}

func New() *Resolver {
	return &Resolver{
		SharePattern: sharePattern,
		DetailBase:   defaultDetailBase,
		HTTP:         &http.Client{Timeout: requestTimeout},
	}
}

func (r *Resolver) Name() string { return "douyin" }

func (r *Resolver) IsSupported(rawURL string) bool {
	if r.SharePattern.MatchString(rawURL) {
		return true
	}
	return strings.Contains(rawURL, "douyin.com") && videoIDPattern.MatchString(rawURL)
}

func (r *Resolver) Resolve(ctx context.Context, req mcedia.Request) (*mcedia.MediaInfo, error) {
	videoID, err := r.findVideoID(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	body, err := r.get(ctx, fmt.Sprintf("%s/share/video/%s", r.DetailBase, videoID))
	if err != nil {
		return nil, err
	}
	blob, err := extractBlob(body)
	if err != nil {
		return nil, err
	}
	return buildInfo(blob, req.URL)
}

// findVideoID extracts the canonical video id, expanding the short link first when the URL does
// not already carry one.
func (r *Resolver) findVideoID(ctx context.Context, rawURL string) (string, error) {
	if m := videoIDPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}
	short := r.SharePattern.FindString(rawURL)
	if short == "" {
		return "", fmt.Errorf("%w: no share link in %q", mcedia.ErrParse, rawURL)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, short, nil)
	if err != nil {
		return "", fmt.Errorf("%w: bad share link %q: %v", mcedia.ErrParse, short, err)
	}
	httpReq.Header.Set("User-Agent", mobileUserAgent)
	resp, err := r.HTTP.Do(httpReq)
	if err != nil {
		return "", err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	resp.Body.Close()
	if m := videoIDPattern.FindStringSubmatch(resp.Request.URL.String()); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: share link %q did not expand to a video URL", mcedia.ErrParse, short)
}

func (r *Resolver) get(ctx context.Context, rawURL string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", mobileUserAgent)
	resp, err := r.HTTP.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &mcedia.UpstreamError{StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

// extractBlob cuts the router-data JSON out of the detail page HTML.
func extractBlob(body string) (*simplejson.Json, error) {
	_, rest, found := strings.Cut(body, blobPrefix)
	if !found {
		return nil, fmt.Errorf("%w: detail page has no data blob", mcedia.ErrParse)
	}
	blob, _, found := strings.Cut(rest, blobSuffix)
	if !found {
		return nil, fmt.Errorf("%w: data blob is not terminated", mcedia.ErrParse)
	}
	js, err := simplejson.NewJson([]byte(strings.TrimSpace(blob)))
	if err != nil {
		return nil, fmt.Errorf("%w: data blob is not JSON: %v", mcedia.ErrParse, err)
	}
	return js, nil
}

// buildInfo walks the router data to the first item's play address. The loader data is keyed by
// route name; the video route key varies with the id, so it is matched by shape.
func buildInfo(js *simplejson.Json, rawURL string) (*mcedia.MediaInfo, error) {
	loaderData := js.Get("loaderData")
	var page *simplejson.Json
	for key := range loaderData.MustMap() {
		if strings.Contains(key, "video") && strings.Contains(key, "/page") {
			page = loaderData.Get(key)
			break
		}
	}
	if page == nil {
		return nil, fmt.Errorf("%w: no video page in router data", mcedia.ErrParse)
	}
	item := page.Get("videoInfoRes").Get("item_list").GetIndex(0)
	playURL := item.Get("video").Get("play_addr").Get("url_list").GetIndex(0).MustString()
	if playURL == "" {
		return nil, fmt.Errorf("%w: no play address in router data", mcedia.ErrParse)
	}

	return &mcedia.MediaInfo{
		Title:     item.Get("desc").MustString(),
		Author:    item.Get("author").Get("nickname").MustString(),
		Platform:  "抖音",
		RawURL:    rawURL,
		StreamURL: strings.Replace(playURL, "playwm", "play", 1),
		Headers: map[string]string{
			"User-Agent": mobileUserAgent,
			"Referer":    "https://www.douyin.com",
		},
	}, nil
}
