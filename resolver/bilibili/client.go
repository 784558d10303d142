// Package bilibili resolves Bilibili video, bangumi and live-room URLs, plus b23.tv short
// links, into playable stream information via the public web APIs.
package bilibili

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bitly/go-simplejson"

	mcedia "github.com/tobyprime/Mcedia-sub001"
)

const (
	defaultAPIBase     = "https://api.bilibili.com"
	defaultLiveAPIBase = "https://api.live.bilibili.com"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"
	referer   = "https://www.bilibili.com"

	requestTimeout = 8 * time.Second
	maxBodyBytes   = 4 << 20
)

// Client wraps the Bilibili web API endpoints. Base URLs and the HTTP client are overridable so
// tests can point it at a local server.
type Client struct {
	APIBase     string
	LiveAPIBase string
	HTTP        *http.Client
}

func NewClient() *Client {
	return &Client{
		APIBase:     defaultAPIBase,
		LiveAPIBase: defaultLiveAPIBase,
		HTTP:        &http.Client{Timeout: requestTimeout},
	}
}

// getJSON fetches an API endpoint and returns the parsed body. Non-2xx responses and API-level
// error codes (top-level "code" != 0) become UpstreamError; a body that is not JSON becomes a
// parse error.
func (c *Client) getJSON(ctx context.Context, rawURL string, cookie string) (*simplejson.Json, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &mcedia.UpstreamError{StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	js, err := simplejson.NewJson(body)
	if err != nil {
		return nil, fmt.Errorf("%w: not JSON: %v", mcedia.ErrParse, err)
	}
	if code := js.Get("code").MustInt(); code != 0 {
		return nil, &mcedia.UpstreamError{Message: fmt.Sprintf("api code %d: %s", code, js.Get("message").MustString())}
	}
	return js, nil
}

// streamHeaders returns the request headers the stream host expects.
func streamHeaders(cookie string) map[string]string {
	h := map[string]string{
		"User-Agent": userAgent,
		"Referer":    referer,
	}
	if cookie != "" {
		h["Cookie"] = cookie
	}
	return h
}

// qualities converts the playurl accept_quality/accept_description pair into QualityInfo values,
// marking the one actually served.
func qualities(js *simplejson.Json, current int) ([]mcedia.QualityInfo, *mcedia.QualityInfo) {
	ids := js.Get("accept_quality").MustArray()
	labels := js.Get("accept_description").MustStringArray()
	list := make([]mcedia.QualityInfo, 0, len(ids))
	for i := range ids {
		id := js.Get("accept_quality").GetIndex(i).MustInt()
		q := mcedia.QualityInfo{ID: id, Default: id == current}
		if i < len(labels) {
			q.Label = labels[i]
		}
		list = append(list, q)
	}
	var selected *mcedia.QualityInfo
	for i := range list {
		if list[i].Default {
			selected = &list[i]
			break
		}
	}
	return list, selected
}

func parseErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", mcedia.ErrParse, fmt.Sprintf(format, args...))
}
