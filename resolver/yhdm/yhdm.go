// Package yhdm resolves episode play pages on the Yhdm anime site. The episode title lives in
// the page HTML and the stream URL behind a separate play API; both are fetched in parallel and
// joined.
package yhdm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bitly/go-simplejson"
	"golang.org/x/sync/errgroup"

	mcedia "github.com/tobyprime/Mcedia-sub001"
)

var playPattern = regexp.MustCompile(`yhdm\.one/vod-play/(\d+)/(\d+)\.html`)

const (
	defaultBase = "https://yhdm.one"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

	requestTimeout = 8 * time.Second
	maxBodyBytes   = 4 << 20
)

type Resolver struct {
	// Base is the site root; replaceable in tests.
	Base string
	HTTP *http.Client
}

func New() *Resolver {
	return &Resolver{
		Base: defaultBase,
		HTTP: &http.Client{Timeout: requestTimeout},
	}
}

func (r *Resolver) Name() string { return "yhdm" }

func (r *Resolver) IsSupported(rawURL string) bool {
	return playPattern.MatchString(rawURL)
}

func (r *Resolver) Resolve(ctx context.Context, req mcedia.Request) (*mcedia.MediaInfo, error) {
	m := playPattern.FindStringSubmatch(req.URL)
	if m == nil {
		return nil, fmt.Errorf("%w: no episode reference in %q", mcedia.ErrParse, req.URL)
	}
	videoID, episode := m[1], m[2]

	var title, streamURL string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		title, err = r.fetchTitle(gctx, videoID, episode)
		return err
	})
	g.Go(func() error {
		var err error
		streamURL, err = r.fetchStreamURL(gctx, videoID, episode)
		return err
	})
	// Either failure fails the resolve; a title fetched alongside a failed play lookup is
	// discarded by the join.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	episodeNumber, _ := strconv.Atoi(episode)
	return &mcedia.MediaInfo{
		Title:      title,
		Platform:   "樱花动漫",
		RawURL:     req.URL,
		StreamURL:  streamURL,
		MultiPart:  true,
		PartNumber: episodeNumber,
		PartName:   fmt.Sprintf("第%s集", episode),
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Referer":    r.Base,
		},
	}, nil
}

// fetchTitle pulls the page <title> and strips the site suffix at the first dash.
func (r *Resolver) fetchTitle(ctx context.Context, videoID, episode string) (string, error) {
	body, err := r.get(ctx, fmt.Sprintf("%s/vod-play/%s/%s.html", r.Base, videoID, episode))
	if err != nil {
		return "", err
	}
	_, rest, found := strings.Cut(body, "<title>")
	if !found {
		return "", fmt.Errorf("%w: play page has no title", mcedia.ErrParse)
	}
	title, _, found := strings.Cut(rest, "</title>")
	if !found {
		return "", fmt.Errorf("%w: play page title is not terminated", mcedia.ErrParse)
	}
	title, _, _ = strings.Cut(title, "-")
	return strings.TrimSpace(title), nil
}

func (r *Resolver) fetchStreamURL(ctx context.Context, videoID, episode string) (string, error) {
	body, err := r.get(ctx, fmt.Sprintf("%s/_get_plays/%s/%s", r.Base, videoID, episode))
	if err != nil {
		return "", err
	}
	js, err := simplejson.NewJson([]byte(body))
	if err != nil {
		return "", fmt.Errorf("%w: play API response is not JSON: %v", mcedia.ErrParse, err)
	}
	plays := js.Get("video_plays")
	if len(plays.MustArray()) == 0 {
		return "", fmt.Errorf("%w: play API returned no sources", mcedia.ErrParse)
	}
	streamURL := plays.GetIndex(0).Get("url").MustString()
	if streamURL == "" {
		return "", fmt.Errorf("%w: play API source has no URL", mcedia.ErrParse)
	}
	return streamURL, nil
}

func (r *Resolver) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := r.HTTP.Do(req)
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
