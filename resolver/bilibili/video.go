package bilibili

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	mcedia "github.com/tobyprime/Mcedia-sub001"
)

var videoPattern = regexp.MustCompile(`bilibili\.com/video/(BV[0-9A-Za-z]+|av\d+)`)

// VideoResolver handles ordinary user-uploaded videos (BV/av URLs), including multi-part videos
// selected with the ?p= query parameter.
type VideoResolver struct {
	client *Client
}

func NewVideoResolver(client *Client) *VideoResolver {
	return &VideoResolver{client: client}
}

func (r *VideoResolver) Name() string { return "bilibili-video" }

func (r *VideoResolver) IsSupported(rawURL string) bool {
	return videoPattern.MatchString(rawURL)
}

func (r *VideoResolver) Resolve(ctx context.Context, req mcedia.Request) (*mcedia.MediaInfo, error) {
	m := videoPattern.FindStringSubmatch(req.URL)
	if m == nil {
		return nil, parseErr("no video id in %q", req.URL)
	}
	id := m[1]

	idParam := "bvid=" + id
	if strings.HasPrefix(id, "av") {
		idParam = "aid=" + strings.TrimPrefix(id, "av")
	}
	view, err := r.client.getJSON(ctx, fmt.Sprintf("%s/x/web-interface/view?%s", r.client.APIBase, idParam), req.Cookie)
	if err != nil {
		return nil, err
	}
	data := view.Get("data")

	part := partNumber(req.URL)
	pages := data.Get("pages")
	pageCount := len(pages.MustArray())
	if pageCount == 0 {
		return nil, parseErr("view response has no pages")
	}
	if part < 1 || part > pageCount {
		part = 1
	}
	page := pages.GetIndex(part - 1)
	cid := page.Get("cid").MustInt()
	if cid == 0 {
		return nil, parseErr("page %d has no cid", part)
	}

	play, err := r.client.getJSON(ctx, fmt.Sprintf("%s/x/player/playurl?%s&cid=%d&qn=%d&platform=html5&high_quality=1",
		r.client.APIBase, idParam, cid, req.Quality), req.Cookie)
	if err != nil {
		return nil, err
	}
	playData := play.Get("data")
	streamURL := playData.Get("durl").GetIndex(0).Get("url").MustString()
	if streamURL == "" {
		return nil, parseErr("playurl response has no stream URL")
	}

	quals, current := qualities(playData, playData.Get("quality").MustInt())
	info := &mcedia.MediaInfo{
		Title:          data.Get("title").MustString(),
		Author:         data.Get("owner").Get("name").MustString(),
		Platform:       "哔哩哔哩",
		RawURL:         req.URL,
		StreamURL:      streamURL,
		Headers:        streamHeaders(req.Cookie),
		MultiPart:      pageCount > 1,
		PartNumber:     part,
		Qualities:      quals,
		CurrentQuality: current,
	}
	if info.MultiPart {
		info.PartName = page.Get("part").MustString()
	}
	return info, nil
}

// partNumber reads the ?p= part selector, defaulting to the first part.
func partNumber(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 1
	}
	p, err := strconv.Atoi(u.Query().Get("p"))
	if err != nil || p < 1 {
		return 1
	}
	return p
}
