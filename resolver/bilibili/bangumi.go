package bilibili

import (
	"context"
	"fmt"
	"regexp"

	"github.com/bitly/go-simplejson"

	mcedia "github.com/tobyprime/Mcedia-sub001"
)

var bangumiPattern = regexp.MustCompile(`bilibili\.com/bangumi/play/(ep|ss)(\d+)`)

// BangumiResolver handles licensed series (bangumi): episode (ep) and season (ss) URLs. The pgc
// endpoints put their payload under "result" instead of "data".
type BangumiResolver struct {
	client *Client
}

func NewBangumiResolver(client *Client) *BangumiResolver {
	return &BangumiResolver{client: client}
}

func (r *BangumiResolver) Name() string { return "bilibili-bangumi" }

func (r *BangumiResolver) IsSupported(rawURL string) bool {
	return bangumiPattern.MatchString(rawURL)
}

func (r *BangumiResolver) Resolve(ctx context.Context, req mcedia.Request) (*mcedia.MediaInfo, error) {
	m := bangumiPattern.FindStringSubmatch(req.URL)
	if m == nil {
		return nil, parseErr("no episode or season id in %q", req.URL)
	}
	kind, id := m[1], m[2]

	seasonParam := "season_id=" + id
	if kind == "ep" {
		seasonParam = "ep_id=" + id
	}
	season, err := r.client.getJSON(ctx, fmt.Sprintf("%s/pgc/view/web/season?%s", r.client.APIBase, seasonParam), req.Cookie)
	if err != nil {
		return nil, err
	}
	result := season.Get("result")
	episodes := result.Get("episodes")
	episodeCount := len(episodes.MustArray())
	if episodeCount == 0 {
		return nil, parseErr("season response has no episodes")
	}

	episode, part := pickEpisode(episodes, episodeCount, kind, id)
	epID := episode.Get("id").MustInt()
	if epID == 0 {
		return nil, parseErr("episode has no id")
	}

	play, err := r.client.getJSON(ctx, fmt.Sprintf("%s/pgc/player/web/playurl?ep_id=%d&qn=%d", r.client.APIBase, epID, req.Quality), req.Cookie)
	if err != nil {
		return nil, err
	}
	playResult := play.Get("result")
	streamURL := playResult.Get("durl").GetIndex(0).Get("url").MustString()
	if streamURL == "" {
		return nil, parseErr("playurl response has no stream URL")
	}

	quals, current := qualities(playResult, playResult.Get("quality").MustInt())
	return &mcedia.MediaInfo{
		Title:          result.Get("title").MustString(),
		Platform:       "哔哩哔哩",
		RawURL:         req.URL,
		StreamURL:      streamURL,
		Headers:        streamHeaders(req.Cookie),
		MultiPart:      episodeCount > 1,
		PartNumber:     part,
		PartName:       episode.Get("long_title").MustString(),
		Qualities:      quals,
		CurrentQuality: current,
	}, nil
}

// pickEpisode selects the requested episode for an ep URL, or the first episode for a season
// URL. Returns the episode node and its 1-based position.
func pickEpisode(episodes *simplejson.Json, count int, kind, id string) (*simplejson.Json, int) {
	if kind == "ep" {
		for i := 0; i < count; i++ {
			ep := episodes.GetIndex(i)
			if fmt.Sprint(ep.Get("id").MustInt()) == id {
				return ep, i + 1
			}
		}
	}
	return episodes.GetIndex(0), 1
}
