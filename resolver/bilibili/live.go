package bilibili

import (
	"context"
	"fmt"
	"regexp"

	mcedia "github.com/tobyprime/Mcedia-sub001"
)

var livePattern = regexp.MustCompile(`live\.bilibili\.com/(\d+)`)

// LiveResolver handles live rooms. Room URLs may use a short room id; room_init maps it to the
// real id and reports whether the room is currently streaming.
type LiveResolver struct {
	client *Client
}

func NewLiveResolver(client *Client) *LiveResolver {
	return &LiveResolver{client: client}
}

func (r *LiveResolver) Name() string { return "bilibili-live" }

func (r *LiveResolver) IsSupported(rawURL string) bool {
	return livePattern.MatchString(rawURL)
}

func (r *LiveResolver) Resolve(ctx context.Context, req mcedia.Request) (*mcedia.MediaInfo, error) {
	m := livePattern.FindStringSubmatch(req.URL)
	if m == nil {
		return nil, parseErr("no room id in %q", req.URL)
	}

	room, err := r.client.getJSON(ctx, fmt.Sprintf("%s/room/v1/Room/room_init?id=%s", r.client.LiveAPIBase, m[1]), req.Cookie)
	if err != nil {
		return nil, err
	}
	roomID := room.Get("data").Get("room_id").MustInt()
	if roomID == 0 {
		return nil, parseErr("room_init response has no room id")
	}
	if room.Get("data").Get("live_status").MustInt() != 1 {
		return nil, &mcedia.UpstreamError{Message: "未开播"}
	}

	play, err := r.client.getJSON(ctx, fmt.Sprintf("%s/room/v1/Room/playUrl?cid=%d&platform=web&qn=%d", r.client.LiveAPIBase, roomID, req.Quality), req.Cookie)
	if err != nil {
		return nil, err
	}
	streamURL := play.Get("data").Get("durl").GetIndex(0).Get("url").MustString()
	if streamURL == "" {
		return nil, parseErr("playUrl response has no stream URL")
	}

	return &mcedia.MediaInfo{
		Title:     fmt.Sprintf("哔哩哔哩直播 %d", roomID),
		Platform:  "哔哩哔哩",
		RawURL:    req.URL,
		StreamURL: streamURL,
		Headers:   streamHeaders(req.Cookie),
		Live:      true,
	}, nil
}
