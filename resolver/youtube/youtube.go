// Package youtube resolves YouTube watch URLs to direct stream URLs.
package youtube

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kkdai/youtube/v2"

	mcedia "github.com/tobyprime/Mcedia-sub001"
)

type Resolver struct {
	client youtube.Client
}

func New() *Resolver {
	return &Resolver{}
}

func (r *Resolver) Name() string { return "youtube" }

func (r *Resolver) IsSupported(rawURL string) bool {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, err = extractVideoID(parsedURL)
	return err == nil
}

func (r *Resolver) Resolve(ctx context.Context, req mcedia.Request) (*mcedia.MediaInfo, error) {
	parsedURL, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mcedia.ErrParse, err)
	}
	videoID, err := extractVideoID(parsedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mcedia.ErrParse, err)
	}

	video, err := r.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, fmt.Errorf("%w: no combined audio+video format available", mcedia.ErrParse)
	}
	format := &formats[0]
	streamURL, err := r.client.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream URL: %w", err)
	}

	quals := make([]mcedia.QualityInfo, 0, len(formats))
	var current *mcedia.QualityInfo
	for _, f := range formats {
		quals = append(quals, mcedia.QualityInfo{
			ID:      f.ItagNo,
			Label:   f.QualityLabel,
			Default: f.ItagNo == format.ItagNo,
		})
	}
	for i := range quals {
		if quals[i].Default {
			current = &quals[i]
			break
		}
	}

	return &mcedia.MediaInfo{
		Title:          video.Title,
		Author:         video.Author,
		Platform:       "YouTube",
		RawURL:         req.URL,
		StreamURL:      streamURL,
		Qualities:      quals,
		CurrentQuality: current,
	}, nil
}

// Extract video ID from YouTube URL.
//
// Allowed URL formats:
//		http(s?)://(www|m).youtube.com/(watch|details)?v={VIDEO_ID}
//		http(s?)://(www|m).youtube.com/v/{VIDEO_ID}
//		http(s?)://youtu.be/{VIDEO_ID}
func extractVideoID(url *url.URL) (string, error) {
	var id string
	switch url.Hostname() {
	case "www.youtube.com":
		fallthrough
	case "m.youtube.com":
		if strings.HasPrefix(url.Path, "/v/") {
			id = strings.SplitN(url.Path, "/", 3)[2]
		} else if url.Path == "/watch" || url.Path == "/details" {
			if url.Query().Has("v") {
				id = url.Query().Get("v")
			} else {
				return "", fmt.Errorf("missing ?v= query parameter")
			}
		}
	case "youtu.be":
		id = strings.Trim(url.Path, "/")
	default:
		return "", fmt.Errorf("unrecognised hostname")
	}
	if id == "" {
		return "", fmt.Errorf("could not extract video ID")
	}
	return id, nil
}
