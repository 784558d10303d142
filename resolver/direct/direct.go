// Package direct passes well-formed media file URLs straight through without talking to any
// platform. It is disabled by default and gated on the allow_direct_links setting.
package direct

import (
	"context"
	"net/url"

	mcedia "github.com/tobyprime/Mcedia-sub001"
	"github.com/tobyprime/Mcedia-sub001/generic"
	"github.com/tobyprime/Mcedia-sub001/util"
)

type Config struct {
	Protocols  generic.Set[string]
	Extensions generic.Set[string]
}

func NewConfig() Config {
	return Config{
		Protocols: generic.NewSet(
			"http",
			"https",
		),
		Extensions: generic.NewSet(
			"flv",
			"m3u8",
			"m4v",
			"mkv",
			"mp4",
			"webm",
		),
	}
}

type Resolver struct {
	config   Config
	provider mcedia.ConfigProvider
}

func New(provider mcedia.ConfigProvider) *Resolver {
	return &Resolver{config: NewConfig(), provider: provider}
}

func (r *Resolver) Name() string { return "direct" }

func (r *Resolver) IsSupported(rawURL string) bool {
	if !r.provider.Current().AllowDirectLinks {
		return false
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !r.config.Protocols.Contains(parsedURL.Scheme) {
		return false
	}
	return r.config.Extensions.Contains(util.ExtensionFromURL(parsedURL))
}

// Resolve wraps the URL as-is; the filename stands in for a title.
func (r *Resolver) Resolve(_ context.Context, req mcedia.Request) (*mcedia.MediaInfo, error) {
	filename, err := util.FilenameFromURLString(req.URL)
	if err != nil {
		return nil, err
	}
	return &mcedia.MediaInfo{
		Title:     filename,
		Platform:  "直链",
		RawURL:    req.URL,
		StreamURL: req.URL,
	}, nil
}
