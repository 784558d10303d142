package bilibili

import (
	"context"
	"io"
	"net/http"
	"regexp"

	mcedia "github.com/tobyprime/Mcedia-sub001"
)

var shortLinkPattern = regexp.MustCompile(`https?://b23\.tv/[0-9A-Za-z]+`)

// Short links only redirect to the canonical page for mobile clients.
const mobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Mobile/15E148 Safari/604.1"

// ShortLinkResolver expands b23.tv share links by following their redirect, then hands the
// expanded URL back to resolver selection. It runs synchronously on the worker already
// processing the request, so delegation never re-enters the pipeline queue.
type ShortLinkResolver struct {
	// Pattern locates the short URL inside share text; replaceable in tests.
	Pattern *regexp.Regexp
	HTTP    *http.Client

	dispatcher mcedia.Dispatcher
}

func NewShortLinkResolver(dispatcher mcedia.Dispatcher) *ShortLinkResolver {
	return &ShortLinkResolver{
		Pattern:    shortLinkPattern,
		HTTP:       &http.Client{Timeout: requestTimeout},
		dispatcher: dispatcher,
	}
}

func (r *ShortLinkResolver) Name() string { return "bilibili-shortlink" }

func (r *ShortLinkResolver) IsSupported(rawURL string) bool {
	return r.Pattern.MatchString(rawURL)
}

func (r *ShortLinkResolver) Resolve(ctx context.Context, req mcedia.Request) (*mcedia.MediaInfo, error) {
	short := r.Pattern.FindString(req.URL)
	if short == "" {
		return nil, parseErr("no short link in %q", req.URL)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, short, nil)
	if err != nil {
		return nil, parseErr("bad short link %q: %v", short, err)
	}
	httpReq.Header.Set("User-Agent", mobileUserAgent)
	resp, err := r.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	resp.Body.Close()

	expanded := resp.Request.URL.String()
	if r.IsSupported(expanded) {
		// Redirect never left the short-link domain; re-dispatching would loop.
		return nil, parseErr("short link %q did not expand", short)
	}
	expandedReq := req
	expandedReq.URL = expanded
	return r.dispatcher.Dispatch(ctx, expandedReq)
}
