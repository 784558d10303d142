package mcedia

import (
	"errors"
	"fmt"
)

// Display statuses published on a MediaPlay's status channel. These are short, human-readable
// strings suitable for direct display; raw errors only ever go to the log.
const (
	// StatusResolving is the non-terminal "work in progress" status.
	StatusResolving = "正在解析"
	// StatusUnsupported is the terminal status when no resolver recognizes the URL.
	StatusUnsupported = "无法解析该链接"
	// StatusResolveFailed is the terminal status for network and upstream failures.
	StatusResolveFailed = "解析失败"
	// StatusParseError is the terminal status when a response did not have the expected shape.
	StatusParseError = "解析异常"
	// StatusResolved is the terminal status of a successful resolution.
	StatusResolved = "解析完成"
)

var (
	// ErrParse marks a response that was fetched but did not contain the expected
	// pattern/JSON shape. Resolvers wrap extraction failures with it.
	ErrParse = errors.New("unexpected response shape")
)

// UpstreamError reports a remote site rejecting a request, either at the HTTP layer or with a
// platform API error code.
type UpstreamError struct {
	// StatusCode is the HTTP status, or 0 for API-level errors.
	StatusCode int
	// Message is an optional short description from the platform.
	Message string
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("upstream error: HTTP %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("upstream error: HTTP %d", e.StatusCode)
	default:
		return "upstream error: " + e.Message
	}
}
