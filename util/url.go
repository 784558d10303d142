package util

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

var (
	ErrNoFilename = errors.New("cannot extract valid filename")
)

func FilenameFromURL(url *url.URL) (string, error) {
	if url == nil {
		return "", ErrNoFilename
	}
	p := strings.Trim(url.Path, "/")
	if p == "" {
		return "", ErrNoFilename
	}
	pathElements := strings.Split(p, "/")
	filename := pathElements[len(pathElements)-1]
	if filename == "" {
		return "", ErrNoFilename
	}
	// Don't allow "filenames" that are just ".", "..", etc.
	if strings.ReplaceAll(filename, ".", "") == "" {
		return "", ErrNoFilename
	}
	return filename, nil
}

func FilenameFromURLString(s string) (string, error) {
	if parsedURL, err := url.Parse(s); err != nil {
		return "", err
	} else {
		return FilenameFromURL(parsedURL)
	}
}

// ExtensionFromURL returns the lowercased file extension of the URL path, without the leading dot,
// or "" if the path has no usable filename or extension.
func ExtensionFromURL(url *url.URL) string {
	filename, err := FilenameFromURL(url)
	if err != nil {
		return ""
	}
	ext := path.Ext(filename)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
