// Package validation canonicalizes the video identifiers clients send.
package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyVideoID is returned for blank identifiers.
	ErrEmptyVideoID = errors.New("video ID must not be empty")

	// ErrMalformedVideoID is returned for identifiers with characters a video
	// ID never contains. They cannot be sent upstream safely.
	ErrMalformedVideoID = errors.New("video ID contains invalid characters")
)

var (
	videoIDRegex   = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	videoIDCharset = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	youtubeURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/watch\?(?:[^#]*&)?v=([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`(?:https?://)?(?:www\.)?youtu\.be/([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`(?:https?://)?m\.youtube\.com/watch\?(?:[^#]*&)?v=([a-zA-Z0-9_-]{11})`),
	}
)

// IsValidVideoID reports whether id has the 11-character video ID shape.
func IsValidVideoID(id string) bool {
	return videoIDRegex.MatchString(id)
}

// ExtractVideoID pulls the video ID out of a watch, youtu.be, shorts, embed
// or mobile URL.
func ExtractVideoID(url string) (string, bool) {
	for _, p := range youtubeURLPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// NormalizeVideoID trims raw and resolves URLs to their video ID. Bare IDs
// are otherwise passed through unchanged; only their character set is checked.
func NormalizeVideoID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptyVideoID
	}
	if id, ok := ExtractVideoID(s); ok {
		return id, nil
	}
	if !videoIDCharset.MatchString(s) {
		return "", ErrMalformedVideoID
	}
	return s, nil
}
