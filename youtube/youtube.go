// Package youtube parses and builds YouTube video URLs. It is the single
// place the rest of the code base learns a clip's video id from.
package youtube

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var ErrInvalidURL = errors.New("not a recognised YouTube video URL")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var watchHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
}

var pathPrefixes = []string{"/embed/", "/shorts/", "/live/", "/v/"}

// ParseVideoID extracts the 11-character video id from any of the common
// YouTube URL shapes (watch, youtu.be, embed, shorts, live, v).
func ParseVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	host := strings.ToLower(u.Hostname())

	var id string
	switch {
	case host == "youtu.be" || host == "www.youtu.be":
		id = strings.Trim(u.Path, "/")
	case watchHosts[host] || host == "www.youtube-nocookie.com" || host == "youtube-nocookie.com":
		if u.Path == "/watch" {
			id = u.Query().Get("v")
			break
		}
		for _, prefix := range pathPrefixes {
			if strings.HasPrefix(u.Path, prefix) {
				id = strings.SplitN(strings.TrimPrefix(u.Path, prefix), "/", 2)[0]
				break
			}
		}
	default:
		return "", ErrInvalidURL
	}

	if !videoIDPattern.MatchString(id) {
		return "", ErrInvalidURL
	}
	return id, nil
}

func IsValidURL(raw string) bool {
	_, err := ParseVideoID(raw)
	return err == nil
}

// WatchURL links to the video on youtube.com, starting at start seconds.
func WatchURL(videoID string, start int) string {
	if start > 0 {
		return fmt.Sprintf("https://www.youtube.com/watch?v=%s&t=%ds", videoID, start)
	}
	return "https://www.youtube.com/watch?v=" + videoID
}

// EmbedURL builds an iframe URL bounded to [start, end) seconds. end <= start
// leaves the clip open-ended.
func EmbedURL(videoID string, start, end int) string {
	q := url.Values{}
	q.Set("enablejsapi", "1")
	if start > 0 {
		q.Set("start", fmt.Sprint(start))
	}
	if end > start {
		q.Set("end", fmt.Sprint(end))
	}
	return "https://www.youtube.com/embed/" + videoID + "?" + q.Encode()
}
