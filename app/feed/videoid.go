package feed

import (
	"net/url"
	"regexp"
	"strings"
)

// videoIDPattern matches the 11-character identifiers used by the video
// platform. Items whose derived identifier does not match are dropped.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

func IsValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// DeriveVideoID resolves the video identifier for a raw item: the explicit
// identifier if present, else one extracted from the source URL, else the
// item's own id.
func DeriveVideoID(raw RawItem) string {
	if raw.VideoID != "" {
		return raw.VideoID
	}
	if id := ExtractVideoID(raw.SourceURL); id != "" {
		return id
	}
	return raw.ID
}

// ExtractVideoID pulls a video identifier out of a platform URL. Supported
// forms: watch?v=<id>, youtu.be/<id>, /shorts/<id>, /embed/<id>. Returns ""
// when no identifier can be found; validity is checked separately.
func ExtractVideoID(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	if v := u.Query().Get("v"); v != "" {
		return v
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")
	path := strings.Trim(u.Path, "/")
	segments := strings.Split(path, "/")

	if host == "youtu.be" && len(segments) > 0 {
		return segments[0]
	}

	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == "shorts" || segments[i] == "embed" || segments[i] == "v" {
			return segments[i+1]
		}
	}

	return ""
}

// ThumbnailURL returns the derivable thumbnail for a video identifier, used
// when the raw item carries none of its own.
func ThumbnailURL(videoID string) string {
	return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
}
