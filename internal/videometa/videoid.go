// Package videometa resolves YouTube video links to their title and channel.
package videometa

import "regexp"

// videoIDPattern recognizes watch, short-link, embed, v/, e/ and shorts/ URLs.
var videoIDPattern = regexp.MustCompile(`(?:youtube(?:-nocookie)?\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?|shorts|live)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)

// ExtractVideoID returns the 11-character video ID in link, or "" when link is
// not a recognizable YouTube video URL.
func ExtractVideoID(link string) string {
	m := videoIDPattern.FindStringSubmatch(link)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// ThumbnailURL returns the public URL of a video's current high-quality thumbnail.
func ThumbnailURL(videoID string) string {
	return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
}
