// Package speech prepares text for and synthesizes spoken audio.
package speech

import (
	"regexp"
	"strings"
)

var (
	pictographs = regexp.MustCompile("[" +
		`\x{1F600}-\x{1F64F}` + // emoticons
		`\x{1F300}-\x{1F5FF}` + // symbols & pictographs
		`\x{1F680}-\x{1F6FF}` + // transport & map
		`\x{1F1E0}-\x{1F1FF}` + // flags
		`\x{2700}-\x{27BF}` +
		`\x{1F900}-\x{1F9FF}` +
		`\x{2600}-\x{26FF}` +
		`\x{2B00}-\x{2BFF}` +
		"]+")
	markdown = regexp.MustCompile(`\*\*|__|\*|_|#+`)
)

// Clean strips emoji and markdown emphasis/heading markers and trims the result.
func Clean(text string) string {
	text = pictographs.ReplaceAllString(text, "")
	text = markdown.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
