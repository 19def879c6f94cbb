package sitecontent

import "regexp"

// Shortcut is a navigation dock entry derived from the socials list.
type Shortcut struct {
	Icon SocialIcon
	Name string
	URL  string
}

var shortcutOrder = []SocialIcon{IconGitHub, IconLinkedIn, IconInstagram, IconYouTube, IconMail}

// SocialShortcuts returns the first social link of each navigable category, in dock order.
func SocialShortcuts(doc SiteContent) []Shortcut {
	first := make(map[SocialIcon]SocialLink, len(doc.Socials))
	for _, s := range doc.Socials {
		if _, seen := first[s.Icon]; !seen && s.URL != "" {
			first[s.Icon] = s
		}
	}
	out := make([]Shortcut, 0, len(shortcutOrder))
	for _, icon := range shortcutOrder {
		if s, ok := first[icon]; ok {
			out = append(out, Shortcut{Icon: icon, Name: s.Name, URL: s.URL})
		}
	}
	return out
}

var streamRe = regexp.MustCompile(`(?i)stream\.mux\.com/([A-Za-z0-9_-]+)`)

// PlaybackIDFromURL extracts the playback id from a stream url, or "".
func PlaybackIDFromURL(videoURL string) string {
	m := streamRe.FindStringSubmatch(videoURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// ThumbnailURL returns the poster image for a stream url, or "" when the
// url is not a stream url.
func ThumbnailURL(videoURL string) string {
	id := PlaybackIDFromURL(videoURL)
	if id == "" {
		return ""
	}
	return "https://image.mux.com/" + id + "/thumbnail.jpg?time=1"
}
