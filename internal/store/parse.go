package store

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	videoIDPattern    = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
	isoDurationRegexp = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)
	shortsTagRegexp   = regexp.MustCompile(`(?i)#shorts?\b`)
)

// ShortMaxSeconds is the longest duration still counted as a short.
const ShortMaxSeconds = 60

// ExtractVideoID returns the YouTube video id embedded in a watch, youtu.be,
// shorts, or embed URL. A bare id is returned unchanged.
func ExtractVideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if videoIDPattern.MatchString(raw) {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if strings.Contains(u.Host, "youtu.be") && len(segments) > 0 {
		return segments[0]
	}
	for i, seg := range segments {
		switch seg {
		case "shorts", "embed", "v", "live":
			if i+1 < len(segments) {
				return segments[i+1]
			}
		}
	}
	return ""
}

// ExtractChannelID returns the stable channel key of a channel URL: the UC id
// for /channel/ URLs, "@handle" for handle URLs, and the custom or user name
// for /c/ and /user/ URLs.
func ExtractChannelID(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, marker := range []string{"/channel/", "/@", "/c/", "/user/"} {
		idx := strings.Index(raw, marker)
		if idx < 0 {
			continue
		}
		rest := raw[idx+len(marker):]
		if cut := strings.IndexAny(rest, "/?#"); cut >= 0 {
			rest = rest[:cut]
		}
		if rest == "" {
			return ""
		}
		if marker == "/@" {
			return "@" + rest
		}
		return rest
	}
	return ""
}

// ChannelNameFromURL derives a display name when no channel metadata is supplied.
func ChannelNameFromURL(raw string) string {
	id := strings.TrimPrefix(ExtractChannelID(raw), "@")
	if id != "" {
		return id
	}
	return strings.TrimSpace(raw)
}

// ParseDuration converts ISO-8601 (PT1H2M3S), H:MM:SS, M:SS, or plain
// seconds into seconds. Unparseable input returns 0.
func ParseDuration(text string) int {
	text = strings.ToUpper(strings.TrimSpace(text))
	if text == "" {
		return 0
	}
	if strings.HasPrefix(text, "P") {
		m := isoDurationRegexp.FindStringSubmatch(text)
		if m == nil {
			return 0
		}
		total := 0
		for i, scale := range []int{86400, 3600, 60, 1} {
			if m[i+1] == "" {
				continue
			}
			n, _ := strconv.Atoi(m[i+1])
			total += n * scale
		}
		return total
	}
	parts := strings.Split(text, ":")
	if len(parts) > 3 {
		return 0
	}
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// ParseViewCount converts display counts such as "1,234", "1.2K", "3M", or
// "12 345 views" into an integer.
func ParseViewCount(text string) int64 {
	text = strings.ToUpper(strings.TrimSpace(text))
	if text == "" {
		return 0
	}
	for _, word := range []string{"VIEWS", "VIEW", "VUES", "AUFRUFE", "WEERGAVEN"} {
		text = strings.ReplaceAll(text, word, "")
	}
	text = strings.Map(func(r rune) rune {
		switch r {
		case ' ', ',', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, text)

	multipliers := map[string]float64{"K": 1e3, "M": 1e6, "B": 1e9}
	for suffix, mult := range multipliers {
		if strings.HasSuffix(text, suffix) {
			n, err := strconv.ParseFloat(strings.TrimSuffix(text, suffix), 64)
			if err != nil {
				return 0
			}
			return int64(math.Round(n * mult))
		}
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// IsShort reports whether a video counts as a short.
func IsShort(durationSeconds int, title, description string) bool {
	if durationSeconds > 0 && durationSeconds <= ShortMaxSeconds {
		return true
	}
	return shortsTagRegexp.MatchString(title) || shortsTagRegexp.MatchString(description)
}
