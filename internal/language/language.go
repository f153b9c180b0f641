package language

import (
	"strings"
	"unicode"
)

// Code is an ISO 639-1 code of a supported language, or Other.
type Code string

const (
	French  Code = "fr"
	English Code = "en"
	German  Code = "de"
	Dutch   Code = "nl"
	Other   Code = "other"
)

type entry struct {
	code    Code
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
	markers []string // Frequent function words
}

// languages is ordered by detection tie-break priority.
var languages = []entry{
	{French, "fra", "fre", "French", []string{"french", "francais"},
		[]string{"le", "la", "les", "des", "un", "une", "comment", "pour", "avec"}},
	{German, "deu", "ger", "German", []string{"german", "deutsch"},
		[]string{"der", "die", "das", "und", "mit", "eine", "ein", "wie"}},
	{Dutch, "nld", "dut", "Dutch", []string{"dutch", "nederlands"},
		[]string{"de", "het", "een", "hoe", "met", "en"}},
	{English, "eng", "", "English", []string{"english"},
		[]string{"the", "and", "is", "this", "with", "for", "you", "was"}},
}

var (
	byCode  map[string]*entry
	markers map[string][]int
)

func init() {
	byCode = make(map[string]*entry, len(languages)*4)
	markers = make(map[string][]int)
	for i := range languages {
		e := &languages[i]
		byCode[string(e.code)] = e
		byCode[e.code3] = e
		if e.alt3 != "" {
			byCode[e.alt3] = e
		}
		for _, w := range e.words {
			byCode[w] = e
		}
		for _, m := range e.markers {
			markers[m] = append(markers[m], i)
		}
	}
}

// Supported lists the detectable languages in tie-break order.
func Supported() []Code {
	out := make([]Code, len(languages))
	for i, e := range languages {
		out[i] = e.code
	}
	return out
}

// Detect returns the language with the most marker words in text. Ties
// resolve in fr, de, nl, en order. Text without markers is English, and text
// without any Latin letter is Other.
func Detect(text string) Code {
	if !hasLatin(text) {
		if strings.TrimSpace(text) == "" {
			return English
		}
		return Other
	}
	scores := make([]int, len(languages))
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	for _, w := range words {
		for _, idx := range markers[w] {
			scores[idx]++
		}
	}
	best, bestScore := English, 0
	for i, score := range scores {
		if score > bestScore {
			best, bestScore = languages[i].code, score
		}
	}
	return best
}

func hasLatin(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Latin) {
			return true
		}
	}
	return false
}

// Parse normalises a 2-letter, 3-letter, or word form to a supported Code.
// Unrecognised input yields Other.
func Parse(code string) Code {
	code = strings.ToLower(strings.TrimSpace(code))
	if e, ok := byCode[code]; ok {
		return e.code
	}
	return Other
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	if e, ok := byCode[strings.ToLower(trimmed)]; ok {
		return e.display
	}
	return strings.ToUpper(trimmed)
}
