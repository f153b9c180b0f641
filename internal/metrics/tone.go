package metrics

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"ytanalyzer/internal/textutil"
)

const (
	toneTitleLimit  = 100
	topKeywordCount = 5
	minKeywordRunes = 4
)

var (
	emotionalWords = []string{"amazing", "incredible", "beautiful", "fantastic", "wonderful", "perfect", "love", "best"}
	actionWords    = []string{"discover", "explore", "visit", "experience", "enjoy", "learn", "watch", "see"}
)

func (s *Service) toneOfVoice(ctx context.Context, sc scope) (ToneOfVoice, error) {
	where, arg := sc.where("v")
	var titles []string
	err := s.db.SelectContext(ctx, &titles, `
        SELECT v.title
        FROM video v JOIN concurrent c ON c.id = v.concurrent_id
        WHERE `+where+` AND v.title IS NOT NULL
        ORDER BY COALESCE(v.youtube_published_at, v.published_at) DESC, v.id DESC
        LIMIT ?`, arg, toneTitleLimit)
	if err != nil {
		return ToneOfVoice{}, fmt.Errorf("tone of voice: %w", err)
	}
	return analyzeTone(titles), nil
}

// analyzeTone counts listed words as substrings of each lower-cased title.
func analyzeTone(titles []string) ToneOfVoice {
	tone := ToneOfVoice{TitlesAnalyzed: len(titles), TopKeywords: []string{}, DominantTone: ToneNeutral}
	if len(titles) == 0 {
		return tone
	}

	totalRunes := 0
	frequency := make(map[string]int)
	for _, title := range titles {
		lowered := textutil.Lower(title)
		totalRunes += utf8.RuneCountInString(title)
		tone.EmotionalWords += countContained(lowered, emotionalWords)
		tone.ActionWords += countContained(lowered, actionWords)

		words := strings.FieldsFunc(lowered, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, word := range words {
			if utf8.RuneCountInString(word) >= minKeywordRunes {
				frequency[word]++
			}
		}
	}
	tone.AvgTitleLength = round1(float64(totalRunes) / float64(len(titles)))
	tone.TopKeywords = topKeywords(frequency, topKeywordCount)
	tone.DominantTone = ToneAdventure
	if tone.EmotionalWords > tone.ActionWords {
		tone.DominantTone = ToneFamily
	}
	return tone
}

func countContained(text string, words []string) int {
	n := 0
	for _, word := range words {
		if strings.Contains(text, word) {
			n++
		}
	}
	return n
}

// topKeywords orders by frequency, then alphabetically.
func topKeywords(frequency map[string]int, n int) []string {
	words := make([]string, 0, len(frequency))
	for word := range frequency {
		words = append(words, word)
	}
	slices.SortFunc(words, func(a, b string) int {
		if frequency[a] != frequency[b] {
			return frequency[b] - frequency[a]
		}
		return strings.Compare(a, b)
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}
