package sentiment

import (
	"context"
	"math"
	"strings"
	"unicode"

	"ytanalyzer/internal/emotionstore"
	"ytanalyzer/internal/textutil"
)

// LexiconModelName identifies the offline model in reports and logs.
const LexiconModelName = "lexicon-v1"

// Word lists are accent-folded and lowercase.
var (
	positiveWords = words(
		// fr
		"super", "genial", "magnifique", "merci", "bravo", "top", "parfait", "adore", "aime", "beau", "belle",
		"excellent", "excellente", "incroyable", "formidable", "sympa", "agreable", "content", "contente", "heureux",
		"heureuse", "recommande", "reve", "superbe", "cool", "trop bien",
		// en
		"great", "love", "amazing", "awesome", "beautiful", "perfect", "nice", "good", "best", "thanks", "thank",
		"wonderful", "fantastic", "enjoyed", "fun", "happy", "recommend", "lovely", "wow",
		// de
		"toll", "wunderbar", "danke", "klasse", "prima", "liebe", "gut", "herrlich", "traumhaft",
		"empfehlen", "spitze", "geil",
		// nl
		"mooi", "leuk", "geweldig", "bedankt", "prachtig", "fijn", "heerlijk", "goed", "aanrader", "gezellig", "tof",
	)
	negativeWords = words(
		// fr
		"nul", "nulle", "horrible", "decu", "decue", "decevant", "cher", "arnaque", "honte", "mauvais",
		"mauvaise", "pire", "deteste", "triste", "inadmissible", "scandale", "catastrophe", "probleme", "bruit",
		// en
		"bad", "terrible", "awful", "worst", "hate", "disappointed", "disappointing", "dirty", "expensive", "scam",
		"horrible", "poor", "boring", "broken", "rude", "waste", "sad",
		// de
		"schlecht", "schrecklich", "enttauscht", "teuer", "schmutzig", "katastrophe", "leider", "schade", "mies",
		"ekelhaft", "langweilig",
		// nl
		"slecht", "vies", "duur", "teleurgesteld", "jammer", "verschrikkelijk", "waardeloos", "vreselijk", "saai",
	)
	negators = words(
		"pas", "jamais", "rien", "not", "never", "no", "dont", "isnt", "wasnt", "nicht", "kein", "keine",
		"nie", "niet", "geen", "nooit",
	)
	positiveEmoji = []rune{'😍', '❤', '😊', '👍', '😀', '😃', '😁', '🥰', '👏', '😘', '💕', '🤩', '🙏', '😂', '💙', '💚'}
	negativeEmoji = []rune{'😡', '😠', '👎', '😢', '😭', '🤮', '😞', '💩', '😤', '🙄'}
)

func words(list ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(list))
	for _, w := range list {
		out[w] = struct{}{}
	}
	return out
}

// LexiconModel scores texts with multilingual word lists. A negator within
// the two preceding words flips a term.
type LexiconModel struct{}

// NewLexiconModel returns the offline model.
func NewLexiconModel() *LexiconModel { return &LexiconModel{} }

func (*LexiconModel) Name() string { return LexiconModelName }

func (m *LexiconModel) Predict(ctx context.Context, texts []string) ([]Prediction, error) {
	out := make([]Prediction, len(texts))
	for i, text := range texts {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[i] = m.score(text)
	}
	return out, nil
}

func (*LexiconModel) score(text string) Prediction {
	folded := textutil.Fold(text)
	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var pos, neg float64
	for i, token := range tokens {
		polarity := 0.0
		if _, ok := positiveWords[token]; ok {
			polarity = 1
		} else if _, ok := negativeWords[token]; ok {
			polarity = -1
		} else if i > 0 {
			if _, ok := positiveWords[tokens[i-1]+" "+token]; ok {
				polarity = 1
			}
		}
		if polarity == 0 {
			continue
		}
		if negated(tokens, i) {
			polarity = -polarity
		}
		if polarity > 0 {
			pos++
		} else {
			neg++
		}
	}
	for _, r := range text {
		switch {
		case containsRune(positiveEmoji, r):
			pos++
		case containsRune(negativeEmoji, r):
			neg++
		}
	}
	if strings.Count(text, "!") >= 2 && pos > neg {
		pos += 0.5
	}

	total := pos + neg
	if total == 0 {
		return Prediction{Emotion: emotionstore.EmotionNeutral, Confidence: 0.6}
	}
	net := pos - neg
	if math.Abs(net) < 0.5 {
		return Prediction{Emotion: emotionstore.EmotionNeutral, Confidence: 0.5}
	}
	// Confidence grows with agreement and signal count.
	agreement := math.Abs(net) / total
	confidence := math.Min(0.95, 0.55+0.2*agreement+0.05*math.Min(math.Abs(net), 4))
	confidence = math.Round(confidence*1000) / 1000
	if net > 0 {
		return Prediction{Emotion: emotionstore.EmotionPositive, Confidence: confidence}
	}
	return Prediction{Emotion: emotionstore.EmotionNegative, Confidence: confidence}
}

func negated(tokens []string, i int) bool {
	for j := max(0, i-2); j < i; j++ {
		if _, ok := negators[tokens[j]]; ok {
			return true
		}
	}
	return false
}

func containsRune(set []rune, r rune) bool {
	for _, candidate := range set {
		if candidate == r {
			return true
		}
	}
	return false
}
