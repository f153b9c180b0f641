package classify

import (
	"regexp"
	"strings"

	"ytanalyzer/internal/language"
	"ytanalyzer/internal/taxonomy"
	"ytanalyzer/internal/textutil"
)

// keywordPatterns lists the HERO/HUB/HELP vocabulary per language.
var keywordPatterns = map[language.Code]map[taxonomy.Category][]string{
	language.French: {
		taxonomy.Hero: {"nouveau", "nouveauté", "lancement", "première", "exclusif", "sortie",
			"annonce", "révélation", "découverte", "inédit", "breaking", "news",
			"événement", "festival", "concert", "spectacle", "ouverture",
			"inauguration", "célébration", "fête", "anniversaire"},
		taxonomy.Hub: {"visite", "découvrir", "explorer", "présentation", "tour",
			"destination", "voyage", "séjour", "vacances", "nature",
			"parc", "center parcs", "village", "cottage", "hébergement",
			"activité", "loisir", "détente", "bien-être", "spa",
			"restaurant", "gastronomie", "cuisine", "aqua mundo"},
		taxonomy.Help: {"comment", "tuto", "tutoriel", "guide", "conseil", "astuce",
			"aide", "explication", "mode d'emploi", "étape", "procédure",
			"réserver", "réservation", "booking", "planifier", "organiser",
			"préparer", "checklist", "tips", "faq", "questions",
			"problème", "solution", "dépannage", "assistance"},
	},
	language.English: {
		taxonomy.Hero: {"new", "launch", "first", "exclusive", "release", "announcement",
			"reveal", "discovery", "unprecedented", "breaking", "news",
			"event", "festival", "concert", "show", "opening",
			"inauguration", "celebration", "party", "anniversary"},
		taxonomy.Hub: {"visit", "discover", "explore", "presentation", "tour",
			"destination", "travel", "stay", "vacation", "nature",
			"park", "center parcs", "village", "cottage", "accommodation",
			"activity", "leisure", "relaxation", "wellness", "spa",
			"restaurant", "gastronomy", "cuisine", "aqua mundo"},
		taxonomy.Help: {"how to", "how", "tutorial", "guide", "advice", "tip", "help",
			"explanation", "manual", "step", "procedure", "book",
			"booking", "plan", "organize", "prepare", "checklist",
			"tips", "faq", "questions", "problem", "solution",
			"troubleshooting", "assistance"},
	},
	language.German: {
		taxonomy.Hero: {"neu", "start", "erste", "exklusiv", "veröffentlichung",
			"ankündigung", "enthüllung", "entdeckung", "einmalig",
			"breaking", "news", "ereignis", "festival", "konzert",
			"show", "eröffnung", "einweihung", "feier", "jahrestag"},
		taxonomy.Hub: {"besuch", "entdecken", "erkunden", "präsentation", "tour",
			"destination", "reise", "aufenthalt", "urlaub", "natur",
			"park", "center parcs", "dorf", "cottage", "unterkunft",
			"aktivität", "freizeit", "entspannung", "wellness", "spa",
			"restaurant", "gastronomie", "küche", "aqua mundo"},
		taxonomy.Help: {"wie", "tutorial", "anleitung", "ratschlag", "tipp",
			"hilfe", "erklärung", "handbuch", "schritt", "verfahren",
			"buchen", "buchung", "planen", "organisieren", "vorbereiten",
			"checkliste", "tipps", "faq", "fragen", "problem",
			"lösung", "fehlerbehebung", "unterstützung"},
	},
	language.Dutch: {
		taxonomy.Hero: {"nieuw", "lancering", "eerste", "exclusief", "release",
			"aankondiging", "onthulling", "ontdekking", "uniek",
			"breaking", "nieuws", "evenement", "festival", "concert",
			"show", "opening", "inwijding", "viering", "verjaardag"},
		taxonomy.Hub: {"bezoek", "ontdekken", "verkennen", "presentatie", "tour",
			"bestemming", "reis", "verblijf", "vakantie", "natuur",
			"park", "center parcs", "dorp", "cottage", "accommodatie",
			"activiteit", "vrije tijd", "ontspanning", "wellness", "spa",
			"restaurant", "gastronomie", "keuken", "aqua mundo"},
		taxonomy.Help: {"hoe", "tutorial", "gids", "advies", "tip", "hulp",
			"uitleg", "handleiding", "stap", "procedure", "boeken",
			"boeking", "plannen", "organiseren", "voorbereiden",
			"checklist", "tips", "faq", "vragen", "probleem",
			"oplossing", "probleemoplossing", "ondersteuning"},
	},
}

type pattern struct {
	text   string
	re     *regexp.Regexp
	weight int
}

// compilePattern matches a folded phrase on word boundaries; inner spaces
// also match dashes, dots, and underscores.
func compilePattern(phrase string) pattern {
	words := strings.Fields(textutil.Fold(phrase))
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	expr := `\b` + strings.Join(quoted, `[\s\-._]*`) + `\b`
	return pattern{text: phrase, re: regexp.MustCompile(expr), weight: len(words)}
}

// KeywordResult is the outcome of pattern matching.
type KeywordResult struct {
	Category   taxonomy.Category         `json:"category"`
	Score      int                       `json:"score"`
	Confidence float64                   `json:"confidence"`
	Language   language.Code             `json:"language"`
	Scores     map[taxonomy.Category]int `json:"scores"`
}

// Keyword is the legacy pattern classifier. It is safe for concurrent use.
type Keyword struct {
	patterns map[language.Code]map[taxonomy.Category][]pattern
	all      map[taxonomy.Category][]pattern
}

// NewKeyword compiles the built-in pattern lists.
func NewKeyword() *Keyword {
	k := &Keyword{
		patterns: make(map[language.Code]map[taxonomy.Category][]pattern, len(keywordPatterns)),
		all:      make(map[taxonomy.Category][]pattern),
	}
	seen := make(map[taxonomy.Category]map[string]struct{})
	for lang, byCategory := range keywordPatterns {
		compiled := make(map[taxonomy.Category][]pattern, len(byCategory))
		for category, phrases := range byCategory {
			if seen[category] == nil {
				seen[category] = make(map[string]struct{})
			}
			for _, phrase := range phrases {
				p := compilePattern(phrase)
				compiled[category] = append(compiled[category], p)
				folded := textutil.Fold(phrase)
				if _, dup := seen[category][folded]; !dup {
					seen[category][folded] = struct{}{}
					k.all[category] = append(k.all[category], p)
				}
			}
		}
		k.patterns[lang] = compiled
	}
	return k
}

// Classify scores title matches twice as heavily as description matches. A
// category needs a score of at least 1; otherwise the result is uncategorised.
func (k *Keyword) Classify(title, description string) KeywordResult {
	lang := language.Detect(title + " " + description)
	lists, ok := k.patterns[lang]
	if !ok {
		lists = k.all
	}
	foldedTitle := textutil.Fold(title)
	foldedDesc := textutil.Fold(description)

	result := KeywordResult{Language: lang, Scores: make(map[taxonomy.Category]int, len(taxonomy.Categories))}
	for _, category := range taxonomy.Categories {
		score := 2*weightedScore(foldedTitle, lists[category]) + weightedScore(foldedDesc, lists[category])
		result.Scores[category] = score
		if score > result.Score {
			result.Category, result.Score = category, score
		}
	}
	if result.Score < 1 {
		result.Category = taxonomy.None
		return result
	}
	result.Confidence = min(95, 50+10*float64(result.Score))
	return result
}

func weightedScore(text string, patterns []pattern) int {
	if text == "" {
		return 0
	}
	score := 0
	for _, p := range patterns {
		score += len(p.re.FindAllStringIndex(text, -1)) * p.weight
	}
	return score
}
