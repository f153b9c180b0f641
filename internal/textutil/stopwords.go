package textutil

// stopWords holds accent-folded function words for fr, en, de, and nl.
var stopWords = func() map[string]struct{} {
	lists := [][]string{
		{"les", "des", "une", "pour", "avec", "dans", "sur", "par", "qui", "que", "est", "pas",
			"plus", "son", "ses", "aux", "mais", "nous", "vous", "ils", "elle", "cette", "ces",
			"tout", "tous", "leur", "sont", "ete", "etre", "avoir", "comme", "chez"},
		{"the", "and", "for", "with", "you", "your", "this", "that", "are", "was", "from", "our",
			"not", "but", "all", "can", "has", "have", "its", "out", "who", "will", "what", "more"},
		{"der", "die", "das", "und", "mit", "ein", "eine", "einen", "dem", "den", "des", "ist",
			"nicht", "auf", "fur", "von", "zum", "zur", "sich", "sie", "wir", "ihr", "auch", "aus"},
		{"het", "een", "met", "van", "voor", "niet", "zijn", "ook", "maar", "dat", "die", "wij",
			"jullie", "naar", "bij", "uit", "door", "nog", "wel", "deze"},
	}
	out := make(map[string]struct{})
	for _, list := range lists {
		for _, w := range list {
			out[w] = struct{}{}
		}
	}
	return out
}()

// IsStopWord reports whether a folded token is a function word.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}
