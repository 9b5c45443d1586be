package types

// englishStopwords is the stop list of PostgreSQL's english text search
// configuration. to_tsquery('english', ...) drops these words.
var englishStopwords = toSet(
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your", "yours",
	"yourself", "yourselves", "he", "him", "his", "himself", "she", "her", "hers", "herself",
	"it", "its", "itself", "they", "them", "their", "theirs", "themselves", "what", "which",
	"who", "whom", "this", "that", "these", "those", "am", "is", "are", "was", "were", "be",
	"been", "being", "have", "has", "had", "having", "do", "does", "did", "doing", "a", "an",
	"the", "and", "but", "if", "or", "because", "as", "until", "while", "of", "at", "by",
	"for", "with", "about", "against", "between", "into", "through", "during", "before",
	"after", "above", "below", "to", "from", "up", "down", "in", "out", "on", "off", "over",
	"under", "again", "further", "then", "once", "here", "there", "when", "where", "why",
	"how", "all", "any", "both", "each", "few", "more", "most", "other", "some", "such", "no",
	"nor", "not", "only", "own", "same", "so", "than", "too", "very", "s", "t", "can", "will",
	"just", "don", "should", "now",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// IsStopword reports whether the full-text index ignores term.
func IsStopword(term string) bool {
	return englishStopwords[term]
}

// IndexedTerms returns the search terms the full-text index can match.
// A query made only of stopwords yields none, and matches nothing.
func IndexedTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if !IsStopword(t) {
			out = append(out, t)
		}
	}
	return out
}
