package retrieval

import (
	"strings"
	"unicode"
)

// minKeywordLen drops one- and two-letter fragments.
const minKeywordLen = 3

// ExtractKeywords tokenizes a message into salient lowercase search
// terms: stopwords removed, short fragments dropped, first-seen order
// preserved. Pure and deterministic; an empty message yields nil, which
// downstream treats as the empty-query fast path, not an error.
func ExtractKeywords(message string) []string {
	fields := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})

	seen := make(map[string]bool, len(fields))
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if len(f) < minKeywordLen || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		keywords = append(keywords, f)
	}
	if len(keywords) == 0 {
		return nil
	}
	return keywords
}

// stopwords is the closed-class word list. Conversational fillers are
// included because chat messages lean on them heavily.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "him": true, "his": true, "how": true, "man": true,
	"new": true, "now": true, "old": true, "see": true, "two": true,
	"way": true, "who": true, "did": true, "its": true, "let": true,
	"say": true, "she": true, "too": true, "use": true, "that": true,
	"with": true, "have": true, "this": true, "will": true, "your": true,
	"from": true, "they": true, "know": true, "want": true, "been": true,
	"good": true, "much": true, "some": true, "time": true, "very": true,
	"when": true, "come": true, "here": true, "just": true, "like": true,
	"long": true, "make": true, "many": true, "more": true, "only": true,
	"over": true, "such": true, "take": true, "than": true, "them": true,
	"well": true, "were": true, "what": true, "about": true, "tell": true,
	"would": true, "could": true, "should": true, "there": true,
	"their": true, "which": true, "really": true,
	"think": true, "going": true, "where": true, "being": true,
	"every": true, "these": true, "those": true, "yeah": true,
	"okay": true, "gonna": true, "wanna": true, "thing": true,
	"things": true, "stuff": true, "something": true, "anything": true,
	"please": true, "thanks": true, "hello": true,
}
