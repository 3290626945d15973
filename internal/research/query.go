package research

import (
	"regexp"
	"strings"
)

// maxQueryTokens caps the free-text part of a search query. Marketplace
// search gets noisier, not better, past a handful of keywords.
const maxQueryTokens = 6

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

// BuildQuery turns a raw listing title plus optional brand and model into a
// marketplace search query: punctuation stripped, capped at a few keywords,
// with brand prepended and model appended when not already present.
func BuildQuery(productName, brand, model string) string {
	cleaned := nonWordRe.ReplaceAllString(productName, " ")
	tokens := strings.Fields(cleaned)
	if len(tokens) > maxQueryTokens {
		tokens = tokens[:maxQueryTokens]
	}
	query := strings.Join(tokens, " ")

	if brand != "" && !strings.Contains(strings.ToLower(query), strings.ToLower(brand)) {
		query = brand + " " + query
	}
	if model != "" && !strings.Contains(strings.ToLower(query), strings.ToLower(model)) {
		query = query + " " + model
	}
	return strings.TrimSpace(query)
}
